package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/byrgyin/server-counter/internal/core/domain"
)

const (
	timersCollection = "timers"
	// oneActiveIndex is the partial unique index that admits a single
	// is_active=true document per user_id.
	oneActiveIndex = "one_active_timer_per_user"
)

type TimerRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewTimerRepository(db *mongo.Database, timeout time.Duration) *TimerRepository {
	return &TimerRepository{col: db.Collection(timersCollection), timeout: opTimeout(timeout)}
}

type mongoTimer struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	Description string             `bson:"description"`
	StartedAt   time.Time          `bson:"started_at"`
	StoppedAt   *time.Time         `bson:"stopped_at,omitempty"`
	DurationMs  int64              `bson:"duration_ms"`
	ProgressMs  int64              `bson:"progress_ms"`
	IsActive    bool               `bson:"is_active"`
}

func (m mongoTimer) toDomain() *domain.Timer {
	t := &domain.Timer{
		ID:          m.ID.Hex(),
		OwnerID:     m.UserID,
		Description: m.Description,
		StartedAt:   m.StartedAt.UTC(),
		DurationMs:  m.DurationMs,
		ProgressMs:  m.ProgressMs,
		IsActive:    m.IsActive,
	}
	if m.StoppedAt != nil {
		stopped := m.StoppedAt.UTC()
		t.StoppedAt = &stopped
	}
	return t
}

// InsertActive inserts t as an active timer. The partial unique index
// rejects the insert when the owner already has an active timer, which makes
// the check and the write a single atomic operation.
func (r *TimerRepository) InsertActive(ctx context.Context, t *domain.Timer) (*domain.Timer, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := mongoTimer{
		ID:          primitive.NewObjectID(),
		UserID:      t.OwnerID,
		Description: t.Description,
		StartedAt:   t.StartedAt,
		IsActive:    true,
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrTimerAlreadyActive
		}
		return nil, storeError("insert timer", err)
	}
	return doc.toDomain(), nil
}

// ListByOwner returns the owner's timers in insertion order.
func (r *TimerRepository) ListByOwner(ctx context.Context, ownerID string, active bool) ([]*domain.Timer, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"user_id": ownerID, "is_active": active}
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeError("find timers", err)
	}
	defer cur.Close(ctx)

	var docs []mongoTimer
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storeError("decode timers", err)
	}

	timers := make([]*domain.Timer, 0, len(docs))
	for _, d := range docs {
		timers = append(timers, d.toDomain())
	}
	return timers, nil
}

// FindByID returns the timer only when it belongs to ownerID. Malformed ids
// are reported as not found.
func (r *TimerRepository) FindByID(ctx context.Context, ownerID, timerID string) (*domain.Timer, error) {
	oid, err := primitive.ObjectIDFromHex(timerID)
	if err != nil {
		return nil, domain.ErrTimerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc mongoTimer
	if err := r.col.FindOne(ctx, bson.M{"_id": oid, "user_id": ownerID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTimerNotFound
		}
		return nil, storeError("find timer", err)
	}
	return doc.toDomain(), nil
}

// StopActive atomically flips the owner's active timer to stopped and
// computes its duration server-side from the stored start time.
func (r *TimerRepository) StopActive(ctx context.Context, ownerID, timerID string, at time.Time) (*domain.Timer, error) {
	filter := bson.M{"user_id": ownerID, "is_active": true}
	if timerID != "" {
		oid, err := primitive.ObjectIDFromHex(timerID)
		if err != nil {
			return nil, domain.ErrNoActiveTimer
		}
		filter["_id"] = oid
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	at = at.UTC()
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "is_active", Value: false},
			{Key: "stopped_at", Value: at},
			{Key: "duration_ms", Value: bson.D{{Key: "$max", Value: bson.A{
				int64(0),
				bson.D{{Key: "$subtract", Value: bson.A{at, "$started_at"}}},
			}}}},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoTimer
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNoActiveTimer
		}
		return nil, storeError("stop timer", err)
	}
	return doc.toDomain(), nil
}

// UpdateProgress writes progress for still-active timers in one unordered
// bulk operation. $max keeps stored progress monotonic when batches arrive
// out of order.
func (r *TimerRepository) UpdateProgress(ctx context.Context, updates []domain.ProgressUpdate) error {
	models := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		oid, err := primitive.ObjectIDFromHex(u.TimerID)
		if err != nil {
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": oid, "is_active": true}).
			SetUpdate(bson.M{"$max": bson.M{"progress_ms": u.ProgressMs}}))
	}
	if len(models) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return storeError("update progress", err)
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the timers collection,
// including the partial unique index behind the single-active rule.
func (r *TimerRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}, {Key: "started_at", Value: 1}}},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName(oneActiveIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_active": true}),
		},
	}

	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("timers indexes: %w", err)
	}
	return nil
}
