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

const sessionsCollection = "sessions"

// SessionRepository stores sessions keyed by the SHA-256 of their token.
type SessionRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewSessionRepository(db *mongo.Database, timeout time.Duration) *SessionRepository {
	return &SessionRepository{coll: db.Collection(sessionsCollection), timeout: opTimeout(timeout)}
}

type mongoSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TokenHash string             `bson:"token_hash"`
	UserID    string             `bson:"user_id"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, mongoSession{
		TokenHash: s.TokenHash,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
	})
	if err != nil {
		return storeError("insert session", err)
	}
	return nil
}

func (r *SessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var ms mongoSession
	opts := options.FindOne().SetProjection(bson.M{"user_id": 1, "token_hash": 1, "created_at": 1})
	if err := r.coll.FindOne(ctx, bson.M{"token_hash": tokenHash}, opts).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, storeError("find session", err)
	}

	return &domain.Session{
		TokenHash: ms.TokenHash,
		UserID:    ms.UserID,
		CreatedAt: ms.CreatedAt.UTC(),
	}, nil
}

func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"token_hash": tokenHash}); err != nil {
		return storeError("delete session", err)
	}
	return nil
}

// EnsureIndexes creates indexes on the sessions collection.
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_token_hash"),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("sessions indexes: %w", err)
	}
	return nil
}
