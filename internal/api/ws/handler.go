package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/byrgyin/server-counter/internal/api/handler"
	"github.com/byrgyin/server-counter/internal/core/domain"
	"github.com/byrgyin/server-counter/internal/core/ports"
	"github.com/byrgyin/server-counter/internal/pkg/metrics"
)

// Handler translates WebSocket frames into service calls. It holds no
// per-connection state; the session travels in every frame.
type Handler struct {
	auth     ports.AuthService
	timers   ports.TimerService
	resolver ports.SessionResolver
	validate *validator.Validate
	log      zerolog.Logger
}

func NewHandler(auth ports.AuthService, timers ports.TimerService, resolver ports.SessionResolver, log zerolog.Logger) *Handler {
	return &Handler{
		auth:     auth,
		timers:   timers,
		resolver: resolver,
		validate: validator.New(),
		log:      log,
	}
}

// Dispatch handles one raw frame and returns exactly one reply.
func (h *Handler) Dispatch(ctx context.Context, raw []byte) ServerMessage {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		metrics.WSMessagesTotal.WithLabelValues("invalid", "error").Inc()
		return ServerMessage{
			Type:  TypeError,
			Error: &ErrorBody{Code: CodeBadRequest, Message: "malformed message"},
		}
	}

	reply, err := h.route(ctx, &msg)
	if err != nil {
		reply = h.failure(msg.Type, err)
	}

	result := "success"
	if !reply.Success {
		result = "error"
	}
	label := msg.Type
	if reply.Type == TypeError {
		label = "invalid"
	}
	metrics.WSMessagesTotal.WithLabelValues(label, result).Inc()
	return reply
}

func (h *Handler) route(ctx context.Context, msg *ClientMessage) (ServerMessage, error) {
	switch msg.Type {
	case TypeLogin:
		return h.login(ctx, msg)
	case TypeSignup:
		return h.signup(ctx, msg)
	case TypeLogout:
		return h.logout(ctx, msg)
	case TypeOldTimer:
		return h.list(ctx, msg, false)
	case TypeActiveTimer:
		return h.list(ctx, msg, true)
	case TypeCreateTimer:
		return h.createTimer(ctx, msg)
	case TypeStopTimer:
		return h.stopTimer(ctx, msg)
	case TypeStatusTimer:
		return h.statusTimer(ctx, msg)
	default:
		return ServerMessage{
			Type:  TypeError,
			Error: &ErrorBody{Code: CodeBadRequest, Message: "unknown message type"},
		}, nil
	}
}

func (h *Handler) login(ctx context.Context, msg *ClientMessage) (ServerMessage, error) {
	creds, err := h.credentials(msg)
	if err != nil {
		return ServerMessage{}, err
	}

	session, user, err := h.auth.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		return ServerMessage{}, err
	}
	reply := success(msg.Type)
	reply.SessionID = session.Token
	reply.User = user
	return reply, nil
}

func (h *Handler) signup(ctx context.Context, msg *ClientMessage) (ServerMessage, error) {
	creds, err := h.credentials(msg)
	if err != nil {
		return ServerMessage{}, err
	}

	session, user, err := h.auth.Signup(ctx, creds.Username, creds.Password)
	if err != nil {
		return ServerMessage{}, err
	}
	reply := success(msg.Type)
	reply.SessionID = session.Token
	reply.User = user
	return reply, nil
}

func (h *Handler) logout(ctx context.Context, msg *ClientMessage) (ServerMessage, error) {
	if err := h.auth.Logout(ctx, msg.SessionID); err != nil {
		return ServerMessage{}, err
	}
	return success(msg.Type), nil
}

func (h *Handler) list(ctx context.Context, msg *ClientMessage, active bool) (ServerMessage, error) {
	user, err := h.user(ctx, msg)
	if err != nil {
		return ServerMessage{}, err
	}

	timers, err := h.timers.List(ctx, user, active)
	if err != nil {
		return ServerMessage{}, err
	}
	reply := success(msg.Type)
	reply.SessionID = msg.SessionID
	reply.Timers = timerList(timers)
	return reply, nil
}

func (h *Handler) createTimer(ctx context.Context, msg *ClientMessage) (ServerMessage, error) {
	user, err := h.user(ctx, msg)
	if err != nil {
		return ServerMessage{}, err
	}
	if err := h.validate.Var(strings.TrimSpace(msg.Description), "required,max=512"); err != nil {
		return ServerMessage{}, badRequest("description is required and at most 512 characters")
	}

	timer, err := h.timers.Start(ctx, user, msg.Description)
	if err != nil {
		return ServerMessage{}, err
	}
	reply := success(msg.Type)
	reply.SessionID = msg.SessionID
	reply.Timer = timer
	return reply, nil
}

func (h *Handler) stopTimer(ctx context.Context, msg *ClientMessage) (ServerMessage, error) {
	user, err := h.user(ctx, msg)
	if err != nil {
		return ServerMessage{}, err
	}

	timer, err := h.timers.Stop(ctx, user, msg.ID)
	if err != nil {
		return ServerMessage{}, err
	}
	reply := success(msg.Type)
	reply.SessionID = msg.SessionID
	reply.Timer = timer
	return reply, nil
}

func (h *Handler) statusTimer(ctx context.Context, msg *ClientMessage) (ServerMessage, error) {
	user, err := h.user(ctx, msg)
	if err != nil {
		return ServerMessage{}, err
	}
	if strings.TrimSpace(msg.ID) == "" {
		return ServerMessage{}, badRequest("id is required")
	}

	timer, err := h.timers.Get(ctx, user, msg.ID)
	if err != nil {
		return ServerMessage{}, err
	}
	var timers []*domain.Timer
	if timer != nil {
		timers = append(timers, timer)
	}
	reply := success(msg.Type)
	reply.SessionID = msg.SessionID
	reply.Timers = timerList(timers)
	return reply, nil
}

// user resolves the frame's session. Anonymous frames fail before any
// timer operation runs.
func (h *Handler) user(ctx context.Context, msg *ClientMessage) (*domain.User, error) {
	user, err := h.resolver.Resolve(ctx, msg.SessionID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

func (h *Handler) credentials(msg *ClientMessage) (*Credentials, error) {
	if msg.Data == nil {
		return nil, badRequest("data is required")
	}
	if err := h.validate.Struct(msg.Data); err != nil {
		return nil, badRequest(handler.ValidationError(err).Error())
	}
	return msg.Data, nil
}

func (h *Handler) failure(msgType string, err error) ServerMessage {
	code, message, known := errorCode(err)
	if !known {
		h.log.Error().Err(err).Str("type", msgType).Msg("websocket request failed")
	}
	return ServerMessage{
		Type:  msgType + "_error",
		Error: &ErrorBody{Code: code, Message: message},
	}
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}
