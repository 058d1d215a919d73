package ws

import "github.com/byrgyin/server-counter/internal/core/domain"

// Client message types.
const (
	TypeLogin       = "login"
	TypeSignup      = "signup"
	TypeLogout      = "logout"
	TypeOldTimer    = "old_timer"
	TypeActiveTimer = "active_timer"
	TypeCreateTimer = "create_timer"
	TypeStopTimer   = "stop_timer"
	TypeStatusTimer = "status_timer"

	// TypeError answers frames that could not be parsed or whose type is
	// unknown.
	TypeError = "error"
)

// ClientMessage is one frame sent by the client. Only the fields relevant to
// Type are read.
type ClientMessage struct {
	Type        string       `json:"type"`
	SessionID   string       `json:"sessionId,omitempty"`
	ID          string       `json:"id,omitempty"`
	Description string       `json:"description,omitempty"`
	Data        *Credentials `json:"data,omitempty"`
}

type Credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// ServerMessage is the single reply to a ClientMessage. Type is the client
// type suffixed with "_success" or "_error".
type ServerMessage struct {
	Type      string           `json:"type"`
	Success   bool             `json:"success"`
	SessionID string           `json:"sessionId,omitempty"`
	Timer     *domain.Timer    `json:"timer,omitempty"`
	Timers    *[]*domain.Timer `json:"timers,omitempty"`
	User      *domain.User     `json:"user,omitempty"`
	Error     *ErrorBody       `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(msgType string) ServerMessage {
	return ServerMessage{Type: msgType + "_success", Success: true}
}

// timerList keeps an empty result encoded as [] rather than omitted.
func timerList(timers []*domain.Timer) *[]*domain.Timer {
	if timers == nil {
		timers = []*domain.Timer{}
	}
	return &timers
}
