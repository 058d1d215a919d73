package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

type startTimerRequest struct {
	Description string `json:"description" validate:"required,max=512"`
}

type stopTimerRequest struct {
	ID string `param:"id" json:"-" validate:"required"`
}
