package service

import "net/http"

// Error is a domain error that carries the HTTP status it maps to.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string   { return e.Message }
func (e *Error) StatusCode() int { return e.Code }

var (
	ErrSessionNotFound    = &Error{Code: http.StatusNotFound, Message: "session not found"}
	ErrSessionEnded       = &Error{Code: http.StatusConflict, Message: "session already ended"}
	ErrSessionAlreadyOpen = &Error{Code: http.StatusConflict, Message: "user already has an open session"}
	ErrNoActiveSession    = &Error{Code: http.StatusNotFound, Message: "no active session found for user"}
	ErrSessionRefRequired = &Error{Code: http.StatusBadRequest, Message: "must provide either session_id or user_id"}
	ErrNoActiveSessions   = &Error{Code: http.StatusNotFound, Message: "no active sessions"}
	ErrNoPredictions      = &Error{Code: http.StatusNotFound, Message: "no predictions available yet"}
	ErrNoPredictionsRange = &Error{Code: http.StatusNotFound, Message: "no predictions in time range"}
	ErrInvalidVector      = &Error{Code: http.StatusBadRequest, Message: "band vector must have 5 components"}
)
