package handler

import (
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use it except /metrics and the event stream.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, data any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// LoginRequest is the body of POST /v1/session/login.
type LoginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"two_factor_code,omitempty"`
}

// Credentials converts the request to domain credentials.
func (r LoginRequest) Credentials() domain.Credentials {
	return domain.Credentials{Identity: r.Username, Password: r.Password, Code: r.TwoFactorCode}
}

// LoginWithSecretRequest is the body of POST /v1/session/login-with-secret.
type LoginWithSecretRequest struct {
	Account string `json:"account"`
}

// HealthResponse is the data of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Session string `json:"session"`
}
