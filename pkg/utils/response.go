package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"project-pulse/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

type SuccessResponse[T any] struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
	Data      T      `json:"data,omitempty"`
}

// FieldError names one rejected request field and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type Error struct {
	Kind    apperror.Kind `json:"kind"`
	Message string        `json:"message,omitempty"`
	Details []FieldError  `json:"details,omitempty"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
	Error     Error  `json:"error"`
}

// writeHeaders marks every response as JSON and uncacheable.
func writeHeaders(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
}

func WriteJSON[T any](w http.ResponseWriter, status int, reqID string, message string, data T) {
	writeHeaders(w, status)

	res := SuccessResponse[T]{
		Success:   true,
		RequestID: reqID,
		Message:   message,
		Data:      data,
	}

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Error().Err(err).Str("request_id", reqID).Msg("encode success response")
	}
}

func FromAppError(w http.ResponseWriter, reqID string, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = &apperror.Error{
			Kind:    apperror.Internal,
			Message: "internal server error",
		}
	}

	WriteError(w, apperror.GetHTTPStatus(appErr.Kind), reqID, appErr.Kind, appErr.Message)
}

func WriteError(w http.ResponseWriter, httpStatusCode int, reqID string, code apperror.Kind, message string) {
	writeError(w, httpStatusCode, reqID, Error{Kind: code, Message: message})
}

// WriteValidationError answers 400 listing every field validator rejected.
func WriteValidationError(w http.ResponseWriter, reqID string, err error) {
	e := Error{Kind: apperror.InvalidInput, Message: "invalid request"}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			e.Details = append(e.Details, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	}
	writeError(w, http.StatusBadRequest, reqID, e)
}

func writeError(w http.ResponseWriter, status int, reqID string, e Error) {
	writeHeaders(w, status)

	res := ErrorResponse{
		Success:   false,
		RequestID: reqID,
		Error:     e,
	}

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Error().Err(err).Str("request_id", reqID).Msg("encode error response")
	}
}
