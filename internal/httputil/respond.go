// Package httputil writes the API's JSON response envelope.
package httputil

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"skillswap/internal/common"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope with HTTP 200.
func OK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// Created writes a success envelope with HTTP 201.
func Created(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope with an explicit status.
func Fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// Error maps a taxonomy error to its status code. Errors outside the taxonomy
// are logged and surfaced as a generic internal failure so storage details
// never leak to callers.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := common.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		Fail(w, status, "Internal server error")
		return
	}
	Fail(w, status, err.Error())
}
