// Package api exposes the HTTP front door: the WhatsApp webhook, the
// simulation endpoint and conversation inspection.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Pre-marshaled fallback to avoid runtime encoding failures on the error
// path.
var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(errorBody{Success: false, Error: "internal server error"})
	if err != nil {
		panic(fmt.Sprintf("failed to marshal fallback error response at startup: %v", err))
	}
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeJSONResponse marshals first so encoding errors are caught before any
// headers are written.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response any) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

func writeJSONError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSONResponse(w, statusCode, errorBody{Success: false, Error: msg})
}
