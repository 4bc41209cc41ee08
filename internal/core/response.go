package core

import (
	"encoding/json"
	"errors"
	"net/http"

	"shiftdesk/internal/types"
)

// APIResponse is the uniform transport envelope for the trigger endpoints:
// {success, message?, data}. Data carries the JobResult for job endpoints.
type APIResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// JSON writes a JSON response with the given status code and body. If
// marshalling fails, it falls back to a 500 error envelope.
func JSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	encoded, err := json.Marshal(body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fallback := APIResponse{
			Success:   false,
			Code:      string(types.ErrCodeInternalUnexpected),
			Message:   "failed to marshal response",
			RequestID: types.GetRequestID(r.Context()),
		}
		// Best-effort write; if this also fails there is nothing more to do.
		_ = json.NewEncoder(w).Encode(fallback)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

// Error writes an error envelope. If the error chain contains an AppError its
// code determines the HTTP status; any other error becomes a 500 with a safe
// generic message so internal details never leak to the caller. The data
// argument (usually a failed JobResult) is passed through when non-nil.
func Error(w http.ResponseWriter, r *http.Request, err error, data any) {
	requestID := types.GetRequestID(r.Context())

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		JSON(w, r, appErr.HTTPStatus(), APIResponse{
			Success:   false,
			Code:      string(appErr.Code),
			Message:   appErr.Message,
			Data:      data,
			RequestID: requestID,
		})
		return
	}

	JSON(w, r, http.StatusInternalServerError, APIResponse{
		Success:   false,
		Code:      string(types.ErrCodeInternalUnexpected),
		Message:   "an unexpected error occurred",
		Data:      data,
		RequestID: requestID,
	})
}
