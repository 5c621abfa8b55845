package casting

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/castgate/auth"
)

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Bad request",
	http.StatusNotFound:            "Resource could not be found",
	http.StatusMethodNotAllowed:    "Method not allowed",
	http.StatusUnprocessableEntity: "Request could not be processable",
	http.StatusInternalServerError: "Internal server error",
}

// StatusMessage returns the caller-facing message for status.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return http.StatusText(status)
}

// ErrorStatus maps err to a status and message. Gate failures keep their own
// description; anything unrecognized is a 500.
func ErrorStatus(err error) (int, string) {
	var status int
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnprocessable):
		status = http.StatusUnprocessableEntity
	default:
		return auth.ErrorStatus(err)
	}
	return status, StatusMessage(status)
}

// WriteError writes err as {"success": false, "error": status, "message": text}.
// It satisfies auth.ErrorWriter.
func WriteError(w http.ResponseWriter, _ *http.Request, err error) {
	status, message := ErrorStatus(err)
	writeErrorBody(w, status, message)
}

// WriteStatus writes the standard error body for status.
func WriteStatus(w http.ResponseWriter, _ *http.Request, status int) {
	writeErrorBody(w, status, StatusMessage(status))
}

func writeErrorBody(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, auth.ErrorBody{Success: false, Error: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var _ auth.ErrorWriter = WriteError
