package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeSSHConnectionFail = "SSH_CONNECTION_FAILED"
	ErrCodeCollectionFailed  = "COLLECTION_FAILED"
	ErrCodeCommandFailed     = "COMMAND_FAILED"
	ErrCodeNotifyFailed      = "NOTIFY_FAILED"
	ErrCodeUnknown           = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts a Go error to a JSON error response.
// Data is attached so partial results survive a failure.
func WriteJSONFromError(w io.Writer, err error, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Data:    data,
		Error:   ErrorToJSON(err),
	})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var hwErr *errors.Error
	if stderrors.As(err, &hwErr) {
		return &JSONError{
			Code:       mapErrorCode(hwErr.Code, hwErr.Message),
			Message:    errors.Summary(hwErr),
			Suggestion: hwErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		msgLower := strings.ToLower(message)
		if strings.Contains(msgLower, "not found") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrConnection:
		return ErrCodeSSHConnectionFail
	case errors.ErrCollection:
		return ErrCodeCollectionFailed
	case errors.ErrExec:
		return ErrCodeCommandFailed
	case errors.ErrNotify:
		return ErrCodeNotifyFailed
	}
	return ErrCodeUnknown
}
