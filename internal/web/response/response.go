package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/nahiyan/connect-broker/internal/errors"
)

// APIResponse is the envelope every JSON endpoint replies with.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorBody is the machine-readable part of an error envelope, carried in
// Data so clients can branch on error_code without parsing messages.
type ErrorBody struct {
	ErrorCode string            `json:"error_code"`
	Details   map[string]string `json:"details,omitempty"`
}

func JSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// SuccessResponse wraps data in the standard success envelope.
func SuccessResponse(w http.ResponseWriter, data any) {
	JSONResponse(w, http.StatusOK, APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse maps an error onto the envelope. Application errors keep
// their code and message; anything else is reported as an opaque internal
// error so causes never leak to clients.
func ErrorResponse(w http.ResponseWriter, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError

	switch {
	case !errors.As(err, &appErr), apperrors.IsType(err, apperrors.CodeInternalError):
		if logger != nil {
			logger.Error("Internal server error", slog.String("error", err.Error()))
		}
		appErr = apperrors.InternalError("An internal error occurred", err)
	default:
		if logger != nil {
			logger.Warn("Application error occurred",
				slog.String("code", appErr.Code),
				slog.String("message", appErr.Message),
				slog.String("cause", appErr.Error()))
		}
	}

	JSONResponse(w, appErr.HTTPCode, APIResponse{
		Code:    appErr.HTTPCode,
		Status:  "error",
		Message: appErr.Message,
		Data:    ErrorBody{ErrorCode: appErr.Code},
	})
}

// ValidationErrorResponse reports a 400 with per-field details.
func ValidationErrorResponse(w http.ResponseWriter, message string, details map[string]string, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("Validation error",
			slog.String("message", message),
			slog.Any("details", details))
	}

	JSONResponse(w, http.StatusBadRequest, APIResponse{
		Code:    http.StatusBadRequest,
		Status:  "error",
		Message: message,
		Data:    ErrorBody{ErrorCode: apperrors.CodeValidationFailed, Details: details},
	})
}
