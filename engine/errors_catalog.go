package engine

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// ErrorCode identifies a user facing failure
type ErrorCode string

const (
	CodeUploadFailed       ErrorCode = "UPLOAD_FAILED"
	CodeConversionFailed   ErrorCode = "CONVERSION_FAILED"
	CodeAnalysisFailed     ErrorCode = "ANALYSIS_FAILED"
	CodeAuthFailed         ErrorCode = "AUTH_FAILED"
	CodeNetworkError       ErrorCode = "NETWORK_ERROR"
	CodeFileTooLarge       ErrorCode = "FILE_TOO_LARGE"
	CodeInvalidFileType    ErrorCode = "INVALID_FILE_TYPE"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeQuotaExceeded      ErrorCode = "QUOTA_EXCEEDED"
	CodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	CodeNotFound           ErrorCode = "NOT_FOUND"
)

// AppError is a failure reported to API clients
type AppError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retry     bool      `json:"retry"`
	Timestamp time.Time `json:"timestamp"`
	// MaxBytes is the upload limit that a FILE_TOO_LARGE error was raised against
	MaxBytes int64 `json:"maxBytes,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// NewAppError creates an AppError stamped with the current time
func NewAppError(code ErrorCode, message, details string, retry bool) *AppError {
	return &AppError{Code: code, Message: message, Details: details, Retry: retry, Timestamp: time.Now()}
}

// CommonErrors are the catalog defaults for each code
var CommonErrors = map[ErrorCode]AppError{
	CodeUploadFailed:       {Code: CodeUploadFailed, Message: "File upload failed", Retry: true},
	CodeConversionFailed:   {Code: CodeConversionFailed, Message: "PDF conversion failed", Retry: true},
	CodeAnalysisFailed:     {Code: CodeAnalysisFailed, Message: "AI analysis failed", Retry: true},
	CodeAuthFailed:         {Code: CodeAuthFailed, Message: "Authentication failed"},
	CodeNetworkError:       {Code: CodeNetworkError, Message: "Network error", Retry: true},
	CodeFileTooLarge:       {Code: CodeFileTooLarge, Message: "File too large"},
	CodeInvalidFileType:    {Code: CodeInvalidFileType, Message: "Invalid file type"},
	CodeServiceUnavailable: {Code: CodeServiceUnavailable, Message: "Service unavailable", Retry: true},
	CodeQuotaExceeded:      {Code: CodeQuotaExceeded, Message: "Storage quota exceeded"},
}

var friendlyMessages = map[ErrorCode]string{
	CodeUploadFailed:       "Failed to upload file. Please try again.",
	CodeConversionFailed:   "Failed to convert PDF. Please check your file.",
	CodeAnalysisFailed:     "AI analysis failed. Please try again.",
	CodeAuthFailed:         "Authentication failed. Please sign in again.",
	CodeNetworkError:       "Network error. Please check your connection.",
	CodeInvalidFileType:    "Invalid file type. Please upload a PDF.",
	CodeServiceUnavailable: "Service temporarily unavailable. Please try again.",
	CodeQuotaExceeded:      "Storage quota exceeded. Please upgrade your plan.",
}

// CatalogError returns a fresh copy of the catalog entry for code with details attached
func CatalogError(code ErrorCode, details string) *AppError {
	entry, ok := CommonErrors[code]
	if !ok {
		return NewAppError(code, string(code), details, false)
	}
	return NewAppError(entry.Code, entry.Message, details, entry.Retry)
}

// FileTooLargeError reports an upload over maxBytes. A non-positive limit
// means DefaultMaxUploadBytes.
func FileTooLargeError(maxBytes int64) *AppError {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	err := CatalogError(CodeFileTooLarge, "")
	err.MaxBytes = maxBytes
	return err
}

// FriendlyMessage is the text shown to users for err
func FriendlyMessage(err *AppError) string {
	if err.Code == CodeFileTooLarge {
		limit := err.MaxBytes
		if limit <= 0 {
			limit = DefaultMaxUploadBytes
		}
		return fmt.Sprintf("File is too large. Maximum size is %s.", humanize.IBytes(uint64(limit)))
	}
	if msg, ok := friendlyMessages[err.Code]; ok {
		return msg
	}
	return err.Message
}

// IsRetryable reports whether the user may simply try again
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retry
	}
	return false
}

// ErrorMessage extracts a printable message from any error
func ErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return FriendlyMessage(appErr)
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "An unexpected error occurred"
}

// RespondError writes err as the JSON error body
func RespondError(c echo.Context, status int, err *AppError) error {
	return c.JSON(status, map[string]interface{}{
		"error":   FriendlyMessage(err),
		"code":    err.Code,
		"details": err.Details,
		"retry":   err.Retry,
	})
}

func statusFor(code ErrorCode) int {
	switch code {
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeInvalidFileType, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAuthFailed:
		return http.StatusUnauthorized
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeQuotaExceeded:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}
