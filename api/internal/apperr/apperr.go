// Package apperr holds the error taxonomy shared by every channel.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
	// Raw is the model output that failed to parse. It is for logs only.
	Raw string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so that errors.Is works against the sentinels below
// even when a fresh instance carries its own cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

const (
	CodeMissingCredential        = "MISSING_CREDENTIAL"
	CodeMissingAttachment        = "MISSING_ATTACHMENT"
	CodeServiceInvalidCredential = "SERVICE_INVALID_CREDENTIAL"
	CodeServiceFailure           = "SERVICE_FAILURE"
	CodeEmptyResponse            = "EMPTY_RESPONSE"
	CodeMalformedJSON            = "MALFORMED_JSON"
	CodeRequestInFlight          = "REQUEST_IN_FLIGHT"
	CodeInvalidInput             = "INVALID_INPUT"
	CodeUnknown                  = "UNKNOWN"
)

var (
	ErrMissingCredential        = &AppError{Code: CodeMissingCredential, Message: "no credential configured"}
	ErrMissingAttachment        = &AppError{Code: CodeMissingAttachment, Message: "no images supplied"}
	ErrServiceInvalidCredential = &AppError{Code: CodeServiceInvalidCredential, Message: "generation service rejected the credential"}
	ErrServiceFailure           = &AppError{Code: CodeServiceFailure, Message: "generation service failed"}
	ErrEmptyResponse            = &AppError{Code: CodeEmptyResponse, Message: "empty response"}
	ErrMalformedJSON            = &AppError{Code: CodeMalformedJSON, Message: "response is not valid JSON"}
	ErrRequestInFlight          = &AppError{Code: CodeRequestInFlight, Message: "a generation request is already running"}
	ErrInvalidInput             = &AppError{Code: CodeInvalidInput, Message: "invalid lesson parameters"}
)

// userMessages are shown to teachers verbatim.
var userMessages = map[string]string{
	CodeMissingCredential:        "Vui lòng cung cấp API Key hợp lệ.",
	CodeMissingAttachment:        "Vui lòng tải lên ít nhất một hình ảnh sách giáo khoa.",
	CodeServiceInvalidCredential: "API key không hợp lệ. Vui lòng kiểm tra lại hoặc tạo key mới.",
	CodeServiceFailure:           "Không thể tạo giáo án từ Gemini API. Vui lòng kiểm tra API key và thử lại.",
	CodeEmptyResponse:            "Phản hồi từ AI trống.",
	CodeMalformedJSON:            "Đã xảy ra lỗi khi xử lý kết quả từ AI. Định dạng dữ liệu không hợp lệ.",
	CodeRequestInFlight:          "Đang soạn giáo án, vui lòng đợi yêu cầu hiện tại hoàn tất.",
	CodeInvalidInput:             "Thông tin bài dạy không hợp lệ.",
}

const genericUserMessage = "Đã xảy ra lỗi không mong muốn. Vui lòng thử lại."

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// MalformedJSON builds the parse failure that keeps the raw model output.
func MalformedJSON(raw string, cause error) *AppError {
	return &AppError{
		Code:    CodeMalformedJSON,
		Message: ErrMalformedJSON.Message,
		Cause:   cause,
		Raw:     raw,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// RawOf returns the unparsed model output attached to err, if any.
func RawOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Raw
	}
	return ""
}

// UserMessage converts any error into the single localized line a teacher sees.
func UserMessage(err error) string {
	if msg, ok := userMessages[GetCode(err)]; ok {
		return msg
	}
	return genericUserMessage
}

func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeMissingAttachment, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeMissingCredential:
		return http.StatusServiceUnavailable
	case CodeServiceInvalidCredential, CodeServiceFailure, CodeEmptyResponse, CodeMalformedJSON:
		return http.StatusBadGateway
	case CodeRequestInFlight:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
