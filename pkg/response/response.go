package response

// Error codes shared by every service
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Response is the JSON envelope returned by every handler
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

// ErrorData describes a failed request
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success wraps data in a successful envelope
func Success(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// Error builds a failed envelope
func Error(code, message string) Response {
	return Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	}
}

// ErrorWithDetails builds a failed envelope carrying details
func ErrorWithDetails(code, message, details string) Response {
	resp := Error(code, message)
	resp.Error.Details = details
	return resp
}

func BadRequest(message string) Response   { return Error(ErrCodeBadRequest, message) }
func Unauthorized(message string) Response { return Error(ErrCodeUnauthorized, message) }
func Forbidden(message string) Response    { return Error(ErrCodeForbidden, message) }
func NotFound(message string) Response     { return Error(ErrCodeNotFound, message) }

// InternalError hides internal details from the client
func InternalError(message string) Response {
	return Error(ErrCodeInternal, message)
}
