package dto

// Error codes returned by the operational endpoints
const (
	CodeUnknownSyncKind   = "UNKNOWN_SYNC_KIND"
	CodeSyncTriggerFailed = "SYNC_TRIGGER_FAILED"
	CodeNotReady          = "NOT_READY"
)

// Response is the envelope every operational endpoint returns
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}
