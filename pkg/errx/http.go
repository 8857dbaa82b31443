package errx

// HTTPErrorResponse is the wire shape every transport renders for an error.
type HTTPErrorResponse struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Type       string                 `json:"type"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"status_code"`
}

// ToHTTPResponse converts an Error to an HTTPErrorResponse.
func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{
		Code:       e.Code,
		Message:    e.Message,
		Type:       string(e.Type),
		Details:    e.Details,
		StatusCode: e.HTTPStatus,
	}
}

// FromError coerces any error into an *Error. Unknown errors become opaque
// internals so callers never leak wrapped driver messages to clients.
func FromError(err error) *Error {
	var e *Error
	if As(err, &e) {
		return e
	}
	return Wrap(err, "internal server error", TypeInternal)
}
