package domain

// ErrorResponse is the single wire shape returned for every failed request.
//
//	{"error":{"code":"NOT_FOUND","message":"Property not found"}}
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the inner object of ErrorResponse.
type ErrorBody struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
