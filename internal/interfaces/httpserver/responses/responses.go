// Package responses contains the HTTP error envelope and the helpers that write it.
package responses

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// GeneralResponse wraps simple acknowledgements such as deletes.
type GeneralResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}
