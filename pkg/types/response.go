// Package types holds the JSON envelopes every HTTP response is wrapped in.
package types

// SuccessEnvelope wraps a 2xx body as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body of a failed request. Retryable tells the client the
// same request may succeed later, e.g. after topping up the wallet. RequestID
// lets support find the matching log lines.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
