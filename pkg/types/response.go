package types

// ErrorBody is the failure payload returned by function endpoints.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusBody is returned by health probes.
type StatusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
