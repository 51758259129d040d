package handlers

import "context"

// HealthRequest is the request type for health check (empty).
type HealthRequest struct{}

// Validate implements Validatable.
func (*HealthRequest) Validate() error { return nil }

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// NewHealth returns a health check handler reporting version.
func NewHealth(version string) func(context.Context, *HealthRequest) (*HealthResponse, error) {
	return func(ctx context.Context, req *HealthRequest) (*HealthResponse, error) {
		return &HealthResponse{Status: "ok", Version: version}, nil
	}
}
