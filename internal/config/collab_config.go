package config

import "time"

// CollabConfig defines configuration for the upstream SaaS collaborator API.
// Both operations (token deduction, notification enqueue) are fire-and-forget;
// an empty base URL disables the client entirely.
type CollabConfig struct {
	APIBaseURL  string `json:"api_base_url,omitempty" yaml:"api_base_url,omitempty" validate:"omitempty,url"`
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	TimeoutSecs int    `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultCollabConfig creates default collaborator configuration
func NewDefaultCollabConfig() CollabConfig {
	return CollabConfig{
		TimeoutSecs: DefaultCollabTimeoutSecs,
	}
}

// Enabled reports whether the collaborator client should be constructed.
func (cc CollabConfig) Enabled() bool {
	return cc.APIBaseURL != ""
}

// Timeout returns the request timeout as a duration.
func (cc CollabConfig) Timeout() time.Duration {
	return time.Duration(cc.TimeoutSecs) * time.Second
}
