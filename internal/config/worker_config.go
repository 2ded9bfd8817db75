package config

import "time"

// WorkerConfig defines configuration for the external AI agent CLI.
type WorkerConfig struct {
	// Command is the worker binary name or path.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	// Args are passed before the prompt argument.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// TimeoutSecs bounds a single worker invocation.
	TimeoutSecs int `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"omitempty,min=1"`
	// Model is recorded on output rows when the worker response omits it.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// PromptTemplateFile overrides the embedded prompt template.
	PromptTemplateFile string `json:"prompt_template_file,omitempty" yaml:"prompt_template_file,omitempty" validate:"omitempty,fileexists"`
}

// NewDefaultWorkerConfig creates default worker configuration
func NewDefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Command:     DefaultWorkerCommand,
		Args:        []string{"--print", "--output-format", "text"},
		TimeoutSecs: DefaultWorkerTimeoutSecs,
		Model:       DefaultWorkerModel,
	}
}

// Timeout returns the invocation timeout as a duration.
func (wc WorkerConfig) Timeout() time.Duration {
	return time.Duration(wc.TimeoutSecs) * time.Second
}
