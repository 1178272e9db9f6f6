package app

import "errors"

// Config holds everything an App instance needs to run one workflow.
type Config struct {
	WorkflowPath string // path to a single .hcl workflow file

	// Strategy overrides the workflow file's strategy when non-empty.
	Strategy string
	// WorkerCount bounds the concurrent strategies' pools; zero defers to
	// the workflow file or the executor default.
	WorkerCount int

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
