// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Binding selects a provider model for one role.
type Binding struct {
	Provider    string  `yaml:"provider"` // openai, gemini, local
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// ModeratorSpec configures one moderator check.
type ModeratorSpec struct {
	Name      string  `yaml:"name"`
	Check     string  `yaml:"check"`               // convinced, off_topic, repetition, max_rounds
	Marker    string  `yaml:"marker,omitempty"`    // convinced: marker phrase in debater output
	Threshold float64 `yaml:"threshold,omitempty"` // off_topic / repetition score threshold
	Rounds    int     `yaml:"rounds,omitempty"`    // max_rounds: round limit (defaults to debate.max_rounds)
	UseModel  bool    `yaml:"use_model,omitempty"` // LLM-backed variant instead of rule-based
}

type Config struct {
	Models struct {
		Persuader  Binding `yaml:"persuader"`
		Debater    Binding `yaml:"debater"`
		Moderator  Binding `yaml:"moderator,omitempty"`
		Summarizer Binding `yaml:"summarizer,omitempty"`
		Helper     Binding `yaml:"helper,omitempty"`
	} `yaml:"models"`

	Debate struct {
		MaxRounds   int    `yaml:"max_rounds"`
		TurnDelayMS int    `yaml:"turn_delay_ms"`
		Helper      string `yaml:"helper"` // none, vanilla, fallacy
	} `yaml:"debate"`

	Memory struct {
		TokenBudget      int  `yaml:"token_budget"`
		SummarizeTrigger int  `yaml:"summarize_trigger"` // turn count that arms summarization
		KeepRecent       int  `yaml:"keep_recent"`
		Summarize        bool `yaml:"summarize"`
	} `yaml:"memory"`

	Moderators []ModeratorSpec `yaml:"moderators"`

	Termination struct {
		// Priority is the ordered list of conditions evaluated after each
		// round: convinced, hard_stop, max_rounds.
		Priority []string `yaml:"priority"`
	} `yaml:"termination"`

	Retry struct {
		Attempts   int `yaml:"attempts"`
		DelayMS    int `yaml:"delay_ms"`
		TimeoutSec int `yaml:"timeout_sec"`
	} `yaml:"retry"`

	Export struct {
		Dir      string `yaml:"dir"`
		Summary  string `yaml:"summary"` // central xlsx path
		Markdown bool   `yaml:"markdown"`
		JSON     bool   `yaml:"json"`
	} `yaml:"export"`

	Store struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"store"`

	Events struct {
		Webhook string `yaml:"webhook,omitempty"`
	} `yaml:"events"`
}

// ConfigurationError reports an invalid or missing setting. Debates never
// start with one of these outstanding.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads a YAML config file, expanding environment variables so API
// keys can be referenced as ${OPENAI_API_KEY}.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with every default applied and no model
// bindings. Callers must still fill in bindings before Validate passes.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset values.
func ApplyDefaults(cfg *Config) {
	if cfg.Debate.MaxRounds == 0 {
		cfg.Debate.MaxRounds = 8
	}
	if cfg.Debate.Helper == "" {
		cfg.Debate.Helper = "none"
	}
	if cfg.Memory.TokenBudget == 0 {
		cfg.Memory.TokenBudget = 3000
	}
	if cfg.Memory.SummarizeTrigger == 0 {
		cfg.Memory.SummarizeTrigger = 12
	}
	if cfg.Memory.KeepRecent == 0 {
		cfg.Memory.KeepRecent = 4
	}
	if len(cfg.Termination.Priority) == 0 {
		cfg.Termination.Priority = []string{"convinced", "hard_stop", "max_rounds"}
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry.Attempts = 3
	}
	if cfg.Retry.DelayMS == 0 {
		cfg.Retry.DelayMS = 1000
	}
	if cfg.Retry.TimeoutSec == 0 {
		cfg.Retry.TimeoutSec = 60
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "debates"
	}
	if cfg.Export.Summary == "" {
		cfg.Export.Summary = "all_debates_summary.xlsx"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "debates.db"
	}
}

var validChecks = map[string]bool{
	"convinced":  true,
	"off_topic":  true,
	"repetition": true,
	"max_rounds": true,
}

// HelperTypes returns the recognized helper pass types, in display order.
func HelperTypes() []string {
	return []string{"none", "vanilla", "fallacy"}
}

var validHelpers = map[string]bool{
	"none":    true,
	"vanilla": true,
	"fallacy": true,
}

var validPriorities = map[string]bool{
	"convinced":  true,
	"hard_stop":  true,
	"max_rounds": true,
}

// Validate fails fast on settings that would leave a debate unable to run.
func (cfg *Config) Validate() error {
	if err := validateBinding("models.persuader", cfg.Models.Persuader); err != nil {
		return err
	}
	if err := validateBinding("models.debater", cfg.Models.Debater); err != nil {
		return err
	}
	if cfg.Debate.MaxRounds < 1 {
		return &ConfigurationError{Field: "debate.max_rounds", Reason: "must be at least 1"}
	}
	if !validHelpers[cfg.Debate.Helper] {
		return &ConfigurationError{Field: "debate.helper", Reason: fmt.Sprintf("unknown helper type %q", cfg.Debate.Helper)}
	}
	if cfg.Debate.Helper != "none" && cfg.Models.Helper.Provider == "" {
		return &ConfigurationError{Field: "models.helper", Reason: "helper enabled but no helper model bound"}
	}
	if cfg.Memory.Summarize && cfg.Models.Summarizer.Provider == "" {
		return &ConfigurationError{Field: "models.summarizer", Reason: "summarization enabled but no summarizer model bound"}
	}
	for i, spec := range cfg.Moderators {
		if spec.Name == "" {
			return &ConfigurationError{Field: fmt.Sprintf("moderators[%d].name", i), Reason: "missing name"}
		}
		if !validChecks[spec.Check] {
			return &ConfigurationError{Field: fmt.Sprintf("moderators[%d].check", i), Reason: fmt.Sprintf("unknown check type %q", spec.Check)}
		}
		if spec.UseModel && cfg.Models.Moderator.Provider == "" {
			return &ConfigurationError{Field: "models.moderator", Reason: fmt.Sprintf("moderator %q is model-backed but no moderator model bound", spec.Name)}
		}
	}
	for i, p := range cfg.Termination.Priority {
		if !validPriorities[p] {
			return &ConfigurationError{Field: fmt.Sprintf("termination.priority[%d]", i), Reason: fmt.Sprintf("unknown condition %q", p)}
		}
	}
	return nil
}

func validateBinding(field string, b Binding) error {
	if b.Provider == "" {
		return &ConfigurationError{Field: field, Reason: "missing role binding"}
	}
	switch b.Provider {
	case "openai", "gemini", "local":
	default:
		return &ConfigurationError{Field: field + ".provider", Reason: fmt.Sprintf("unknown provider %q", b.Provider)}
	}
	if b.Model == "" {
		return &ConfigurationError{Field: field + ".model", Reason: "missing model name"}
	}
	return nil
}

// TurnDelay returns the configured inter-turn delay.
func (cfg *Config) TurnDelay() time.Duration {
	return time.Duration(cfg.Debate.TurnDelayMS) * time.Millisecond
}

// RetryDelay returns the configured base retry delay.
func (cfg *Config) RetryDelay() time.Duration {
	return time.Duration(cfg.Retry.DelayMS) * time.Millisecond
}

// RequestTimeout returns the per-request timeout.
func (cfg *Config) RequestTimeout() time.Duration {
	return time.Duration(cfg.Retry.TimeoutSec) * time.Second
}
