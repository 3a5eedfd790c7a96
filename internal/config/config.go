package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"kairo/internal/types"
)

// Config holds all kairo configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Classifier   ClassifierConfig   `yaml:"classifier"`
	Planner      PlannerConfig      `yaml:"planner"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Feedback     FeedbackConfig     `yaml:"feedback"`
	Tuner        TunerConfig        `yaml:"tuner"`
	Rules        RulesConfig        `yaml:"rules"`

	// Per-domain profiles keyed by domain name
	Domains map[string]DomainProfile `yaml:"domains"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ClassifierConfig holds the classifier thresholds.
type ClassifierConfig struct {
	ConfidenceBonus        int `yaml:"confidence_bonus"`        // added when exactly one domain is dominant
	DominantThreshold      int `yaml:"dominant_threshold"`      // score counted as dominant (default 80)
	MultiDomainThreshold   int `yaml:"multi_domain_threshold"`  // score qualifying for multi-domain (default 75)
	MultiDomainGap         int `yaml:"multi_domain_gap"`        // max gap between neighbouring qualifiers (default 20)
	SupportingThreshold    int `yaml:"supporting_threshold"`    // min score for a supporting domain (default 65)
	ComprehensiveThreshold int `yaml:"comprehensive_threshold"` // min score boosted on comprehensive requests (default 60)
	ComprehensiveBoost     int `yaml:"comprehensive_boost"`
}

// PlannerConfig holds the activation planner settings.
type PlannerConfig struct {
	MinPrimaryConfidence   int      `yaml:"min_primary_confidence"`
	HighPriorityConfidence int      `yaml:"high_priority_confidence"`
	BlankURLs              []string `yaml:"blank_urls"`
}

// OrchestratorConfig bounds the fan-out.
type OrchestratorConfig struct {
	// MaxConcurrency caps in-flight domain invocations; 0 means unbounded.
	MaxConcurrency int `yaml:"max_concurrency"`
}

// FeedbackConfig configures the feedback log and the async recorder.
type FeedbackConfig struct {
	Backend      string `yaml:"backend"` // sqlite | memory
	DatabasePath string `yaml:"database_path"`
	BufferSize   int    `yaml:"buffer_size"`
}

// RulesConfig points at an optional rule-table file.
type RulesConfig struct {
	Path     string `yaml:"path"`
	Watch    bool   `yaml:"watch"`
	Debounce string `yaml:"debounce"`
	// PersistWeights stores tuned weights alongside the feedback log.
	PersistWeights bool `yaml:"persist_weights"`
}

// DefaultBlankURLs are URLs the page-safety rule treats as "no page".
var DefaultBlankURLs = []string{
	"about:blank",
	"about:newtab",
	"chrome://newtab/",
	"edge://newtab/",
	"kairo://start",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "kairo",
		Version: "0.3.0",

		Classifier: ClassifierConfig{
			ConfidenceBonus:        10,
			DominantThreshold:      80,
			MultiDomainThreshold:   75,
			MultiDomainGap:         20,
			SupportingThreshold:    65,
			ComprehensiveThreshold: 60,
			ComprehensiveBoost:     10,
		},

		Planner: PlannerConfig{
			MinPrimaryConfidence:   40,
			HighPriorityConfidence: 90,
			BlankURLs:              append([]string(nil), DefaultBlankURLs...),
		},

		Orchestrator: OrchestratorConfig{
			MaxConcurrency: 8,
		},

		Feedback: FeedbackConfig{
			Backend:      "sqlite",
			DatabasePath: "data/kairo.db",
			BufferSize:   256,
		},

		Tuner: DefaultTunerConfig(),

		Rules: RulesConfig{
			Debounce:       "250ms",
			PersistWeights: true,
		},

		Domains: DefaultDomainProfiles(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("KAIRO_DB"); path != "" {
		c.Feedback.DatabasePath = path
		if path == ":memory:" {
			c.Feedback.Backend = "memory"
		}
	}
	if path := os.Getenv("KAIRO_RULES"); path != "" {
		c.Rules.Path = path
	}
	if lvl := os.Getenv("KAIRO_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
		c.Logging.Enabled = true
	}
	if raw := os.Getenv("KAIRO_MAX_CONCURRENCY"); raw != "" {
		// ignore garbage rather than fail startup
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			c.Orchestrator.MaxConcurrency = n
		}
	}
}

// GetTunerInterval returns the tuner interval as a duration.
func (c *Config) GetTunerInterval() time.Duration {
	d, err := time.ParseDuration(c.Tuner.Interval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// GetRulesDebounce returns the rule watcher debounce as a duration.
func (c *Config) GetRulesDebounce() time.Duration {
	d, err := time.ParseDuration(c.Rules.Debounce)
	if err != nil || d < 0 {
		return 250 * time.Millisecond
	}
	return d
}

// ValidBackends lists the supported feedback log backends.
var ValidBackends = []string{"sqlite", "memory"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	cl := c.Classifier
	for name, v := range map[string]int{
		"dominant_threshold":      cl.DominantThreshold,
		"multi_domain_threshold":  cl.MultiDomainThreshold,
		"supporting_threshold":    cl.SupportingThreshold,
		"comprehensive_threshold": cl.ComprehensiveThreshold,
	} {
		if v < types.MinScore || v > types.MaxScore {
			return fmt.Errorf("classifier.%s must be within [%d,%d], got %d", name, types.MinScore, types.MaxScore, v)
		}
	}
	if cl.MultiDomainGap < 0 || cl.ConfidenceBonus < 0 || cl.ComprehensiveBoost < 0 {
		return fmt.Errorf("classifier bonuses and gaps must be non-negative")
	}

	if c.Orchestrator.MaxConcurrency < 0 {
		return fmt.Errorf("orchestrator.max_concurrency must be >= 0, got %d", c.Orchestrator.MaxConcurrency)
	}

	validBackend := false
	for _, b := range ValidBackends {
		if c.Feedback.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid feedback backend: %s (valid: %v)", c.Feedback.Backend, ValidBackends)
	}
	if c.Feedback.BufferSize <= 0 {
		return fmt.Errorf("feedback.buffer_size must be positive, got %d", c.Feedback.BufferSize)
	}

	if err := c.Tuner.Validate(); err != nil {
		return err
	}

	for name := range c.Domains {
		if _, err := types.ParseDomain(name); err != nil {
			return fmt.Errorf("domains: %w", err)
		}
	}

	return nil
}
