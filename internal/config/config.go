package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration for one run. The YAML file
// supplies everything except logging, which comes from the environment.
type Config struct {
	DataSources DataSources   `yaml:"data_sources"`
	LLM         LLMConfig     `yaml:"llm"`
	Posting     PostingConfig `yaml:"posting"`
	Persona     string        `yaml:"persona"`

	Logging LoggingConfig `yaml:"-"`
}

// DataSources enumerates every supported activity provider. Providers
// form a closed set; adding one means adding a field here and an
// adapter in internal/sources.
type DataSources struct {
	GitHub GitHubSource `yaml:"github"`
	Garmin GarminSource `yaml:"garmin"`
}

// GitHubSource configures the commit-event provider.
type GitHubSource struct {
	Enabled        bool   `yaml:"enabled"`
	UsernameEnvVar string `yaml:"username_env_var"`
	PATEnvVar      string `yaml:"pat_env_var"`
	ActivityFormat string `yaml:"activity_format"`
}

// GarminSource configures the fitness provider. DailySummary enables
// a fallback daily-totals post on days with no recorded workout.
type GarminSource struct {
	Enabled        bool   `yaml:"enabled"`
	UsernameEnvVar string `yaml:"username_env_var"`
	PasswordEnvVar string `yaml:"password_env_var"`
	ActivityFormat string `yaml:"activity_format"`
	DailySummary   bool   `yaml:"daily_summary"`
}

// LLMConfig holds the model name and prompt templates. SourcePrompts is
// keyed by prompt-selection key; FollowUpPrompts holds reply templates
// and is nested under source_prompts in the file.
type LLMConfig struct {
	Model                 string
	DefaultPromptTemplate string
	SourcePrompts         map[string]string
	FollowUpPrompts       map[string]string
}

// UnmarshalYAML splits the nested follow_up_prompts map out of
// source_prompts so both end up as flat template lookups.
func (c *LLMConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Model                 string               `yaml:"model"`
		DefaultPromptTemplate string               `yaml:"default_prompt_template"`
		SourcePrompts         map[string]yaml.Node `yaml:"source_prompts"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.Model = raw.Model
	c.DefaultPromptTemplate = raw.DefaultPromptTemplate
	c.SourcePrompts = make(map[string]string)
	c.FollowUpPrompts = make(map[string]string)

	for key, node := range raw.SourcePrompts {
		if key == "follow_up_prompts" {
			if err := node.Decode(&c.FollowUpPrompts); err != nil {
				return fmt.Errorf("decode follow_up_prompts: %w", err)
			}
			continue
		}
		var tpl string
		if err := node.Decode(&tpl); err != nil {
			return fmt.Errorf("decode source prompt %q: %w", key, err)
		}
		c.SourcePrompts[key] = tpl
	}

	return nil
}

// PostingConfig governs the posting loop.
type PostingConfig struct {
	MaxPostsPerRun       int     `yaml:"max_posts_per_run"`
	SleepBetweenPosts    int     `yaml:"sleep_between_posts"` // seconds
	StartDelayMaxSeconds int     `yaml:"start_delay_max_seconds"`
	Targets              Targets `yaml:"targets"`
}

// SleepDuration returns the configured inter-post delay.
func (p PostingConfig) SleepDuration() time.Duration {
	return time.Duration(p.SleepBetweenPosts) * time.Second
}

// Targets enumerates every supported posting platform.
type Targets struct {
	Twitter TwitterTarget `yaml:"twitter"`
}

// TwitterTarget configures posting to X/Twitter. Credentials are
// indirected through environment variable names, never stored inline.
type TwitterTarget struct {
	Enabled                 bool   `yaml:"enabled"`
	APIKeyEnvVar            string `yaml:"api_key_env_var"`
	APISecretEnvVar         string `yaml:"api_secret_env_var"`
	AccessTokenEnvVar       string `yaml:"access_token_env_var"`
	AccessTokenSecretEnvVar string `yaml:"access_token_secret_env_var"`
	EnableFollowUp          bool   `yaml:"enable_follow_up"`
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

const (
	defaultMaxPostsPerRun    = 1
	defaultSleepBetweenPosts = 10 // seconds

	defaultGitHubFormat = "- Repo {repo}: {message}"
	defaultGarminFormat = "- Did a {distance} km {activity_type} workout."

	defaultPersona = "A developer sharing their journey."

	defaultLogFormat = "json"
)

// Load reads the YAML configuration file, applies defaults, and pulls
// logging settings from the environment. A missing or unparseable file
// is the only error this returns; incomplete content is reported by
// Warnings instead.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if cfg.Posting.MaxPostsPerRun <= 0 {
		cfg.Posting.MaxPostsPerRun = defaultMaxPostsPerRun
	}
	if cfg.Posting.SleepBetweenPosts <= 0 {
		cfg.Posting.SleepBetweenPosts = defaultSleepBetweenPosts
	}
	if cfg.DataSources.GitHub.ActivityFormat == "" {
		cfg.DataSources.GitHub.ActivityFormat = defaultGitHubFormat
	}
	if cfg.DataSources.Garmin.ActivityFormat == "" {
		cfg.DataSources.Garmin.ActivityFormat = defaultGarminFormat
	}
	if cfg.Persona == "" {
		cfg.Persona = defaultPersona
	}

	logging, err := loggingFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.Logging = logging

	return cfg, nil
}

// Warnings reports incomplete but non-fatal configuration; a missing
// top-level section produces one warning each.
func (c Config) Warnings() []string {
	var warnings []string
	if !c.DataSources.GitHub.Enabled && !c.DataSources.Garmin.Enabled {
		warnings = append(warnings, "no data_sources are enabled; nothing will be fetched")
	}
	if c.LLM.Model == "" && c.LLM.DefaultPromptTemplate == "" && len(c.LLM.SourcePrompts) == 0 {
		warnings = append(warnings, "llm section is missing or empty; nothing will be generated")
	}
	if c.Posting.Targets == (Targets{}) {
		warnings = append(warnings, "posting section has no targets; nothing will be posted")
	}
	return warnings
}

func loggingFromEnv() (LoggingConfig, error) {
	cfg := LoggingConfig{
		Level:  slog.LevelInfo,
		Format: defaultLogFormat,
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return LoggingConfig{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Format = v
		default:
			return LoggingConfig{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
