// Package config loads and validates the podcast configuration document.
//
// Resolution order for the document: an explicit path (or "ssm:<name>" to
// read it from Parameter Store), then the newest YAML file in the inputs
// directory, then the embedded default. PODCAST_* environment variables are
// applied on top and the result is validated.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"
)

//go:embed default_config.yaml
var defaultConfig []byte

// ErrInvalid marks a configuration that cannot start a session.
var ErrInvalid = errors.New("config: invalid configuration")

const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	Podcast PodcastConfig           `yaml:"podcast_config"`
	Backend BackendConfig           `yaml:"backend"`
	Scripts map[string]ScriptConfig `yaml:"scripts"`
	Log     LogConfig               `yaml:"log"`
	Storage StorageConfig           `yaml:"storage"`
}

type PodcastConfig struct {
	Host                        *AgentConfig `yaml:"host"`
	Guest                       *AgentConfig `yaml:"guest"`
	Language                    string       `yaml:"language"`
	Theme                       string       `yaml:"theme"`
	Tone                        string       `yaml:"tone"`
	MaxTokensPerResponse        int          `yaml:"max_tokens_per_response"`
	TotalPodcastDurationMinutes int          `yaml:"total_podcast_duration_minutes"`
	OllamaModel                 string       `yaml:"ollama_model"`
	OutputFormat                string       `yaml:"output_format"`
	OutputFile                  string       `yaml:"output_file"`
}

type AgentConfig struct {
	Name        string `yaml:"name"`
	Personality string `yaml:"personality"`
}

type BackendConfig struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	// APIKeyEnv names the environment variable holding the OpenAI key.
	APIKeyEnv string `yaml:"api_key_env"`
	// APIKeyParam is an SSM parameter holding {"token": "..."}.
	APIKeyParam string `yaml:"api_key_param"`
}

// ScriptConfig registers the script a language must be written in.
type ScriptConfig struct {
	Script string    `yaml:"script"`
	Ranges [][2]rune `yaml:"ranges"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StorageConfig struct {
	DynamoDBTable string `yaml:"dynamodb_table"`
}

// Validate reports the first problem found, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	if err := c.Podcast.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Backend.Provider) {
	case "", ProviderOllama, ProviderOpenAI:
	default:
		return invalid("backend.provider %q is not supported", c.Backend.Provider)
	}
	for name, s := range c.Scripts {
		if strings.TrimSpace(s.Script) == "" || len(s.Ranges) == 0 {
			return invalid("scripts.%s must include script and ranges", name)
		}
	}
	return nil
}

// Validate checks the podcast_config section.
func (p *PodcastConfig) Validate() error {
	required := []struct {
		name    string
		present bool
	}{
		{"host", p.Host != nil},
		{"guest", p.Guest != nil},
		{"language", strings.TrimSpace(p.Language) != ""},
		{"tone", strings.TrimSpace(p.Tone) != ""},
		{"theme", strings.TrimSpace(p.Theme) != ""},
		{"max_tokens_per_response", p.MaxTokensPerResponse != 0},
		{"total_podcast_duration_minutes", p.TotalPodcastDurationMinutes != 0},
		{"ollama_model", strings.TrimSpace(p.OllamaModel) != ""},
	}
	for _, field := range required {
		if !field.present {
			return invalid("missing required configuration field: podcast_config.%s", field.name)
		}
	}

	for _, agent := range []struct {
		kind string
		cfg  *AgentConfig
	}{{"host", p.Host}, {"guest", p.Guest}} {
		if strings.TrimSpace(agent.cfg.Name) == "" || strings.TrimSpace(agent.cfg.Personality) == "" {
			return invalid("invalid %s configuration: must include name and personality", agent.kind)
		}
	}

	if p.MaxTokensPerResponse < 0 {
		return invalid("podcast_config.max_tokens_per_response must be positive, got %d", p.MaxTokensPerResponse)
	}
	if p.TotalPodcastDurationMinutes < 0 {
		return invalid("podcast_config.total_podcast_duration_minutes must be positive, got %d", p.TotalPodcastDurationMinutes)
	}
	switch p.OutputFormat {
	case "", FormatJSON, FormatMarkdown:
	default:
		return invalid("podcast_config.output_format must be %s or %s, got %q", FormatJSON, FormatMarkdown, p.OutputFormat)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Overrides are CLI or request values applied over a loaded document. Empty
// fields leave the document untouched.
type Overrides struct {
	Host         string
	Guest        string
	Theme        string
	Tone         string
	Duration     int
	Model        string
	OutputFormat string
	OutputFile   string
}

// Apply copies non-empty overrides into the podcast section and revalidates.
func (c *Config) Apply(o Overrides) error {
	p := &c.Podcast
	if o.Host != "" {
		if p.Host == nil {
			p.Host = &AgentConfig{}
		}
		p.Host.Name = o.Host
	}
	if o.Guest != "" {
		if p.Guest == nil {
			p.Guest = &AgentConfig{}
		}
		p.Guest.Name = o.Guest
	}
	if o.Theme != "" {
		p.Theme = o.Theme
	}
	if o.Tone != "" {
		p.Tone = o.Tone
	}
	if o.Duration != 0 {
		p.TotalPodcastDurationMinutes = o.Duration
	}
	if o.Model != "" {
		p.OllamaModel = o.Model
	}
	if o.OutputFormat != "" {
		p.OutputFormat = o.OutputFormat
	}
	if o.OutputFile != "" {
		p.OutputFile = o.OutputFile
	}
	return c.Validate()
}

// Clone returns a deep copy so request-scoped overrides never leak into a
// shared base configuration.
func (c *Config) Clone() *Config {
	out := *c
	if c.Podcast.Host != nil {
		h := *c.Podcast.Host
		out.Podcast.Host = &h
	}
	if c.Podcast.Guest != nil {
		g := *c.Podcast.Guest
		out.Podcast.Guest = &g
	}
	if c.Scripts != nil {
		out.Scripts = make(map[string]ScriptConfig, len(c.Scripts))
		for k, v := range c.Scripts {
			out.Scripts[k] = v
		}
	}
	return &out
}
