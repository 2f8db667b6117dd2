package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SSMPrefix selects Parameter Store as the document source.
const SSMPrefix = "ssm:"

// ParamGetter reads a single parameter value.
type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Source tells where the loaded document came from.
type Source struct {
	Kind string // "file", "ssm", "inputs" or "default"
	Name string
}

// Loader resolves, parses and validates the configuration.
type Loader struct {
	configPath string
	inputsDir  string
	params     ParamGetter
	lookupEnv  func(string) (string, bool)
}

// NewLoader returns a loader reading inputs/ and the process environment.
func NewLoader() *Loader {
	return &Loader{
		inputsDir: "inputs",
		lookupEnv: os.LookupEnv,
	}
}

func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = strings.TrimSpace(path)
	return l
}

func (l *Loader) WithInputsDir(dir string) *Loader {
	l.inputsDir = dir
	return l
}

// WithParamGetter enables "ssm:" config paths.
func (l *Loader) WithParamGetter(p ParamGetter) *Loader {
	l.params = p
	return l
}

func (l *Loader) WithLookupEnv(fn func(string) (string, bool)) *Loader {
	l.lookupEnv = fn
	return l
}

// Load resolves the document, applies environment overrides and validates.
func (l *Loader) Load(ctx context.Context) (*Config, Source, error) {
	raw, src, err := l.resolve(ctx)
	if err != nil {
		return nil, Source{}, err
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, src, fmt.Errorf("config: parse %s %s: %w", src.Kind, src.Name, err)
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, src, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, src, err
	}
	return cfg, src, nil
}

// Parse decodes a YAML document without validating it.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := Parse(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("config: embedded default is invalid: %v", err))
	}
	return cfg
}

func (l *Loader) resolve(ctx context.Context) ([]byte, Source, error) {
	if name, ok := strings.CutPrefix(l.configPath, SSMPrefix); ok {
		if l.params == nil {
			return nil, Source{}, errors.New("config: ssm config path given but no parameter store is configured")
		}
		value, err := l.params.GetParameter(ctx, name)
		if err != nil {
			return nil, Source{}, fmt.Errorf("config: read %s: %w", l.configPath, err)
		}
		return []byte(value), Source{Kind: "ssm", Name: name}, nil
	}

	if l.configPath != "" {
		raw, err := os.ReadFile(l.configPath)
		if err == nil {
			return raw, Source{Kind: "file", Name: l.configPath}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, Source{}, fmt.Errorf("config: read %s: %w", l.configPath, err)
		}
	}

	latest, err := LatestInput(l.inputsDir)
	if err != nil {
		return nil, Source{}, err
	}
	if latest != "" {
		raw, err := os.ReadFile(latest)
		if err != nil {
			return nil, Source{}, fmt.Errorf("config: read %s: %w", latest, err)
		}
		return raw, Source{Kind: "inputs", Name: filepath.Base(latest)}, nil
	}

	return defaultConfig, Source{Kind: "default", Name: "default_config.yaml"}, nil
}

// LatestInput returns the most recently modified *.yaml or *.yml file in dir,
// or "" when there is none.
func LatestInput(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: list %s: %w", dir, err)
	}

	var latest string
	var latestMod int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", fmt.Errorf("config: stat %s: %w", e.Name(), err)
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest = filepath.Join(dir, e.Name())
			latestMod = mod
		}
	}
	return latest, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"PODCAST_LANGUAGE", &cfg.Podcast.Language},
		{"PODCAST_THEME", &cfg.Podcast.Theme},
		{"PODCAST_TONE", &cfg.Podcast.Tone},
		{"PODCAST_MODEL", &cfg.Podcast.OllamaModel},
		{"PODCAST_OUTPUT_FORMAT", &cfg.Podcast.OutputFormat},
		{"PODCAST_BACKEND_PROVIDER", &cfg.Backend.Provider},
		{"PODCAST_BACKEND_URL", &cfg.Backend.BaseURL},
		{"PODCAST_LOG_LEVEL", &cfg.Log.Level},
		{"PODCAST_LOG_FORMAT", &cfg.Log.Format},
		{"PODCAST_DYNAMODB_TABLE", &cfg.Storage.DynamoDBTable},
	}
	for _, s := range strs {
		if v, ok := l.env(s.key); ok {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PODCAST_MAX_TOKENS", &cfg.Podcast.MaxTokensPerResponse},
		{"PODCAST_DURATION_MINUTES", &cfg.Podcast.TotalPodcastDurationMinutes},
	}
	for _, i := range ints {
		v, ok := l.env(i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: invalid %s value %q: %v", ErrInvalid, i.key, v, err)
		}
		*i.dst = n
	}
	return nil
}

func (l *Loader) env(key string) (string, bool) {
	if l.lookupEnv == nil {
		return "", false
	}
	v, ok := l.lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
