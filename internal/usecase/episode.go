package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"podcast-agent/internal/config"
	"podcast-agent/internal/domain"
)

// BackendFactory builds the generator for a resolved configuration.
type BackendFactory func(cfg *config.Config) (TextGenerator, error)

// EpisodeStore persists finished episodes.
type EpisodeStore interface {
	SaveEpisode(ctx context.Context, meta domain.EpisodeMetadata, turns []domain.TurnRecord) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type EpisodeInput struct {
	Overrides config.Overrides
	// Preflight runs the backend connectivity check before the session.
	Preflight bool
	// Store persists the episode; it requires a configured store.
	Store    bool
	Observer Observer
}

type EpisodeOutput struct {
	Metadata   domain.EpisodeMetadata
	Transcript domain.Transcript
	Config     *config.Config
}

// EpisodeService turns a base configuration plus per-run overrides into a
// finished episode.
type EpisodeService struct {
	base       *config.Config
	newBackend BackendFactory
	store      EpisodeStore
	logger     *zap.Logger
	now        func() time.Time
}

type EpisodeOption func(*EpisodeService)

func WithEpisodeStore(store EpisodeStore) EpisodeOption {
	return func(s *EpisodeService) {
		s.store = store
	}
}

func WithEpisodeLogger(l *zap.Logger) EpisodeOption {
	return func(s *EpisodeService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewEpisodeService(base *config.Config, newBackend BackendFactory, opts ...EpisodeOption) (*EpisodeService, error) {
	if base == nil {
		return nil, errors.New("usecase: base config must not be nil")
	}
	if newBackend == nil {
		return nil, errors.New("usecase: backend factory must not be nil")
	}
	s := &EpisodeService{
		base:       base,
		newBackend: newBackend,
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Produce runs one session. Configuration problems are CONFIGURATION_INVALID,
// a failed preflight is BACKEND_UNAVAILABLE or BACKEND_ERROR, and a failed
// store write is INTERNAL_ERROR. Backend failures during the session only
// produce empty turns.
func (s *EpisodeService) Produce(ctx context.Context, in EpisodeInput) (EpisodeOutput, error) {
	cfg := s.base.Clone()
	if err := cfg.Apply(in.Overrides); err != nil {
		return EpisodeOutput{}, NewConfigurationError("invalid_overrides", err)
	}
	registry, err := cfg.Registry()
	if err != nil {
		return EpisodeOutput{}, NewConfigurationError("invalid_scripts", err)
	}
	host, guest, params, err := SessionFromConfig(cfg)
	if err != nil {
		return EpisodeOutput{}, err
	}
	if in.Store && s.store == nil {
		return EpisodeOutput{}, NewConfigurationError("store_not_configured", nil)
	}

	gen, err := s.newBackend(cfg)
	if err != nil {
		return EpisodeOutput{}, newError(ErrorInternal, "backend_init", err)
	}
	if in.Preflight {
		if p, ok := gen.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return EpisodeOutput{}, classifyBackendError("preflight", err)
			}
		}
	}

	episodeID := newUUID()
	log := s.logger.With(zap.String("episode_id", episodeID))
	opts := []SessionOption{WithRegistry(registry), WithLogger(log)}
	if in.Observer != nil {
		opts = append(opts, WithObserver(in.Observer))
	}
	session, err := NewSession(host, guest, params, gen, opts...)
	if err != nil {
		return EpisodeOutput{}, err
	}

	transcript := session.Run(ctx)
	meta := domain.EpisodeMetadata{
		EpisodeID: episodeID,
		Host:      host.Name,
		Guest:     guest.Name,
		Theme:     params.Topic,
		Tone:      params.Tone,
		Language:  cfg.Podcast.Language,
		Duration:  domain.DurationLabel(params.TargetDurationMinutes),
		Model:     cfg.Podcast.OllamaModel,
		CreatedAt: s.now(),
	}

	if in.Store {
		if err := s.store.SaveEpisode(ctx, meta, transcript.Turns()); err != nil {
			return EpisodeOutput{}, newError(ErrorInternal, "store_episode", err)
		}
		log.Info("episode stored", zap.Int("turns", transcript.Len()))
	}

	return EpisodeOutput{Metadata: meta, Transcript: transcript, Config: cfg}, nil
}

// SessionFromConfig builds the personas and parameters of a validated
// configuration. Both personas speak the configured language.
func SessionFromConfig(cfg *config.Config) (host, guest domain.Persona, params domain.SessionParameters, err error) {
	p := cfg.Podcast
	if p.Host == nil || p.Guest == nil {
		return host, guest, params, NewConfigurationError("missing_persona", config.ErrInvalid)
	}
	host, err = domain.NewPersona(p.Host.Name, p.Host.Personality, domain.RoleHost, p.Language)
	if err != nil {
		return host, guest, params, NewConfigurationError("invalid_host", err)
	}
	guest, err = domain.NewPersona(p.Guest.Name, p.Guest.Personality, domain.RoleGuest, p.Language)
	if err != nil {
		return host, guest, params, NewConfigurationError("invalid_guest", err)
	}
	params = domain.SessionParameters{
		Topic:                 p.Theme,
		Tone:                  p.Tone,
		MaxTokensPerTurn:      p.MaxTokensPerResponse,
		TargetDurationMinutes: p.TotalPodcastDurationMinutes,
	}
	if err := params.Validate(); err != nil {
		return host, guest, params, NewConfigurationError("session_parameters", err)
	}
	return host, guest, params, nil
}

var newUUID = func() string {
	return uuid.NewString()
}
