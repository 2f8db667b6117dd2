package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"podcast-agent/internal/domain"
	"podcast-agent/internal/language"
)

// TextGenerator is the text-generation backend. A failed call is reported
// through the error and never aborts a session.
type TextGenerator interface {
	Generate(ctx context.Context, userInstruction, systemInstruction string, maxTokens int) (string, error)
}

// Observer is notified after every appended turn. index is zero-based and
// total is the transcript length the session will end with.
type Observer interface {
	TurnAppended(turn domain.TurnRecord, index, total int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(turn domain.TurnRecord, index, total int)

func (f ObserverFunc) TurnAppended(turn domain.TurnRecord, index, total int) {
	f(turn, index, total)
}

type sessionState int

const (
	stateNotStarted sessionState = iota
	stateOpening
	stateAlternating
	stateClosing
	stateDone
)

func (s sessionState) String() string {
	switch s {
	case stateNotStarted:
		return "not_started"
	case stateOpening:
		return "opening"
	case stateAlternating:
		return "alternating"
	case stateClosing:
		return "closing"
	default:
		return "done"
	}
}

// Session runs one scripted dialogue between a host and a guest.
//
// Turns are generated strictly one after another; every prompt depends on the
// previously appended turn. The session sets no timeout of its own, so a
// backend call that never returns blocks Run.
type Session struct {
	host     domain.Persona
	guest    domain.Persona
	params   domain.SessionParameters
	gen      TextGenerator
	registry *language.Registry
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
	budget   int

	hostChecker  *language.Checker
	guestChecker *language.Checker
	hostSystem   string
	guestSystem  string
}

type SessionOption func(*Session)

func WithObserver(o Observer) SessionOption {
	return func(s *Session) {
		s.observer = o
	}
}

func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry replaces the default language registry.
func WithRegistry(r *language.Registry) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.registry = r
		}
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession validates the participants and parameters and computes the
// exchange budget once.
func NewSession(host, guest domain.Persona, params domain.SessionParameters, gen TextGenerator, opts ...SessionOption) (*Session, error) {
	if gen == nil {
		return nil, errors.New("usecase: text generator must not be nil")
	}
	if host.Role != domain.RoleHost {
		return nil, NewConfigurationError("host_role", errors.New("usecase: host persona must have the host role"))
	}
	if guest.Role != domain.RoleGuest {
		return nil, NewConfigurationError("guest_role", errors.New("usecase: guest persona must have the guest role"))
	}
	if err := params.Validate(); err != nil {
		return nil, NewConfigurationError("session_parameters", err)
	}

	s := &Session{
		host:     host,
		guest:    guest,
		params:   params,
		gen:      gen,
		registry: language.DefaultRegistry(),
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		budget:   ComputeExchangeBudget(params.TargetDurationMinutes, params.MaxTokensPerTurn),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hostChecker = language.NewChecker(s.registry, host.Language)
	s.guestChecker = language.NewChecker(s.registry, guest.Language)
	s.hostSystem = SystemInstruction(host, s.registry)
	s.guestSystem = SystemInstruction(guest, s.registry)
	return s, nil
}

// Budget is the number of exchanges the session produces.
func (s *Session) Budget() int {
	return s.budget
}

// Run produces the complete transcript. Backend failures turn into empty
// turns; Run always returns ExpectedTurnCount(Budget()) turns.
func (s *Session) Run(ctx context.Context) domain.Transcript {
	total := ExpectedTurnCount(s.budget)
	var transcript domain.Transcript

	s.logger.Info("starting podcast session",
		zap.String("host", s.host.Name),
		zap.String("guest", s.guest.Name),
		zap.String("topic", s.params.Topic),
		zap.Int("exchanges", s.budget),
		zap.Int("turns", total),
	)

	state := stateNotStarted
	for state != stateDone {
		switch state {
		case stateNotStarted:
			state = stateOpening

		case stateOpening:
			s.hostTurn(ctx, &transcript, total, true)
			state = stateAlternating

		case stateAlternating:
			for i := 0; i < s.budget-1; i++ {
				s.guestTurn(ctx, &transcript, total)
				if i < s.budget-2 {
					s.hostTurn(ctx, &transcript, total, false)
				}
			}
			state = stateClosing

		case stateClosing:
			s.closingTurn(ctx, &transcript, total)
			state = stateDone
		}
		s.logger.Debug("session state", zap.Stringer("state", state), zap.Int("turns", transcript.Len()))
	}

	return transcript
}

func (s *Session) request(transcript *domain.Transcript, counterpart string, opening bool) TurnRequest {
	return TurnRequest{
		Context:     transcript.Last(ContextWindowTurns),
		Topic:       s.params.Topic,
		Tone:        s.params.Tone,
		Counterpart: counterpart,
		Opening:     opening,
	}
}

func (s *Session) hostTurn(ctx context.Context, transcript *domain.Transcript, total int, opening bool) {
	req := s.request(transcript, s.guest.Name, opening)
	s.step(ctx, transcript, total, s.host, s.hostChecker, UserInstruction(s.host, req), s.hostSystem)
}

func (s *Session) guestTurn(ctx context.Context, transcript *domain.Transcript, total int) {
	req := s.request(transcript, s.host.Name, false)
	s.step(ctx, transcript, total, s.guest, s.guestChecker, UserInstruction(s.guest, req), s.guestSystem)
}

func (s *Session) closingTurn(ctx context.Context, transcript *domain.Transcript, total int) {
	req := s.request(transcript, s.guest.Name, false)
	s.step(ctx, transcript, total, s.host, s.hostChecker, ClosingInstruction(s.host, req), s.hostSystem)
}

// step is one unit of work: generate, enforce the language, append, notify.
func (s *Session) step(ctx context.Context, transcript *domain.Transcript, total int, speaker domain.Persona, checker *language.Checker, user, system string) {
	log := s.logger.With(zap.String("speaker", speaker.Name), zap.Int("index", transcript.Len()))

	text, err := s.gen.Generate(ctx, user, system, s.params.MaxTokensPerTurn)
	if err != nil {
		classified := classifyBackendError("generate_"+string(speaker.Role), err)
		log.Warn("generation failed, using empty turn",
			zap.String("code", string(classified.Code)),
			zap.String("reason", classified.Reason),
			zap.Error(err),
		)
		text = ""
	}

	corrected, err := checker.Enforce(ctx, text, s.gen, s.params.MaxTokensPerTurn)
	if err != nil {
		log.Warn("language correction failed",
			zap.String("code", string(ErrorComplianceCorrectionFailed)),
			zap.Error(err),
		)
	}
	if corrected != text {
		log.Debug("turn translated to target script", zap.String("language", speaker.Language))
	}

	turn := domain.TurnRecord{Speaker: speaker.Name, Text: corrected, CreatedAt: s.now()}
	transcript.Append(turn)
	if turn.Text == "" {
		log.Warn("appended empty turn")
	} else {
		log.Info("turn appended", zap.Int("chars", len([]rune(turn.Text))))
	}
	if s.observer != nil {
		s.observer.TurnAppended(turn, transcript.Len()-1, total)
	}
}
