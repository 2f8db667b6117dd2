package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role selects which prompt variant a persona speaks with.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Persona is one participant of the dialogue. It is a value type and is not
// mutated after construction.
type Persona struct {
	Name        string
	Personality string
	Role        Role
	Language    string
}

// NewPersona trims and validates the persona fields.
func NewPersona(name, personality string, role Role, language string) (Persona, error) {
	p := Persona{
		Name:        strings.TrimSpace(name),
		Personality: strings.TrimSpace(personality),
		Role:        role,
		Language:    strings.TrimSpace(language),
	}
	if p.Name == "" {
		return Persona{}, errors.New("domain: persona name must not be empty")
	}
	if p.Personality == "" {
		return Persona{}, fmt.Errorf("domain: persona %q must have a personality", p.Name)
	}
	if role != RoleHost && role != RoleGuest {
		return Persona{}, fmt.Errorf("domain: unknown persona role %q", role)
	}
	if p.Language == "" {
		return Persona{}, fmt.Errorf("domain: persona %q must have a language", p.Name)
	}
	return p, nil
}

// SessionParameters is the read-only input of one dialogue session.
type SessionParameters struct {
	Topic                 string
	Tone                  string
	MaxTokensPerTurn      int
	TargetDurationMinutes int
}

// Validate checks that both integer budgets are positive.
func (p SessionParameters) Validate() error {
	if p.MaxTokensPerTurn <= 0 {
		return fmt.Errorf("domain: max tokens per turn must be positive, got %d", p.MaxTokensPerTurn)
	}
	if p.TargetDurationMinutes <= 0 {
		return fmt.Errorf("domain: target duration must be positive, got %d", p.TargetDurationMinutes)
	}
	return nil
}

// EpisodeMetadata describes a finished session for persistence.
type EpisodeMetadata struct {
	EpisodeID string
	Host      string
	Guest     string
	Theme     string
	Tone      string
	Language  string
	Duration  string
	Model     string
	CreatedAt time.Time
}

// Fields returns the metadata as ordered key/value pairs, in the order
// written to output documents.
func (m EpisodeMetadata) Fields() [][2]string {
	return [][2]string{
		{"host", m.Host},
		{"guest", m.Guest},
		{"theme", m.Theme},
		{"tone", m.Tone},
		{"language", m.Language},
		{"duration", m.Duration},
		{"model", m.Model},
	}
}

// DurationLabel renders a duration in minutes the way metadata records it.
func DurationLabel(minutes int) string {
	return fmt.Sprintf("%d minutes", minutes)
}
