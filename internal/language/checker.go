package language

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MinRatio is the share of non-whitespace runes that must belong to the
// target script.
const MinRatio = 0.7

// ErrCorrectionFailed is returned by Enforce when the corrective pass produced
// nothing usable.
var ErrCorrectionFailed = errors.New("language: correction pass returned no text")

// Generator is the backend call used for the corrective pass.
type Generator interface {
	Generate(ctx context.Context, userInstruction, systemInstruction string, maxTokens int) (string, error)
}

// Checker enforces one target language.
type Checker struct {
	language string
	script   Script
	enforced bool
}

// NewChecker binds a checker to a language. Languages without a designated
// script in the registry are never corrected.
func NewChecker(registry *Registry, languageName string) *Checker {
	s, ok := registry.Lookup(languageName)
	return &Checker{
		language: strings.TrimSpace(languageName),
		script:   s,
		enforced: ok,
	}
}

// Enforced reports whether the target language has a designated script.
func (c *Checker) Enforced() bool {
	return c.enforced
}

// IsInTargetScript applies IsInScript with MinRatio.
func (c *Checker) IsInTargetScript(text string) bool {
	return IsInScript(text, c.script, MinRatio)
}

// IsInScript reports whether at least minRatio of the non-whitespace runes of
// text belong to s. Empty and whitespace-only text is never in script.
func IsInScript(text string, s Script, minRatio float64) bool {
	matching, total := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if s.Contains(r) {
			matching++
		}
	}
	if total == 0 {
		return false
	}
	return float64(matching)/float64(total) >= minRatio
}

// Enforce returns text unchanged when it passes the check or when the
// language is not enforced. Otherwise it issues exactly one translation
// request and returns its result as is.
func (c *Checker) Enforce(ctx context.Context, text string, gen Generator, maxTokens int) (string, error) {
	if !c.enforced || c.IsInTargetScript(text) {
		return text, nil
	}
	corrected, err := gen.Generate(ctx, c.translationInstruction(text), c.translatorInstruction(), maxTokens)
	if err != nil {
		return "", fmt.Errorf("language: translate to %s: %w", c.language, err)
	}
	if strings.TrimSpace(corrected) == "" {
		return corrected, ErrCorrectionFailed
	}
	return corrected, nil
}

func (c *Checker) translationInstruction(text string) string {
	return fmt.Sprintf("Translate the following text to %s (use %s script): %s", c.language, c.script.Name, text)
}

func (c *Checker) translatorInstruction() string {
	return fmt.Sprintf("You are a helpful translator that translates text to %s.", c.language)
}
