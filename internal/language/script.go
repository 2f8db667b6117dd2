// Package language decides whether generated text is written in the script a
// persona's language requires, and asks the backend for a translation when
// it is not.
package language

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// PrimaryLanguage is the language personas speak when none is configured.
const PrimaryLanguage = "Hindi"

// Script is a named set of Unicode ranges.
type Script struct {
	Name  string
	table *unicode.RangeTable
}

// Range is an inclusive code point interval.
type Range struct {
	First rune
	Last  rune
}

// NewScript builds a Script from inclusive ranges.
func NewScript(name string, ranges ...Range) (Script, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Script{}, fmt.Errorf("language: script name must not be empty")
	}
	if len(ranges) == 0 {
		return Script{}, fmt.Errorf("language: script %q has no ranges", name)
	}
	sorted := append([]Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].First < sorted[j].First })

	table := &unicode.RangeTable{}
	for _, r := range sorted {
		if r.First < 0 || r.Last < r.First || r.Last > unicode.MaxRune {
			return Script{}, fmt.Errorf("language: script %q has invalid range %#x-%#x", name, r.First, r.Last)
		}
		if r.Last <= 0xFFFF {
			table.R16 = append(table.R16, unicode.Range16{Lo: uint16(r.First), Hi: uint16(r.Last), Stride: 1})
			continue
		}
		table.R32 = append(table.R32, unicode.Range32{Lo: uint32(r.First), Hi: uint32(r.Last), Stride: 1})
	}
	return Script{Name: name, table: table}, nil
}

// Contains reports whether r belongs to the script.
func (s Script) Contains(r rune) bool {
	if s.table == nil {
		return false
	}
	return unicode.Is(s.table, r)
}

// Devanagari is the Unicode block U+0900..U+097F.
var Devanagari = mustScript("Devanagari", Range{First: 0x0900, Last: 0x097F})

func mustScript(name string, ranges ...Range) Script {
	s, err := NewScript(name, ranges...)
	if err != nil {
		panic(err)
	}
	return s
}

// Registry maps language names to the script their text must be written in.
// Lookups are case-insensitive.
type Registry struct {
	scripts map[string]Script
}

// DefaultRegistry knows only the primary language.
func DefaultRegistry() *Registry {
	r := &Registry{scripts: make(map[string]Script)}
	r.Register(PrimaryLanguage, Devanagari)
	return r
}

// Register adds or replaces the script for a language.
func (r *Registry) Register(languageName string, s Script) {
	if r.scripts == nil {
		r.scripts = make(map[string]Script)
	}
	r.scripts[normalize(languageName)] = s
}

// Lookup returns the designated script for a language, if any.
func (r *Registry) Lookup(languageName string) (Script, bool) {
	if r == nil {
		return Script{}, false
	}
	s, ok := r.scripts[normalize(languageName)]
	return s, ok
}

// IsPrimary reports whether languageName is the primary language.
func IsPrimary(languageName string) bool {
	return normalize(languageName) == normalize(PrimaryLanguage)
}

func normalize(languageName string) string {
	return strings.ToLower(strings.TrimSpace(languageName))
}
