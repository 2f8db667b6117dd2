package config

import (
	"fmt"

	"podcast-agent/internal/language"
)

// Registry builds the language registry: the default entry plus every
// scripts entry of the document.
func (c *Config) Registry() (*language.Registry, error) {
	reg := language.DefaultRegistry()
	for name, sc := range c.Scripts {
		ranges := make([]language.Range, 0, len(sc.Ranges))
		for _, r := range sc.Ranges {
			ranges = append(ranges, language.Range{First: r[0], Last: r[1]})
		}
		s, err := language.NewScript(sc.Script, ranges...)
		if err != nil {
			return nil, fmt.Errorf("%w: scripts.%s: %v", ErrInvalid, name, err)
		}
		reg.Register(name, s)
	}
	return reg, nil
}
