// Package tokenizer counts tokens of generated turns for storage and logs.
package tokenizer

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter reports how many tokens a text uses.
type Counter interface {
	Count(text string) int
}

// getEncoding may download BPE data on first use.
var getEncoding = tiktoken.GetEncoding

// Tiktoken counts with a BPE encoding and falls back to Estimator when the
// encoding cannot be loaded.
type Tiktoken struct {
	encoding string
	fallback Estimator

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktoken returns a counter for encoding; "" selects cl100k_base.
func NewTiktoken(encoding string) *Tiktoken {
	if encoding == "" {
		encoding = defaultEncoding
	}
	return &Tiktoken{encoding: encoding}
}

func (t *Tiktoken) init() error {
	t.once.Do(func() {
		enc, err := getEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("tokenizer: init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// Err reports why the encoding is unavailable, if it is.
func (t *Tiktoken) Err() error {
	return t.init()
}

func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	if err := t.init(); err != nil {
		return t.fallback.Count(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

func (t *Tiktoken) Name() string {
	if t.init() != nil {
		return "estimator"
	}
	return "tiktoken[" + t.encoding + "]"
}

// Estimator approximates BPE counts: about four ASCII characters per token and
// one token per rune outside ASCII, which is close for Indic scripts.
type Estimator struct{}

func (Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	ascii, other := 0, 0
	for _, r := range text {
		if r < utf8.RuneSelf {
			ascii++
			continue
		}
		other++
	}
	n := other + (ascii+3)/4
	if n == 0 {
		return 1
	}
	return n
}
