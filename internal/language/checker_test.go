package language

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	out   string
	err   error
	calls int
	user  string
	sys   string
}

func (f *fakeGenerator) Generate(_ context.Context, user, sys string, _ int) (string, error) {
	f.calls++
	f.user = user
	f.sys = sys
	return f.out, f.err
}

func TestIsInTargetScript(t *testing.T) {
	c := NewChecker(DefaultRegistry(), "Hindi")

	cases := []struct {
		text string
		want bool
	}{
		{"नमस्ते दोस्तों", true},
		{"Hello friends", false},
		{"", false},
		{"   \n\t", false},
		{"नमस्ते दोस्तों, how", true},
		{"नमस्ते hello world", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, c.IsInTargetScript(tc.text), "text=%q", tc.text)
	}
}

func TestIsInScript_RatioBoundary(t *testing.T) {
	// 7 Devanagari runes + 3 Latin runes is exactly 0.7.
	require.True(t, IsInScript("नननननननabc", Devanagari, 0.7))
	require.False(t, IsInScript("ननननननabcd", Devanagari, 0.7))
}

func TestRegistry_LookupIsCaseInsensitive(t *testing.T) {
	r := DefaultRegistry()
	s, ok := r.Lookup("  hINDI ")
	require.True(t, ok)
	require.Equal(t, "Devanagari", s.Name)

	_, ok = r.Lookup("English")
	require.False(t, ok)

	bengali, err := NewScript("Bengali", Range{First: 0x0980, Last: 0x09FF})
	require.NoError(t, err)
	r.Register("Bengali", bengali)
	s, ok = r.Lookup("bengali")
	require.True(t, ok)
	require.True(t, s.Contains('ক'))
	require.False(t, s.Contains('क'))
}

func TestNewScript_RejectsInvalidRanges(t *testing.T) {
	_, err := NewScript("", Range{First: 1, Last: 2})
	require.Error(t, err)
	_, err = NewScript("x")
	require.Error(t, err)
	_, err = NewScript("x", Range{First: 10, Last: 5})
	require.Error(t, err)

	s, err := NewScript("Emoji", Range{First: 0x1F600, Last: 0x1F64F})
	require.NoError(t, err)
	require.True(t, s.Contains('😀'))
}

func TestIsPrimary(t *testing.T) {
	require.True(t, IsPrimary("hindi"))
	require.False(t, IsPrimary("English"))
}

func TestEnforce_PassingTextMakesNoCall(t *testing.T) {
	gen := &fakeGenerator{out: "unused"}
	c := NewChecker(DefaultRegistry(), "Hindi")

	out, err := c.Enforce(context.Background(), "नमस्ते दोस्तों", gen, 200)
	require.NoError(t, err)
	require.Equal(t, "नमस्ते दोस्तों", out)
	require.Zero(t, gen.calls)
}

func TestEnforce_FailingTextMakesExactlyOneCall(t *testing.T) {
	gen := &fakeGenerator{out: "still english"}
	c := NewChecker(DefaultRegistry(), "Hindi")

	out, err := c.Enforce(context.Background(), "Hello friends", gen, 200)
	require.NoError(t, err)
	require.Equal(t, "still english", out, "the correction is returned unverified")
	require.Equal(t, 1, gen.calls)
	require.Contains(t, gen.user, "Translate the following text to Hindi (use Devanagari script): Hello friends")
	require.Contains(t, gen.sys, "translator")
}

func TestEnforce_UnenforcedLanguageMakesNoCall(t *testing.T) {
	gen := &fakeGenerator{}
	c := NewChecker(DefaultRegistry(), "English")
	require.False(t, c.Enforced())

	out, err := c.Enforce(context.Background(), "Hello friends", gen, 200)
	require.NoError(t, err)
	require.Equal(t, "Hello friends", out)
	require.Zero(t, gen.calls)
}

func TestEnforce_CorrectionFailures(t *testing.T) {
	c := NewChecker(DefaultRegistry(), "Hindi")

	out, err := c.Enforce(context.Background(), "Hello", &fakeGenerator{err: errors.New("boom")}, 200)
	require.ErrorContains(t, err, "boom")
	require.Empty(t, out)

	out, err = c.Enforce(context.Background(), "Hello", &fakeGenerator{out: "  "}, 200)
	require.ErrorIs(t, err, ErrCorrectionFailed)
	require.Equal(t, "  ", out)
}
