package usecase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestComputeExchangeBudget(t *testing.T) {
	cases := []struct {
		duration, maxTokens, want int
	}{
		{10, 200, 3},
		{30, 100, 15},
		{1, 1000, 1},
		{5, 100, 3},
		{60, 150, 20},
		{1, 50, 1},
		{2, 50, 2},
		{0, 100, 1},
		{10, 0, 1},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ComputeExchangeBudget(tc.duration, tc.maxTokens), "duration=%d maxTokens=%d", tc.duration, tc.maxTokens)
	}
}

func TestExpectedTurnCount(t *testing.T) {
	require.Equal(t, 2, ExpectedTurnCount(1))
	require.Equal(t, 3, ExpectedTurnCount(2))
	require.Equal(t, 5, ExpectedTurnCount(3))
	require.Equal(t, 29, ExpectedTurnCount(15))
	require.Equal(t, 2, ExpectedTurnCount(0))
}

func TestComputeExchangeBudget_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := rapid.IntRange(1, 600).Draw(rt, "duration")
		m := rapid.IntRange(1, 4000).Draw(rt, "maxTokens")

		b := ComputeExchangeBudget(d, m)
		if b < 1 {
			rt.Fatalf("budget %d < 1", b)
		}
		if b != ComputeExchangeBudget(d, m) {
			rt.Fatalf("budget not deterministic")
		}
		if ComputeExchangeBudget(d+1, m) < b {
			rt.Fatalf("budget decreased when duration grew")
		}
		if ComputeExchangeBudget(d, m+1) > b {
			rt.Fatalf("budget increased when max tokens grew")
		}
		if ExpectedTurnCount(b) != 2*b-1+boolToInt(b == 1) {
			rt.Fatalf("turn count %d for budget %d", ExpectedTurnCount(b), b)
		}
	})
}

func TestComputeExchangeBudget_LargeInputsSaturate(t *testing.T) {
	edge := math.MaxInt / 100
	require.GreaterOrEqual(t, ComputeExchangeBudget(edge+1, 1), ComputeExchangeBudget(edge, 1))
	require.Equal(t, math.MaxInt/2+1, ComputeExchangeBudget(math.MaxInt, 1))
	require.Equal(t, 1, ComputeExchangeBudget(1, math.MaxInt))

	rapid.Check(t, func(rt *rapid.T) {
		d := rapid.IntRange(1, math.MaxInt-1).Draw(rt, "duration")
		m := rapid.IntRange(1, math.MaxInt).Draw(rt, "maxTokens")
		b := ComputeExchangeBudget(d, m)
		if b < 1 {
			rt.Fatalf("budget %d < 1", b)
		}
		if ComputeExchangeBudget(d+1, m) < b {
			rt.Fatalf("budget decreased when duration grew from %d", d)
		}
	})
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
