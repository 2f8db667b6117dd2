package usecase

import "math"

const (
	wordsPerMinute = 150
	// 1.5 words per token, so tokensPerMinute = 150 / 1.5 = 100.
	wordsPerTokenNum = 3
	wordsPerTokenDen = 2
	tokensPerMinute  = wordsPerMinute * wordsPerTokenDen / wordsPerTokenNum
)

// ComputeExchangeBudget estimates how many host/guest exchanges fit in
// durationMinutes when every turn may use up to maxTokensPerTurn tokens.
// The result is at least 1.
func ComputeExchangeBudget(durationMinutes, maxTokensPerTurn int) int {
	if durationMinutes <= 0 || maxTokensPerTurn <= 0 {
		return 1
	}
	totalTokens := saturatingMul(tokensPerMinute, durationMinutes)
	perExchange := saturatingMul(maxTokensPerTurn, 2)
	budget := totalTokens / perExchange
	if totalTokens%perExchange != 0 {
		budget++
	}
	if budget < 1 {
		return 1
	}
	return budget
}

// saturatingMul multiplies two positive ints, clamping at math.MaxInt.
func saturatingMul(a, b int) int {
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}

// ExpectedTurnCount is the transcript length a session with the given budget
// produces: the opening, one guest turn per alternation, a host follow-up on
// every alternation but the last, and the closing.
func ExpectedTurnCount(budget int) int {
	if budget < 1 {
		budget = 1
	}
	followUps := budget - 2
	if followUps < 0 {
		followUps = 0
	}
	return 1 + (budget - 1) + followUps + 1
}
