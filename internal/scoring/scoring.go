// internal/scoring/scoring.go

// Package scoring holds the pure reward formulas applied at question-reveal
// boundaries. Nothing here touches session state; the state machine calls in
// with measured times and applies the returned deltas under its own lock.
package scoring

// Base award and speed bonus ceiling for a correct answer. The bonus decays
// linearly to zero as the answer time approaches the limit.
const (
	BasePoints    = 100
	MaxSpeedBonus = 50

	BaseCoins      = 10
	CoinStreakStep = 5
	MaxStreakBonus = 25
)

// CalculateScore returns the point award for a single answer. Zero for a
// wrong answer; otherwise the base plus a bonus monotonically decreasing in
// answerTimeMs. Times at or past the limit still earn the base (the state
// machine rejects genuinely late answers before scoring).
func CalculateScore(correct bool, answerTimeMs, timeLimitMs int64) int {
	if !correct {
		return 0
	}
	if timeLimitMs <= 0 {
		return BasePoints
	}
	remaining := timeLimitMs - answerTimeMs
	if remaining < 0 {
		remaining = 0
	}
	bonus := int(int64(MaxSpeedBonus) * remaining / timeLimitMs)
	return BasePoints + bonus
}

// CalculateCoinsForQuestion returns the coin reward for one question given
// the player's unbroken correct-answer streak *before* this question. The
// streak bonus is capped so a long run cannot dominate the economy. The same
// formula serves classic and soccer modes so coin totals stay comparable.
func CalculateCoinsForQuestion(correct bool, streak int) int {
	if !correct {
		return 0
	}
	bonus := streak * CoinStreakStep
	if bonus > MaxStreakBonus {
		bonus = MaxStreakBonus
	}
	return BaseCoins + bonus
}

// SoccerResult carries the full outcome of a gated-mode question.
type SoccerResult struct {
	Points    int
	Coins     int
	NewStreak int
}

// CalculateSoccerScore applies the AND-gate rule: points and coins are
// awarded via the classic formulas only when the quiz answer is correct AND
// the penalty kick scored. Failing either gate yields zero of both and
// resets the streak, with no distinction between which gate failed.
func CalculateSoccerScore(quizCorrect, penaltyScored bool, answerTimeMs, timeLimitMs int64, currentStreak int) SoccerResult {
	if !quizCorrect || !penaltyScored {
		return SoccerResult{Points: 0, Coins: 0, NewStreak: 0}
	}
	return SoccerResult{
		Points:    CalculateScore(true, answerTimeMs, timeLimitMs),
		Coins:     CalculateCoinsForQuestion(true, currentStreak),
		NewStreak: currentStreak + 1,
	}
}
