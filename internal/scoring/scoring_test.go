// internal/scoring/scoring_test.go
package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateScoreWrongAnswerIsZero(t *testing.T) {
	assert.Zero(t, CalculateScore(false, 0, 20000))
	assert.Zero(t, CalculateScore(false, 20000, 20000))
}

func TestCalculateScoreSpeedBonusMonotonic(t *testing.T) {
	limit := int64(20000)
	prev := CalculateScore(true, 0, limit)
	assert.Equal(t, BasePoints+MaxSpeedBonus, prev, "instant answer earns full bonus")

	for _, ms := range []int64{2000, 5000, 10000, 15000, 19999} {
		score := CalculateScore(true, ms, limit)
		assert.LessOrEqual(t, score, prev, "score must not increase with slower answers (t=%d)", ms)
		assert.GreaterOrEqual(t, score, BasePoints)
		prev = score
	}
	assert.Equal(t, BasePoints, CalculateScore(true, limit, limit), "answer at the limit earns base only")
}

func TestCalculateScoreDegenerateLimit(t *testing.T) {
	assert.Equal(t, BasePoints, CalculateScore(true, 100, 0))
}

func TestCalculateCoinsStreakScaling(t *testing.T) {
	assert.Zero(t, CalculateCoinsForQuestion(false, 7))

	assert.Equal(t, BaseCoins, CalculateCoinsForQuestion(true, 0))
	assert.Equal(t, BaseCoins+CoinStreakStep, CalculateCoinsForQuestion(true, 1))
	assert.Equal(t, BaseCoins+2*CoinStreakStep, CalculateCoinsForQuestion(true, 2))

	// Long streaks hit the cap.
	capped := CalculateCoinsForQuestion(true, 50)
	assert.Equal(t, BaseCoins+MaxStreakBonus, capped)
}

func TestCalculateSoccerScoreBothGatesPass(t *testing.T) {
	res := CalculateSoccerScore(true, true, 5000, 20000, 2)
	require.Equal(t, CalculateScore(true, 5000, 20000), res.Points, "points must match the classic formula")
	require.Equal(t, CalculateCoinsForQuestion(true, 2), res.Coins, "coins must match the classic formula")
	assert.Equal(t, 3, res.NewStreak)
}

func TestCalculateSoccerScoreQuizCorrectPenaltyMissed(t *testing.T) {
	res := CalculateSoccerScore(true, false, 1000, 20000, 4)
	assert.Zero(t, res.Points)
	assert.Zero(t, res.Coins)
	assert.Zero(t, res.NewStreak, "streak resets when the penalty is missed")
}

func TestCalculateSoccerScoreQuizWrongPenaltyScored(t *testing.T) {
	res := CalculateSoccerScore(false, true, 1000, 20000, 4)
	assert.Zero(t, res.Points)
	assert.Zero(t, res.Coins)
	assert.Zero(t, res.NewStreak, "streak resets when the quiz answer is wrong")
}
