// internal/wheel/wheel.go

// Package wheel implements the daily weighted prize wheel. Selection is
// server-authoritative: clients only ever see the chosen index, never the
// draw.
package wheel

import (
	"errors"
	"math/rand"
	"time"
)

// Prize is one slot on the wheel. Weight is a whole percentage; the table's
// weights sum to exactly 100.
type Prize struct {
	Coins  int    `json:"coins"`
	Label  string `json:"label"`
	Weight int    `json:"weight"`
}

// Prizes is the fixed table, ordered by ascending coin value.
var Prizes = []Prize{
	{Coins: 10, Label: "10 coins", Weight: 30},
	{Coins: 25, Label: "25 coins", Weight: 25},
	{Coins: 50, Label: "50 coins", Weight: 20},
	{Coins: 100, Label: "100 coins", Weight: 15},
	{Coins: 250, Label: "250 coins", Weight: 7},
	{Coins: 500, Label: "Jackpot! 500 coins", Weight: 3},
}

// ErrBadDraw reports a draw outside [0,1).
var ErrBadDraw = errors.New("wheel: draw must be in [0,1)")

// Result pairs the chosen prize with its table index.
type Result struct {
	Prize Prize `json:"prize"`
	Index int   `json:"index"`
}

// Spin selects a prize with a uniform random draw.
func Spin() Result {
	res, _ := SpinWith(rand.Float64())
	return res
}

// SpinWith selects a prize from an explicit draw in [0,1), which makes the
// outcome deterministic for tests. The draw is scaled onto [0,100) and the
// table is walked accumulating weight; the first slot whose cumulative
// weight exceeds the scaled draw wins.
func SpinWith(draw float64) (Result, error) {
	if draw < 0 || draw >= 1 {
		return Result{}, ErrBadDraw
	}
	scaled := draw * 100
	cumulative := 0
	for i, p := range Prizes {
		cumulative += p.Weight
		if scaled < float64(cumulative) {
			return Result{Prize: p, Index: i}, nil
		}
	}
	// Unreachable while the weights sum to 100.
	last := len(Prizes) - 1
	return Result{Prize: Prizes[last], Index: last}, nil
}

// CanSpinToday reports whether a spin is allowed given the player's last
// spin time. The reset boundary is UTC midnight, global across players: nil
// means never spun, otherwise the UTC calendar date must differ from now's.
func CanSpinToday(lastSpin *time.Time, now time.Time) bool {
	if lastSpin == nil {
		return true
	}
	ly, lm, ld := lastSpin.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return ly != ny || lm != nm || ld != nd
}
