package engine

import (
	"math"

	"timed-quiz/internal/domain"
)

// DefaultPassThreshold is the percentage needed for a passing verdict.
const DefaultPassThreshold = 70

// Scorer keeps a non-negative integer score.
type Scorer struct {
	score int
}

// Increment awards one point.
func (s *Scorer) Increment() {
	s.score++
}

// Penalize deducts amount, flooring the score at zero.
func (s *Scorer) Penalize(amount int) {
	if amount < 0 {
		return
	}
	s.score -= amount
	if s.score < 0 {
		s.score = 0
	}
}

// Score returns the current score.
func (s *Scorer) Score() int {
	return s.score
}

// Reset clears the score back to zero.
func (s *Scorer) Reset() {
	s.score = 0
}

// Percentage rounds 100*score/asked to the nearest integer; zero when nothing was asked.
func (s *Scorer) Percentage(askedCount int) int {
	return Percentage(s.score, askedCount)
}

// Percentage rounds 100*score/asked to the nearest integer; zero when nothing was asked.
func Percentage(score, askedCount int) int {
	if askedCount <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(askedCount)))
}

// VerdictFor classifies a percentage against the pass threshold.
func VerdictFor(percentage, passThreshold int) domain.Verdict {
	if percentage >= passThreshold {
		return domain.Pass
	}
	return domain.Fail
}
