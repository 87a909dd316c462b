package engine

import (
	"testing"

	"timed-quiz/internal/domain"
)

func TestScorerPenaltyFloorsAtZero(t *testing.T) {
	var s Scorer
	s.Increment()
	s.Increment()
	s.Penalize(1)
	if s.Score() != 1 {
		t.Fatalf("expected 1, got %d", s.Score())
	}
	s.Penalize(5)
	if s.Score() != 0 {
		t.Fatalf("expected floor at 0, got %d", s.Score())
	}
}

func TestPercentageAndVerdict(t *testing.T) {
	cases := []struct {
		score, asked, pct int
		verdict           domain.Verdict
	}{
		{0, 0, 0, domain.Fail},
		{7, 10, 70, domain.Pass},
		{6, 10, 60, domain.Fail},
		{2, 3, 67, domain.Fail},
		{1, 8, 13, domain.Fail},
		{3, 3, 100, domain.Pass},
	}
	for _, tc := range cases {
		pct := Percentage(tc.score, tc.asked)
		if pct != tc.pct {
			t.Fatalf("percentage(%d,%d): expected %d, got %d", tc.score, tc.asked, tc.pct, pct)
		}
		if v := VerdictFor(pct, DefaultPassThreshold); v != tc.verdict {
			t.Fatalf("verdict(%d): expected %s, got %s", pct, tc.verdict, v)
		}
	}
}
