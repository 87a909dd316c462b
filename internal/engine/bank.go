package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"timed-quiz/internal/domain"

	"github.com/google/uuid"
)

const (
	// DefaultOptionCount is the number of options a custom choice question must have.
	DefaultOptionCount = 4
	minPromptLength    = 10
)

var questionNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

type bankItem struct {
	question domain.Question
	asked    bool
	custom   bool
}

// Bank is the mutable pool of questions drawn by sessions. It is safe for
// concurrent use and may be shared between sessions run one after another.
type Bank struct {
	optionCount int

	mu    sync.Mutex
	seed  []domain.Question
	items []bankItem
	rnd   *rand.Rand
}

// BankOption customises a Bank.
type BankOption func(*Bank)

// WithOptionCount sets how many options a custom choice question must carry.
func WithOptionCount(n int) BankOption {
	return func(b *Bank) {
		if n >= 2 {
			b.optionCount = n
		}
	}
}

// WithRand makes random selection deterministic in tests.
func WithRand(rnd *rand.Rand) BankOption {
	return func(b *Bank) {
		if rnd != nil {
			b.rnd = rnd
		}
	}
}

// NewBank builds a bank seeded with questions.
func NewBank(seed []domain.Question, opts ...BankOption) (*Bank, error) {
	b := &Bank{
		optionCount: DefaultOptionCount,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.Seed(seed); err != nil {
		return nil, err
	}
	return b, nil
}

// Seed replaces the bank contents; every question starts unasked.
func (b *Bank) Seed(questions []domain.Question) error {
	prepared := make([]domain.Question, 0, len(questions))
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("seed question %d: %w", i, err)
		}
		q.Kind = q.EffectiveKind()
		if q.ID == "" {
			q.ID = uuid.NewSHA1(questionNamespace, []byte(fmt.Sprintf("%d|%s", i, q.Prompt))).String()
		}
		prepared = append(prepared, q)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seed = prepared
	b.items = seedItems(prepared)
	return nil
}

func seedItems(seed []domain.Question) []bankItem {
	items := make([]bankItem, len(seed))
	for i, q := range seed {
		items[i] = bankItem{question: q}
	}
	return items
}

// AddCustom validates and appends a user-authored question.
func (b *Bank) AddCustom(q domain.Question) (domain.Question, error) {
	if err := b.validateCustom(q); err != nil {
		return domain.Question{}, err
	}
	q.Kind = q.EffectiveKind()
	q.Prompt = strings.TrimSpace(q.Prompt)
	if q.Kind == domain.KindChoice {
		options := make([]string, len(q.Options))
		for i, opt := range q.Options {
			options[i] = strings.TrimSpace(opt)
		}
		q.Options = options
	}
	q.ID = "c_" + uuid.New().String()[:8]

	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, bankItem{question: q, custom: true})
	return q, nil
}

func (b *Bank) validateCustom(q domain.Question) error {
	if len(strings.TrimSpace(q.Prompt)) < minPromptLength {
		return &domain.ValidationError{Reason: domain.ReasonPromptTooShort}
	}
	if q.EffectiveKind() == domain.KindText {
		if strings.TrimSpace(q.ExpectedAnswer) == "" {
			return &domain.ValidationError{Reason: domain.ReasonAnswersMissing}
		}
		return nil
	}
	if len(q.Options) != b.optionCount {
		return &domain.ValidationError{Reason: domain.ReasonAnswersMissing}
	}
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return &domain.ValidationError{Reason: domain.ReasonAnswersMissing}
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return &domain.ValidationError{Reason: domain.ReasonCorrectOutOfRange}
	}
	return nil
}

// NextUnasked draws one unasked question per policy and marks it asked.
// ok is false when the bank is exhausted.
func (b *Bank) NextUnasked(policy domain.Policy) (q domain.Question, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	switch policy {
	case domain.PolicySequential:
		for i := range b.items {
			if !b.items[i].asked {
				idx = i
				break
			}
		}
	default:
		unasked := make([]int, 0, len(b.items))
		for i := range b.items {
			if !b.items[i].asked {
				unasked = append(unasked, i)
			}
		}
		if len(unasked) > 0 {
			idx = unasked[b.rnd.Intn(len(unasked))]
		}
	}
	if idx < 0 {
		return domain.Question{}, false
	}
	b.items[idx].asked = true
	return b.items[idx].question, true
}

// UnaskedCount reports how many questions can still be drawn.
func (b *Bank) UnaskedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, item := range b.items {
		if !item.asked {
			n++
		}
	}
	return n
}

// Len reports the number of questions, custom ones included.
func (b *Bank) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Questions returns a copy of the bank contents in bank order.
func (b *Bank) Questions() []domain.Question {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Question, len(b.items))
	for i, item := range b.items {
		out[i] = item.question
	}
	return out
}

// Reset clears every asked flag. Custom questions are kept (unasked) or
// dropped according to retention.
func (b *Bank) Reset(retention domain.Retention) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if retention == domain.DropCustom {
		b.items = seedItems(b.seed)
		return
	}
	for i := range b.items {
		b.items[i].asked = false
	}
}
