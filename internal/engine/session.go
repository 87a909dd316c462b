package engine

import (
	"strings"
	"sync"
	"time"

	"timed-quiz/internal/domain"
)

// Config parametrises a session.
type Config struct {
	DurationSeconds int
	PassThreshold   int
	HintPenalty     int
	Policy          domain.Policy
	Retention       domain.Retention
	// TickInterval drives the internal timer. Zero leaves ticking to the caller via Tick.
	TickInterval time.Duration
}

// DefaultConfig mirrors the 20m20s certification-practice quiz.
func DefaultConfig() Config {
	return Config{
		DurationSeconds: 1220,
		PassThreshold:   DefaultPassThreshold,
		HintPenalty:     1,
		Policy:          domain.PolicyRandom,
		Retention:       domain.RetainCustom,
		TickInterval:    time.Second,
	}
}

// Normalize fills unset policies with defaults and rejects unusable values.
// PassThreshold and HintPenalty are taken as given, so zero is a real setting;
// start from DefaultConfig to get the usual ones.
func (c Config) Normalize() (Config, error) {
	if c.DurationSeconds <= 0 {
		return c, &domain.ValidationError{Reason: "duration must be positive"}
	}
	if c.PassThreshold < 0 || c.PassThreshold > 100 {
		return c, &domain.ValidationError{Reason: "pass threshold must be between 0 and 100"}
	}
	if c.HintPenalty < 0 {
		return c, &domain.ValidationError{Reason: "hint penalty must not be negative"}
	}
	switch c.Policy {
	case domain.PolicyRandom, domain.PolicySequential:
	case "":
		c.Policy = domain.PolicyRandom
	default:
		return c, &domain.ValidationError{Reason: "unknown selection policy " + string(c.Policy)}
	}
	switch c.Retention {
	case domain.RetainCustom, domain.DropCustom:
	case "":
		c.Retention = domain.RetainCustom
	default:
		return c, &domain.ValidationError{Reason: "unknown retention policy " + string(c.Retention)}
	}
	if c.TickInterval < 0 {
		c.TickInterval = 0
	}
	return c, nil
}

// Session runs one timed assessment over a bank: idle -> active -> ended.
// All mutation is serialized on mu, timer ticks included.
type Session struct {
	id   string
	cfg  Config
	bank *Bank
	now  func() time.Time

	mu          sync.Mutex
	state       domain.State
	cause       domain.Cause
	identity    string
	scorer      Scorer
	remaining   int
	current     *domain.Question
	askedCount  int
	epoch       uint64
	timer       *Timer
	updatedAt   time.Time
	subscribers map[chan domain.Event]struct{}
}

// NewSession builds an idle session over bank. The bank is referenced, not copied.
func NewSession(id string, bank *Bank, cfg Config) (*Session, error) {
	return NewSessionWithClock(id, bank, cfg, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id string, bank *Bank, cfg Config, now func() time.Time) (*Session, error) {
	if bank == nil {
		return nil, domain.ErrBankNotFound
	}
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	return &Session{
		id:          id,
		cfg:         cfg,
		bank:        bank,
		now:         now,
		state:       domain.StateIdle,
		remaining:   cfg.DurationSeconds,
		updatedAt:   now(),
		subscribers: make(map[chan domain.Event]struct{}),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

// Config returns the normalized configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Bank returns the bank the session draws from.
func (s *Session) Bank() *Bank {
	return s.bank
}

// Start moves an idle session to active, starts the countdown and draws the
// first question.
func (s *Session) Start(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateIdle {
		return domain.ErrInvalidState
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return &domain.ValidationError{Reason: domain.ReasonIdentityMissing}
	}

	s.identity = identity
	s.scorer.Reset()
	s.askedCount = 0
	s.remaining = s.cfg.DurationSeconds
	s.cause = domain.CauseNone
	s.state = domain.StateActive
	s.touchLocked()

	if !s.advanceLocked() {
		return nil
	}
	s.startTimerLocked()
	return nil
}

// SubmitAnswer scores the answer to the current question and draws the next
// one, ending the session when the bank is exhausted.
func (s *Session) SubmitAnswer(answer domain.Answer) (domain.AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateActive || s.current == nil {
		return domain.AnswerOutcome{}, domain.ErrInvalidState
	}

	question := *s.current
	correct := question.Check(answer)
	if correct {
		s.scorer.Increment()
	}
	s.askedCount++
	s.touchLocked()
	s.advanceLocked()

	return domain.AnswerOutcome{
		QuestionID: question.ID,
		Correct:    correct,
		Score:      s.scorer.Score(),
		AskedCount: s.askedCount,
		Ended:      s.state == domain.StateEnded,
	}, nil
}

// UseHint deducts the hint penalty and returns the new score. Revealing the
// answer is left to the caller.
func (s *Session) UseHint() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateActive {
		return 0, domain.ErrInvalidState
	}
	if s.scorer.Score() <= 0 {
		return 0, domain.ErrInsufficientScore
	}
	s.scorer.Penalize(s.cfg.HintPenalty)
	s.touchLocked()
	return s.scorer.Score(), nil
}

// Tick advances the countdown by one second. It is called by the internal
// timer, or by the caller when TickInterval is zero.
func (s *Session) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateActive {
		return domain.ErrInvalidState
	}
	s.tickLocked()
	return nil
}

// End forces an active session to end. Ending an ended session is a no-op.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateEnded:
		return nil
	case domain.StateActive:
		s.endLocked(domain.CauseAbandoned)
		return nil
	default:
		return domain.ErrInvalidState
	}
}

// Reset returns the session to idle with a fresh countdown and applies the
// retention policy to the bank.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.epoch++
	s.state = domain.StateIdle
	s.cause = domain.CauseNone
	s.scorer.Reset()
	s.askedCount = 0
	s.remaining = s.cfg.DurationSeconds
	s.current = nil
	s.bank.Reset(s.cfg.Retention)
	s.touchLocked()
}

// Result reports the final outcome. It fails unless the session has ended.
func (s *Session) Result() (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateEnded {
		return domain.Result{}, domain.ErrInvalidState
	}
	return s.resultLocked(), nil
}

// AddCustomQuestion validates and appends a question to the bank. It is
// rejected once the session has ended; reset first.
func (s *Session) AddCustomQuestion(q domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateEnded {
		return domain.Question{}, domain.ErrInvalidState
	}
	return s.bank.AddCustom(q)
}

func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Cause() domain.Cause {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scorer.Score()
}

func (s *Session) AskedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.askedCount
}

func (s *Session) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// CurrentQuestion returns the question awaiting an answer, if any.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Question{}, false
	}
	return *s.current, true
}

// Snapshot returns a transport-friendly view without answers.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.Snapshot{
		SessionID:     s.id,
		Identity:      s.identity,
		State:         s.state,
		Cause:         s.cause,
		Score:         s.scorer.Score(),
		AskedCount:    s.askedCount,
		TimeRemaining: s.remaining,
		UpdatedAt:     s.updatedAt,
	}
	if s.current != nil {
		public := s.current.Public()
		snap.Current = &public
	}
	return snap
}

// Subscribe returns a channel receiving session events. The caller must
// invoke cancel to release it.
func (s *Session) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the timer and releases all subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.epoch++
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) advanceLocked() bool {
	question, ok := s.bank.NextUnasked(s.cfg.Policy)
	if !ok {
		s.current = nil
		s.endLocked(domain.CauseExhausted)
		return false
	}
	s.current = &question
	public := question.Public()
	s.broadcastLocked(domain.Event{
		Type:      domain.EventQuestionChanged,
		Question:  &public,
		Remaining: s.remaining,
	})
	return true
}

func (s *Session) tickLocked() {
	if s.remaining > 0 {
		s.remaining--
	}
	s.broadcastLocked(domain.Event{Type: domain.EventTick, Remaining: s.remaining})
	if s.remaining == 0 {
		s.endLocked(domain.CauseTimeout)
	}
}

func (s *Session) endLocked(cause domain.Cause) {
	if s.state != domain.StateActive {
		return
	}
	s.stopTimerLocked()
	s.epoch++
	s.state = domain.StateEnded
	s.cause = cause
	s.current = nil
	s.touchLocked()

	result := s.resultLocked()
	s.broadcastLocked(domain.Event{
		Type:      domain.EventEnded,
		Remaining: s.remaining,
		Cause:     cause,
		Result:    &result,
	})
}

func (s *Session) resultLocked() domain.Result {
	pct := s.scorer.Percentage(s.askedCount)
	return domain.Result{
		Score:      s.scorer.Score(),
		AskedCount: s.askedCount,
		Percentage: pct,
		Verdict:    VerdictFor(pct, s.cfg.PassThreshold),
		Cause:      s.cause,
	}
}

func (s *Session) startTimerLocked() {
	if s.cfg.TickInterval <= 0 {
		return
	}
	epoch := s.epoch
	s.timer = NewTimer(s.cfg.TickInterval,
		func(int) { s.timerTick(epoch) },
		func() { s.timerExpired(epoch) },
	)
	s.timer.Start(s.remaining)
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// timerTick drops ticks from a timer that belongs to an earlier run.
func (s *Session) timerTick(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.state != domain.StateActive {
		return
	}
	s.tickLocked()
}

func (s *Session) timerExpired(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.state != domain.StateActive {
		return
	}
	s.remaining = 0
	s.endLocked(domain.CauseTimeout)
}

func (s *Session) touchLocked() {
	s.updatedAt = s.now()
}

func (s *Session) broadcastLocked(ev domain.Event) {
	ev.SessionID = s.id
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest event so the latest one always lands
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
