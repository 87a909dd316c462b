package app

import (
	"context"
	"fmt"

	"timed-quiz/internal/domain"
	"timed-quiz/internal/engine"

	"github.com/google/uuid"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *engine.Session)
	Get(sessionID string) (*engine.Session, bool)
	Delete(sessionID string)
}

// BankRepository loads question bank content (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.Bank, error)
}

// QuizService hosts independent timed sessions, one per player.
type QuizService struct {
	sessions SessionRepository
	banks    BankRepository
	defaults engine.Config
	bankOpts []engine.BankOption
	newID    func() string
}

func NewQuizService(store SessionRepository, banks BankRepository, defaults engine.Config, opts ...engine.BankOption) *QuizService {
	return &QuizService{
		sessions: store,
		banks:    banks,
		defaults: defaults,
		bankOpts: opts,
		newID:    uuid.NewString,
	}
}

// Create builds an idle session over a private copy of the bank and returns its id.
func (s *QuizService) Create(ctx context.Context, bankID string) (string, error) {
	return s.CreateWithConfig(ctx, bankID, s.defaults)
}

// CreateWithConfig is Create with per-session settings.
func (s *QuizService) CreateWithConfig(ctx context.Context, bankID string, cfg engine.Config) (string, error) {
	content, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		return "", err
	}
	bank, err := engine.NewBank(content.Questions, s.bankOpts...)
	if err != nil {
		return "", fmt.Errorf("bank %s: %w", bankID, err)
	}
	session, err := engine.NewSession(s.newID(), bank, cfg)
	if err != nil {
		return "", err
	}
	s.sessions.Put(session)
	return session.ID(), nil
}

// Start begins the countdown for a created session.
func (s *QuizService) Start(_ context.Context, sessionID, identity string) (domain.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := session.Start(identity); err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// SubmitAnswer answers the current question.
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID string, answer domain.Answer) (domain.AnswerOutcome, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	return session.SubmitAnswer(answer)
}

// UseHint charges the hint penalty and returns the remaining score.
func (s *QuizService) UseHint(_ context.Context, sessionID string) (int, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return 0, err
	}
	return session.UseHint()
}

// Tick advances a manually clocked session by one second.
func (s *QuizService) Tick(_ context.Context, sessionID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return session.Tick()
}

// End abandons an active session and returns its result.
func (s *QuizService) End(_ context.Context, sessionID string) (domain.Result, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Result{}, err
	}
	if err := session.End(); err != nil {
		return domain.Result{}, err
	}
	return session.Result()
}

// Reset returns the session to idle so it can be replayed.
func (s *QuizService) Reset(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	session.Reset()
	return session.Snapshot(), nil
}

// Result reports the outcome of an ended session.
func (s *QuizService) Result(_ context.Context, sessionID string) (domain.Result, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Result{}, err
	}
	return session.Result()
}

// Snapshot reports the current session view.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// AddCustomQuestion appends a user-authored question to the session's bank.
func (s *QuizService) AddCustomQuestion(_ context.Context, sessionID string, q domain.Question) (domain.PublicQuestion, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.PublicQuestion{}, err
	}
	added, err := session.AddCustomQuestion(q)
	if err != nil {
		return domain.PublicQuestion{}, err
	}
	return added.Public(), nil
}

// Subscribe returns a channel of session events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Event, func(), error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Close stops the session and forgets it.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

func (s *QuizService) session(sessionID string) (*engine.Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
