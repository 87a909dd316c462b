package domain

import (
	"strings"
	"time"
	"unicode"
)

// Kind distinguishes fixed-choice questions from free-text ones.
type Kind string

const (
	KindChoice Kind = "choice"
	KindText   Kind = "text"
)

// Question is a single assessable item. Choice questions carry Options and
// CorrectIndex; text questions carry ExpectedAnswer.
type Question struct {
	ID             string   `json:"id" yaml:"id"`
	Kind           Kind     `json:"kind" yaml:"kind"`
	Prompt         string   `json:"prompt" yaml:"prompt"`
	Options        []string `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectIndex   int      `json:"correctIndex" yaml:"correctIndex"`
	ExpectedAnswer string   `json:"expectedAnswer,omitempty" yaml:"expectedAnswer,omitempty"`
}

// NewChoiceQuestion builds a fixed-choice question.
func NewChoiceQuestion(prompt string, options []string, correctIndex int) Question {
	return Question{Kind: KindChoice, Prompt: prompt, Options: options, CorrectIndex: correctIndex}
}

// NewTextQuestion builds a free-text question.
func NewTextQuestion(prompt, expectedAnswer string) Question {
	return Question{Kind: KindText, Prompt: prompt, ExpectedAnswer: expectedAnswer}
}

// EffectiveKind infers the kind for questions loaded without one.
func (q Question) EffectiveKind() Kind {
	if q.Kind != "" {
		return q.Kind
	}
	if len(q.Options) > 0 {
		return KindChoice
	}
	return KindText
}

// Validate checks the structural invariants every question must hold.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return &ValidationError{Reason: ReasonPromptTooShort}
	}
	switch q.EffectiveKind() {
	case KindChoice:
		if len(q.Options) < 2 {
			return &ValidationError{Reason: ReasonAnswersMissing}
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return &ValidationError{Reason: ReasonCorrectOutOfRange}
		}
	case KindText:
		if strings.TrimSpace(q.ExpectedAnswer) == "" {
			return &ValidationError{Reason: ReasonAnswersMissing}
		}
	default:
		return &ValidationError{Reason: "unknown question kind " + string(q.Kind)}
	}
	return nil
}

// Check reports whether the answer is correct for this question.
func (q Question) Check(a Answer) bool {
	switch q.EffectiveKind() {
	case KindChoice:
		if a.Choice != nil {
			return *a.Choice == q.CorrectIndex
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return false
		}
		return NormalizeText(a.Text) == NormalizeText(q.Options[q.CorrectIndex])
	default:
		return NormalizeText(a.Text) == NormalizeText(q.ExpectedAnswer)
	}
}

// Public strips the correct answer so the question can be shown to a player.
func (q Question) Public() PublicQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return PublicQuestion{
		ID:      q.ID,
		Kind:    q.EffectiveKind(),
		Prompt:  q.Prompt,
		Options: options,
	}
}

// PublicQuestion is a question without its answer.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Kind    Kind     `json:"kind"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
}

// NormalizeText casefolds, trims and collapses inner whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), " ")
}

// Answer is a player's submission: an option index for choice questions or
// free text. A text answer to a choice question is compared with the
// correct option's text.
type Answer struct {
	Choice *int   `json:"choice,omitempty"`
	Text   string `json:"text,omitempty"`
}

// ChoiceAnswer submits an option index.
func ChoiceAnswer(index int) Answer {
	return Answer{Choice: &index}
}

// TextAnswer submits free text.
func TextAnswer(text string) Answer {
	return Answer{Text: text}
}

// Bank is a named set of seed questions as stored by loaders.
type Bank struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title,omitempty" yaml:"title,omitempty"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Policy selects the next unasked question.
type Policy string

const (
	PolicyRandom     Policy = "random"
	PolicySequential Policy = "sequential"
)

// Retention decides what happens to custom questions when a bank is reset.
type Retention string

const (
	RetainCustom Retention = "retain"
	DropCustom   Retention = "drop"
)

// State is the session lifecycle position.
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
	StateEnded  State = "ended"
)

// Cause explains why a session ended.
type Cause string

const (
	CauseNone      Cause = ""
	CauseTimeout   Cause = "timeout"
	CauseExhausted Cause = "exhausted"
	CauseAbandoned Cause = "abandoned"
)

// Verdict is the pass/fail classification of a finished session.
type Verdict string

const (
	Pass Verdict = "pass"
	Fail Verdict = "fail"
)

// Result summarizes a finished session.
type Result struct {
	Score      int     `json:"score"`
	AskedCount int     `json:"askedCount"`
	Percentage int     `json:"percentage"`
	Verdict    Verdict `json:"verdict"`
	Cause      Cause   `json:"cause"`
}

// Snapshot is a read-only view of a session used by transports.
type Snapshot struct {
	SessionID     string          `json:"sessionId"`
	Identity      string          `json:"identity,omitempty"`
	State         State           `json:"state"`
	Cause         Cause           `json:"cause,omitempty"`
	Score         int             `json:"score"`
	AskedCount    int             `json:"askedCount"`
	TimeRemaining int             `json:"timeRemaining"`
	Current       *PublicQuestion `json:"current,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// AnswerOutcome is returned after a submission.
type AnswerOutcome struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Score      int    `json:"score"`
	AskedCount int    `json:"askedCount"`
	Ended      bool   `json:"ended"`
}

// EventType names session events.
type EventType string

const (
	EventQuestionChanged EventType = "question"
	EventTick            EventType = "tick"
	EventEnded           EventType = "ended"
)

// Event is emitted by a session to its subscribers.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"sessionId"`
	Question  *PublicQuestion `json:"question,omitempty"`
	Remaining int             `json:"remaining"`
	Cause     Cause           `json:"cause,omitempty"`
	Result    *Result         `json:"result,omitempty"`
}
