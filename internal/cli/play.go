package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"timed-quiz/internal/config"
	"timed-quiz/internal/domain"
	"timed-quiz/internal/engine"

	"github.com/spf13/cobra"
)

// NewPlayCmd runs a session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		bankID     string
		name       string
		duration   int
		sequential bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a timed quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if duration > 0 {
				cfg.Quiz.DurationSeconds = duration
			}
			if sequential {
				cfg.Quiz.Policy = string(domain.PolicySequential)
			}
			engineCfg, err := cfg.Quiz.Engine()
			if err != nil {
				return err
			}

			banks, closeBanks, err := newBankRepository(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer closeBanks()
			content, err := banks.GetBank(cmd.Context(), bankID)
			if err != nil {
				return fmt.Errorf("bank %s: %w", bankID, err)
			}
			bank, err := engine.NewBank(content.Questions, engine.WithOptionCount(cfg.Quiz.Options()))
			if err != nil {
				return err
			}
			session, err := engine.NewSession("terminal", bank, engineCfg)
			if err != nil {
				return err
			}
			defer session.Close()

			return runPlay(session, name, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&bankID, "bank", "comptia", "question bank id")
	cmd.Flags().StringVar(&name, "name", "", "player name (prompted when empty)")
	cmd.Flags().IntVar(&duration, "duration", 0, "session length in seconds (overrides config)")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "ask questions in bank order")
	return cmd
}

func runPlay(session *engine.Session, name string, in io.Reader, w io.Writer) error {
	out := &lockedWriter{w: w}
	reader := bufio.NewReader(in)

	for strings.TrimSpace(name) == "" {
		fmt.Fprint(out, "Enter your name: ")
		line, err := reader.ReadString('\n')
		name = strings.TrimSpace(line)
		if err != nil && name == "" {
			return fmt.Errorf("no player name given")
		}
	}

	for {
		if _, err := playSession(session, name, reader, out); err != nil {
			return err
		}
		fmt.Fprint(out, "Play again? (y/N): ")
		line, _ := reader.ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(line), "y") {
			return nil
		}
		session.Reset()
	}
}

// playSession runs one session to completion and prints the result.
func playSession(session *engine.Session, name string, reader *bufio.Reader, out io.Writer) (domain.Result, error) {
	events, cancel := session.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.Type == domain.EventEnded && ev.Cause == domain.CauseTimeout {
				fmt.Fprintln(out, "\nTime's up!")
			}
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := session.Start(name); err != nil {
		return domain.Result{}, err
	}

	for session.State() == domain.StateActive {
		question, ok := session.CurrentQuestion()
		if !ok {
			break
		}
		printQuestion(out, session.AskedCount()+1, question, session.TimeRemaining(), session.Score())

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			_ = session.End()
			break
		}
		input := strings.TrimSpace(line)

		switch strings.ToLower(input) {
		case "hint":
			if _, err := session.UseHint(); err != nil {
				if errors.Is(err, domain.ErrInsufficientScore) {
					fmt.Fprintln(out, "You need at least one point to use a hint.")
				}
				continue
			}
			fmt.Fprintf(out, "Hint: the answer is %s\n", answerText(question))
			continue
		case "quit":
			_ = session.End()
			continue
		}

		answer, ok := parseAnswer(question, input)
		if !ok {
			if question.EffectiveKind() == domain.KindChoice {
				fmt.Fprintf(out, "\nInvalid input. Please enter a letter A-%c.\n", 'A'+len(question.Options)-1)
			} else {
				fmt.Fprintln(out, "\nPlease type an answer.")
			}
			continue
		}
		outcome, err := session.SubmitAnswer(answer)
		if err != nil {
			break
		}
		if outcome.Correct {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Wrong. Correct answer was %s\n", answerText(question))
		}
	}

	result, err := session.Result()
	if err != nil {
		return domain.Result{}, err
	}
	fmt.Fprintf(out, "\nFinal score: %d/%d (%d%%) - %s\n", result.Score, result.AskedCount, result.Percentage, strings.ToUpper(string(result.Verdict)))
	return result, nil
}

func printQuestion(out io.Writer, number int, question domain.Question, remaining, score int) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "[%d:%02d left, score %d]\n", remaining/60, remaining%60, score)
	fmt.Fprintf(out, "Q%d: %s\n", number, question.Prompt)
	for i, option := range question.Options {
		fmt.Fprintf(out, "%c. %s\n", 'A'+i, option)
	}
	fmt.Fprintln(out)
}

// parseAnswer maps a letter to an option index for choice questions and
// passes text through otherwise.
func parseAnswer(question domain.Question, input string) (domain.Answer, bool) {
	if input == "" {
		return domain.Answer{}, false
	}
	if question.EffectiveKind() != domain.KindChoice {
		return domain.TextAnswer(input), true
	}
	letter := strings.ToUpper(input)
	if len(letter) != 1 {
		return domain.Answer{}, false
	}
	index := int(letter[0] - 'A')
	if index < 0 || index >= len(question.Options) {
		return domain.Answer{}, false
	}
	return domain.ChoiceAnswer(index), true
}

func answerText(question domain.Question) string {
	if question.EffectiveKind() == domain.KindChoice {
		if question.CorrectIndex >= 0 && question.CorrectIndex < len(question.Options) {
			return question.Options[question.CorrectIndex]
		}
		return ""
	}
	return question.ExpectedAnswer
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
