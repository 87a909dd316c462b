package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"timed-quiz/internal/domain"

	"github.com/uptrace/bun"
)

// BankWriter upserts bank content; used by the seed command.
type BankWriter struct {
	db *bun.DB
}

func NewBankWriter(db *bun.DB) *BankWriter {
	return &BankWriter{db: db}
}

// Upsert stores the bank, replacing any existing content with the same id.
func (w *BankWriter) Upsert(ctx context.Context, bank domain.Bank) error {
	for i, q := range bank.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("bank %s question %d: %w", bank.ID, i, err)
		}
	}
	data, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	_, err = w.db.ExecContext(ctx,
		`INSERT INTO question_banks (id, title, data) VALUES (?, ?, ?::jsonb)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, data=EXCLUDED.data, updated_at=now()`,
		bank.ID, bank.Title, string(data))
	if err != nil {
		return fmt.Errorf("upsert bank %s: %w", bank.ID, err)
	}
	return nil
}
