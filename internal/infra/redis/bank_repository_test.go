package redis

import (
	"context"
	"testing"
	"time"

	"timed-quiz/internal/domain"
	"timed-quiz/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(map[string]domain.Bank{
			"bank-1": sampleBank(),
		}),
	}
	repo := NewBankRepository(client, loader, time.Minute)

	bank, err := repo.GetBank(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("bank:bank-1") {
		t.Fatalf("expected bank cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetBank(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("get cached bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != len(bank.Questions) || cached.Questions[0].Prompt != "What is 2 + 2?" {
		t.Fatalf("cached bank lost content: %+v", cached)
	}

	if err := repo.Invalidate(context.Background(), "bank-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetBank(context.Background(), "bank-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, bankID string) (domain.Bank, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, bankID)
}

func sampleBank() domain.Bank {
	return domain.Bank{
		ID: "bank-1",
		Questions: []domain.Question{
			domain.NewChoiceQuestion("What is 2 + 2?", []string{"3", "4"}, 1),
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
