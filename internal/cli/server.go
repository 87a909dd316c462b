package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timed-quiz/internal/app"
	"timed-quiz/internal/config"
	"timed-quiz/internal/domain"
	"timed-quiz/internal/engine"
	"timed-quiz/internal/infra/memory"
	pgloader "timed-quiz/internal/infra/postgres"
	redisstore "timed-quiz/internal/infra/redis"
	transport "timed-quiz/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the websocket quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	banks, closeBanks, err := newBankRepository(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeBanks()

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	defaults, err := cfg.Quiz.Engine()
	if err != nil {
		return err
	}
	service := app.NewQuizService(store, banks, defaults, engine.WithOptionCount(cfg.Quiz.Options()))
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newBankRepository picks the bank source: Postgres when configured, then a
// YAML file, then the built-in sample banks. Redis, when present, caches it.
func newBankRepository(ctx context.Context, cfg config.Config, redisClient *redis.Client) (app.BankRepository, func(), error) {
	closeFn := func() {}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		closeFn = pool.Close
		loader = pgloader.NewBankLoader(pool)
	case cfg.Banks.File != "":
		fileLoader, err := memory.NewFileBankLoader(cfg.Banks.File)
		if err != nil {
			return nil, nil, err
		}
		loader = fileLoader
	}

	ttl := config.TTLDuration(cfg.Banks.TTL, 10*time.Minute)
	if redisClient != nil {
		return redisstore.NewBankRepository(redisClient, loader, ttl), closeFn, nil
	}
	return memory.NewBankRepository(loader, ttl), closeFn, nil
}

// sampleBanks provides the two stock quizzes; swap in a file or Postgres loader for real content.
func sampleBanks() map[string]domain.Bank {
	return map[string]domain.Bank{
		"comptia": {
			ID:    "comptia",
			Title: "CompTIA A+ practice",
			Questions: []domain.Question{
				domain.NewChoiceQuestion("Which port does SSH use by default?", []string{"21", "22", "23", "25"}, 1),
				domain.NewChoiceQuestion("Which RAID level mirrors data across two disks?", []string{"RAID 0", "RAID 1", "RAID 5", "RAID 10"}, 1),
				domain.NewChoiceQuestion("Which command shows IP configuration on Windows?", []string{"ifconfig", "ipconfig", "netstat", "ping"}, 1),
				domain.NewChoiceQuestion("What does DHCP assign to clients automatically?", []string{"MAC addresses", "IP addresses", "Host names only", "Firmware"}, 1),
				domain.NewChoiceQuestion("Which connector is used for twisted-pair Ethernet?", []string{"RJ-11", "RJ-45", "BNC", "DB-9"}, 1),
			},
		},
		"ninja": {
			ID:    "ninja",
			Title: "Quiz Ninja",
			Questions: []domain.Question{
				domain.NewTextQuestion("What is Superman's real name?", "Clark Kent"),
				domain.NewTextQuestion("What is Wonder Woman's real name?", "Diana Prince"),
				domain.NewTextQuestion("What is Batman's real name?", "Bruce Wayne"),
			},
		},
	}
}
