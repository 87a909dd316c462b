package cli

import (
	"fmt"
	"log"

	"timed-quiz/internal/config"
	"timed-quiz/internal/infra/memory"
	pgstore "timed-quiz/internal/infra/postgres"

	"github.com/spf13/cobra"
)

// NewSeedCmd loads a YAML bank file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert question banks from a YAML file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Banks.File
			}
			if file == "" {
				return fmt.Errorf("no bank file given (--file or banks.file)")
			}
			banks, err := memory.ReadBankFile(file)
			if err != nil {
				return err
			}

			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			db, err := openBunDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			writer := pgstore.NewBankWriter(db)
			for _, bank := range banks {
				if err := writer.Upsert(cmd.Context(), bank); err != nil {
					return err
				}
				log.Printf("seeded bank %s (%d questions)", bank.ID, len(bank.Questions))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML bank file (defaults to banks.file)")
	return cmd
}
