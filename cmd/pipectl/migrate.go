package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"migration-pipeline-service/config"
	"migration-pipeline-service/internal/domain"
	"migration-pipeline-service/internal/infra"
	"migration-pipeline-service/internal/repository"
)

// targetFlags はマイグレーション対象を指定する共通フラグ。
type targetFlags struct {
	environment      string
	home             string
	migrationsFolder string
	globalTool       bool
}

func (f *targetFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&f.environment, "environment", cfg.Environment, "Target app environment (or set PIPELINE_ENVIRONMENT)")
	cmd.Flags().StringVar(&f.home, "home", cfg.HomeDir, "Working directory for tool invocations")
	cmd.Flags().StringVar(&f.migrationsFolder, "project", cfg.MigrationsFolder, "Project containing migration definitions")
	cmd.Flags().BoolVar(&f.globalTool, "global-tool", cfg.UseGlobalTool, "Use the machine-global migration tool install")
}

func (f *targetFlags) target() (domain.Target, error) {
	if f.environment == "" {
		return domain.Target{}, fmt.Errorf("--environment is required (or set PIPELINE_ENVIRONMENT): %w", domain.ErrEnvironmentRequired)
	}
	return domain.Target{
		Environment:      f.environment,
		HomeDir:          f.home,
		MigrationsFolder: f.migrationsFolder,
		UseGlobalTool:    f.globalTool,
	}, nil
}

// newMigrateCmd はマイグレーション管理コマンドを生成する。
func newMigrateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  "Manage database migrations through the external migration tool",
	}
	cmd.AddCommand(migrateUpCmd(cfg))
	cmd.AddCommand(migrateStatusCmd(cfg))
	cmd.AddCommand(migrateRollbackCmd(cfg))
	return cmd
}

// migrateUpCmd は保留中マイグレーションを最新まで適用する。
func migrateUpCmd(cfg *config.Config) *cobra.Command {
	var flags targetFlags
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long:  "Apply all pending migrations to the target environment's database",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := flags.target()
			if err != nil {
				return err
			}

			repo := repository.NewEFMigrationRepository(infra.NewExecRunner(), cfg.CommandTimeout)
			current, err := repo.ApplyPending(cmd.Context(), target)
			if err != nil {
				return err
			}

			if current == domain.NoBaseline {
				fmt.Println("No migrations applied.")
			} else {
				fmt.Printf("Current migration: %s\n", current)
			}
			return nil
		},
	}
	flags.register(cmd, cfg)
	return cmd
}

// migrateStatusCmd はマイグレーションの適用状況を表示する。
func migrateStatusCmd(cfg *config.Config) *cobra.Command {
	var flags targetFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  "Show the status of all migrations (applied/pending)",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := flags.target()
			if err != nil {
				return err
			}

			repo := repository.NewEFMigrationRepository(infra.NewExecRunner(), cfg.CommandTimeout)
			snapshot, err := repo.ListMigrations(cmd.Context(), target)
			if err != nil {
				return err
			}

			// テーブル形式で出力
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATUS")
			fmt.Fprintln(w, "----\t------")
			for _, record := range snapshot {
				fmt.Fprintf(w, "%s\t%s\n", record.Name, record.Status)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to flush output: %w", err)
			}

			fmt.Printf("\nLast applied: %s\n", snapshot.LastApplied())
			return nil
		},
	}
	flags.register(cmd, cfg)
	return cmd
}

// migrateRollbackCmd はデータベースを指定マイグレーションへ戻す。
func migrateRollbackCmd(cfg *config.Config) *cobra.Command {
	var flags targetFlags
	var rollbackTarget string
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Move the database to a named migration",
		Long:  "Move the database forward or backward to an explicitly named migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := flags.target()
			if err != nil {
				return err
			}
			if rollbackTarget == "" {
				return fmt.Errorf("--target is required: %w", domain.ErrRollbackTargetRequired)
			}

			repo := repository.NewEFMigrationRepository(infra.NewExecRunner(), cfg.CommandTimeout)
			if err := repo.RevertTo(cmd.Context(), target, domain.MigrationName(rollbackTarget)); err != nil {
				return err
			}

			fmt.Printf("Database moved to migration %s\n", rollbackTarget)
			return nil
		},
	}
	flags.register(cmd, cfg)
	cmd.Flags().StringVar(&rollbackTarget, "target", "", "Migration name to move the database to (required)")
	return cmd
}
