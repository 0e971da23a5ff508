package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"migration-pipeline-service/config"
	"migration-pipeline-service/internal/domain"
	"migration-pipeline-service/internal/infra"
	"migration-pipeline-service/internal/repository"
	"migration-pipeline-service/internal/usecase"
)

// runCmd はマイグレーション適用→テスト→条件付きロールバックの
// ライフサイクル全体を実行する。
func runCmd(cfg *config.Config) *cobra.Command {
	var (
		flags       targetFlags
		rollback    bool
		skip        bool
		testProject string
		resultsDir  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply migrations, run tests, roll back on failure",
		Long: "Capture the migration baseline, apply pending migrations, run the test suite,\n" +
			"and roll the database back to the baseline when tests fail",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := flags.target()
			if err != nil {
				return err
			}

			runner := infra.NewExecRunner()
			repo := repository.NewEFMigrationRepository(runner, cfg.CommandTimeout)
			tests := infra.NewDotnetTestRunner(runner, testProject, resultsDir, cfg.CommandTimeout)
			service := usecase.NewLifecycleService(repo, repo, repo, tests)

			run, err := service.Execute(cmd.Context(), usecase.LifecycleParams{
				Target:            target,
				SkipMigrations:    skip,
				RollbackOnFailure: rollback,
			})
			if run != nil && run.RolledBack {
				fmt.Printf("Rolled back to baseline %s\n", run.Baseline)
			}
			if err != nil {
				return err
			}

			if run.Applied == domain.NoBaseline {
				fmt.Println("No migrations applied.")
			} else {
				fmt.Printf("Current migration: %s\n", run.Applied)
			}
			return nil
		},
	}

	flags.register(cmd, cfg)
	cmd.Flags().BoolVar(&rollback, "rollback-on-failure", cfg.RollbackOnTestFailure, "Roll back to the baseline when tests fail")
	cmd.Flags().BoolVar(&skip, "skip-migrations", cfg.SkipMigrations, "Skip the whole migration lifecycle")
	cmd.Flags().StringVar(&testProject, "test-project", cfg.TestProject, "Test project to run (or set TEST_PROJECT)")
	cmd.Flags().StringVar(&resultsDir, "results-dir", cfg.TestResultsDir, "Directory for test result artifacts")
	return cmd
}
