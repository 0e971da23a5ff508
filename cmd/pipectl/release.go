package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"migration-pipeline-service/config"
	"migration-pipeline-service/internal/domain"
	"migration-pipeline-service/internal/infra"
	"migration-pipeline-service/internal/usecase"
)

// releaseCmd はタグ付け・プッシュ・リリース公開を実行する。
func releaseCmd(cfg *config.Config) *cobra.Command {
	var (
		tag        string
		name       string
		notesFile  string
		remote     string
		prerelease bool
		assets     []string
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Tag, push and publish a release",
		Long:  "Create an annotated tag, push it, publish a release and upload assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.GitHubRepository == "" {
				return fmt.Errorf("GITHUB_REPOSITORY environment variable is required")
			}
			if cfg.GitHubToken == "" {
				return fmt.Errorf("GITHUB_TOKEN environment variable is required")
			}

			var body string
			if notesFile != "" {
				data, err := os.ReadFile(notesFile)
				if err != nil {
					return fmt.Errorf("reading release notes: %w", err)
				}
				body = string(data)
			}

			runner := infra.NewExecRunner()
			git := infra.NewGitClient(runner, cfg.HomeDir)
			gh := infra.NewGitHubClient(cfg.GitHubAPIURL, cfg.GitHubRepository, cfg.GitHubToken, 30*time.Second)
			service := usecase.NewReleaseService(git, gh)

			release, err := service.Publish(cmd.Context(), domain.ReleaseSpec{
				TagName:    tag,
				Name:       name,
				Body:       body,
				Prerelease: prerelease,
			}, remote, assets)
			if err != nil {
				return err
			}

			fmt.Printf("Created release %s: %s\n", release.TagName, release.HTMLURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Tag name for the release (required)")
	cmd.Flags().StringVar(&name, "name", "", "Release title (defaults to the tag name)")
	cmd.Flags().StringVar(&notesFile, "notes-file", "", "File containing the release notes body")
	cmd.Flags().StringVar(&remote, "remote", "origin", "Remote to push the tag to")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Mark the release as a prerelease")
	cmd.Flags().StringArrayVar(&assets, "asset", nil, "Asset file to upload (repeatable)")
	cmd.MarkFlagRequired("tag")
	return cmd
}
