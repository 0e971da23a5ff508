package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"migration-pipeline-service/internal/domain"
)

// SourceControl はソース管理操作のインターフェース。
type SourceControl interface {
	Tag(ctx context.Context, name, message string) error
	Push(ctx context.Context, remote, ref string) error
}

// ReleasePublisher はリリースを公開するインターフェース。
type ReleasePublisher interface {
	CreateRelease(ctx context.Context, spec domain.ReleaseSpec) (*domain.Release, error)
	UploadAsset(ctx context.Context, uploadURL, path string) error
}

// ReleaseService はタグ付け・プッシュ・リリース公開を調整する。
// 各ステップは単発の呼び出しであり、失敗はその場で致命的となる。
type ReleaseService struct {
	scm       SourceControl
	publisher ReleasePublisher
}

// NewReleaseService は新しいReleaseServiceを生成する。
func NewReleaseService(scm SourceControl, publisher ReleasePublisher) *ReleaseService {
	return &ReleaseService{
		scm:       scm,
		publisher: publisher,
	}
}

// Publish はタグを作成してプッシュし、リリースを公開してアセットを添付する。
// リリースノートは生成済みのテキストとして受け取る。
func (s *ReleaseService) Publish(ctx context.Context, spec domain.ReleaseSpec, remote string, assets []string) (*domain.Release, error) {
	if spec.TagName == "" {
		return nil, domain.ErrReleaseTagRequired
	}

	if err := s.scm.Tag(ctx, spec.TagName, spec.Name); err != nil {
		return nil, fmt.Errorf("tagging release: %w", err)
	}
	if err := s.scm.Push(ctx, remote, spec.TagName); err != nil {
		return nil, fmt.Errorf("pushing tag: %w", err)
	}

	release, err := s.publisher.CreateRelease(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("creating release: %w", err)
	}
	slog.InfoContext(ctx, "release created",
		"operation", "publish_release",
		"tag", release.TagName,
		"url", release.HTMLURL,
	)

	for _, asset := range assets {
		if err := s.publisher.UploadAsset(ctx, release.UploadURL, asset); err != nil {
			return nil, fmt.Errorf("uploading asset %s: %w", asset, err)
		}
		slog.InfoContext(ctx, "asset uploaded",
			"operation", "publish_release",
			"tag", release.TagName,
			"asset", asset,
		)
	}

	return release, nil
}
