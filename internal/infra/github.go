package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"migration-pipeline-service/internal/domain"
)

// GitHubClient はGitHub Releases APIのクライアント。
type GitHubClient struct {
	baseURL    string
	repository string // "owner/name" 形式
	token      string
	httpClient *http.Client
}

// NewGitHubClient は新しいGitHubClientを生成する。
// HTTPトランスポートはotelhttpで計装される。
func NewGitHubClient(baseURL, repository, token string, timeout time.Duration) *GitHubClient {
	return &GitHubClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		repository: repository,
		token:      token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// releaseRequest はリリース作成APIのリクエストボディ。
type releaseRequest struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name,omitempty"`
	Body       string `json:"body,omitempty"`
	Prerelease bool   `json:"prerelease"`
}

// releaseResponse はリリース作成APIのレスポンスボディ。
type releaseResponse struct {
	ID        int64  `json:"id"`
	TagName   string `json:"tag_name"`
	HTMLURL   string `json:"html_url"`
	UploadURL string `json:"upload_url"`
}

// toDomain はレスポンスをドメインエンティティに変換する。
func (r *releaseResponse) toDomain() *domain.Release {
	return &domain.Release{
		ID:        r.ID,
		TagName:   r.TagName,
		HTMLURL:   r.HTMLURL,
		UploadURL: r.UploadURL,
	}
}

// CreateRelease はリリースを作成する。
func (c *GitHubClient) CreateRelease(ctx context.Context, spec domain.ReleaseSpec) (*domain.Release, error) {
	payload, err := json.Marshal(releaseRequest{
		TagName:    spec.TagName,
		Name:       spec.Name,
		Body:       spec.Body,
		Prerelease: spec.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding release request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/releases", c.baseURL, c.repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating release: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var release releaseResponse
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return release.toDomain(), nil
}

// UploadAsset はリリースへアセットをアップロードする。
// uploadURLはCreateReleaseが返したURLテンプレートをそのまま受け取る。
func (c *GitHubClient) UploadAsset(ctx context.Context, uploadURL, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading asset %s: %w", path, err)
	}

	// URLテンプレートの "{?name,label}" 部分を展開する
	endpoint, _, _ := strings.Cut(uploadURL, "{")
	endpoint += "?name=" + url.QueryEscape(filepath.Base(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading asset: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return decodeAPIError(resp.StatusCode, body)
	}
	return nil
}

func (c *GitHubClient) setHeaders(req *http.Request, contentType string) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", contentType)
}

// decodeAPIError はAPIのエラーレスポンスをエラーへ変換する。
func decodeAPIError(statusCode int, body []byte) error {
	var errResp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("github api error (status %d): %s", statusCode, errResp.Message)
	}
	return fmt.Errorf("github api returned status %d", statusCode)
}
