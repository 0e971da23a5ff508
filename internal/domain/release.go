package domain

// ReleaseSpec はリリース作成のパラメータ。
type ReleaseSpec struct {
	TagName    string // リリース対象のタグ名
	Name       string // リリースのタイトル
	Body       string // リリースノート本文（生成済みのテキストを受け取る）
	Prerelease bool
}

// Release は公開されたリリースの情報。
type Release struct {
	ID        int64
	TagName   string
	HTMLURL   string
	UploadURL string // アセットアップロード先のURLテンプレート
}
