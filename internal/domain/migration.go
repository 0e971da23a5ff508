// Package domain はドメインモデルとビジネスルールを定義する。
package domain

// MigrationName は外部マイグレーションツールが割り当てる不透明な識別子。
// マイグレーション間の順序はツール自身の一覧出力順（古い順）で決まり、
// このシステムでは再計算しない。
type MigrationName string

// NoBaseline は「適用済みマイグレーションが存在しない」ことを表す番兵値。
// ベースラインがこの値の場合、ロールバックは抑止される。
const NoBaseline MigrationName = "0"

// MigrationStatus はマイグレーションの適用状態を表す
type MigrationStatus string

const (
	MigrationStatusPending MigrationStatus = "pending"
	MigrationStatusApplied MigrationStatus = "applied"
)

// MigrationRecord は1回の一覧取得で観測された単一マイグレーションの状態。
// 状態は取得時点のものであり、このシステムでは永続化しない。
type MigrationRecord struct {
	Name   MigrationName
	Status MigrationStatus
}

// MigrationSnapshot は外部ツールが報告した順序のままのマイグレーション列。
type MigrationSnapshot []MigrationRecord

// LastNonPending は末尾から走査して最初に見つかるPending以外のエントリの
// 名前を返す。該当がない場合はNoBaselineを返す。
func (s MigrationSnapshot) LastNonPending() MigrationName {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Status != MigrationStatusPending {
			return s[i].Name
		}
	}
	return NoBaseline
}

// LastApplied は末尾から走査して最初に見つかるAppliedのエントリの名前を返す。
// 該当がない場合はNoBaselineを返す。
func (s MigrationSnapshot) LastApplied() MigrationName {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Status == MigrationStatusApplied {
			return s[i].Name
		}
	}
	return NoBaseline
}

// Target はInspector/Applier/Reverterの1回の呼び出しに渡す実行コンテキスト。
// 各サービスはステートレスであり、呼び出しごとに明示的に受け取る。
type Target struct {
	Environment      string // 対象アプリ環境名
	HomeDir          string // ツール実行時の作業ディレクトリ
	MigrationsFolder string // マイグレーション定義を含むプロジェクトのパス
	UseGlobalTool    bool   // マシングローバルのツールを使うか（falseはプロジェクトローカル）
}
