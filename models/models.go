package models

// RawRecord はSemgrep APIが返すプロジェクト・ファインディングの生レコードを表します。
// 上流のスキーマは安定していないため、マップのまま保持して必要なフィールドだけを抽出します。
type RawRecord map[string]interface{}

// FindingFields はファインディングから抽出したチケット作成に必要なフィールドを表します。
// 抽出できなかったフィールドはゼロ値のまま残ります（エラーにはしません）。
type FindingFields struct {
	IssueID      int
	HasIssueID   bool
	Severity     string
	IssueType    string
	RuleID       string
	Repo         string
	Confidence   string
	Dependencies []string
}

// BucketKey はチケットをまとめる際のグループ化キーです。
// 同じ重大度・ルール・タイプ・確信度のファインディングを1つのバケットに入れます。
type BucketKey struct {
	Severity   string
	RuleID     string
	IssueType  string
	Confidence string
}

// Bucket は同一キーのファインディング群を表します（元の並び順を保持）
type Bucket struct {
	Key      BucketKey
	Findings []FindingFields
}

// ProjectMapping はプロジェクト名のセグメント → JIRAプロジェクトID のマッピングです
type ProjectMapping map[string]int
