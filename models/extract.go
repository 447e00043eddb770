package models

import "strings"

// プロジェクト名の候補キー（優先順）。上流のスキーマが安定していないため複数試します。
var projectNameKeys = []string{"name", "project_name", "repo", "repository", "full_name", "slug"}

// GetProjectName はプロジェクトレコードから表示名を取り出します。
// どのキーにも見つからない場合は空文字列を返します（エラーにはしません）。
func GetProjectName(project RawRecord) string {
	for _, key := range projectNameKeys {
		if val, ok := project[key].(string); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// ExtractFindingFields はファインディングからチケット作成に関わるフィールドを
// ベストエフォートで抽出します。キーごとに複数の候補を優先順で試し、
// 最初に見つかった値を採用します。見つからないフィールドは単に省略されます。
func ExtractFindingFields(finding RawRecord) FindingFields {
	var fields FindingFields

	// イシューID（数値のみ受け付ける。JSONデコード後はfloat64になる点に注意）
	for _, key := range []string{"id", "issue_id", "finding_id"} {
		if id, ok := asInt(finding[key]); ok {
			fields.IssueID = id
			fields.HasIssueID = true
			break
		}
	}

	metadata, _ := finding["metadata"].(map[string]interface{})

	// イシュータイプ（sast / sca / secrets など）
	fields.IssueType = strings.ToLower(probeString(finding, metadata,
		[]string{"issue_type", "type", "category"}, "issue_type"))

	// 重大度
	fields.Severity = strings.ToLower(probeString(finding, metadata,
		[]string{"severity", "rule_severity"}, "severity"))

	// ルール識別子
	fields.RuleID = probeString(finding, metadata,
		[]string{"rule_name", "rule", "check_id"}, "")

	// 確信度
	fields.Confidence = strings.ToLower(probeString(finding, metadata,
		[]string{"confidence", "rule_confidence"}, "confidence"))

	// リポジトリ名（文字列、または {"name": ...} オブジェクトの両方がありえる）
	for _, key := range []string{"repo", "repository"} {
		switch val := finding[key].(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				fields.Repo = strings.TrimSpace(val)
			}
		case map[string]interface{}:
			if name, ok := val["name"].(string); ok && strings.TrimSpace(name) != "" {
				fields.Repo = strings.TrimSpace(name)
			}
		}
		if fields.Repo != "" {
			break
		}
	}

	// 依存パッケージの識別子リスト（文字列以外の要素はスキップ）
	for _, key := range []string{"dependencies", "found_dependencies", "dependency_identifiers"} {
		list, ok := finding[key].([]interface{})
		if !ok {
			continue
		}
		for _, item := range list {
			if dep, ok := item.(string); ok && dep != "" {
				fields.Dependencies = append(fields.Dependencies, dep)
			}
		}
		if len(fields.Dependencies) > 0 {
			break
		}
	}

	return fields
}

// probeString はトップレベルの候補キーを順に試し、最後にmetadata配下のキーを試します
func probeString(finding RawRecord, metadata map[string]interface{}, keys []string, metadataKey string) string {
	for _, key := range keys {
		if val, ok := finding[key].(string); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	if metadataKey != "" && metadata != nil {
		if val, ok := metadata[metadataKey].(string); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// asInt はJSON由来の数値をintに変換します
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
