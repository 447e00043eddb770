package services

import (
	"semgreptojira/models"
)

// TicketedSet はこの実行内でチケット作成済みのイシューIDを記録します。
// 1回の実行の中で同じイシューIDに対して複数のチケットを作らないことを保証します。
// プロセス終了とともに破棄され、実行をまたいだ永続化はしません。
type TicketedSet struct {
	ids map[int]struct{}
}

// NewTicketedSet は空のチケット済みセットを作成します
func NewTicketedSet() *TicketedSet {
	return &TicketedSet{ids: make(map[int]struct{})}
}

// Has はイシューIDが既にチケット済みかどうかを返します
func (t *TicketedSet) Has(issueID int) bool {
	_, ok := t.ids[issueID]
	return ok
}

// Add はイシューIDをチケット済みとして記録します
func (t *TicketedSet) Add(issueID int) {
	t.ids[issueID] = struct{}{}
}

// Len は記録済みのイシューID数を返します
func (t *TicketedSet) Len() int {
	return len(t.ids)
}

// SelectFindings は対象の重大度に一致し、かつ未チケットのファインディングだけを残します。
// 採用したイシューIDはこの時点でチケット済みセットに記録します（ドライランでも
// 重複排除の不変条件が成り立つようにするため）。
func SelectFindings(findings []models.FindingFields, targetSeverities map[string]bool, ticketed *TicketedSet) []models.FindingFields {
	var selected []models.FindingFields

	for _, f := range findings {
		if !f.HasIssueID {
			continue
		}
		if !targetSeverities[f.Severity] {
			continue
		}
		if ticketed.Has(f.IssueID) {
			continue
		}

		ticketed.Add(f.IssueID)
		selected = append(selected, f)
	}

	return selected
}

// GroupFindings はファインディングを（重大度・ルール・タイプ・確信度）のバケットに分けます。
// バケットは最初に出現した順、バケット内のファインディングは元の並び順を保ちます。
func GroupFindings(findings []models.FindingFields) []models.Bucket {
	var buckets []models.Bucket
	index := make(map[models.BucketKey]int)

	for _, f := range findings {
		key := models.BucketKey{
			Severity:   f.Severity,
			RuleID:     f.RuleID,
			IssueType:  f.IssueType,
			Confidence: f.Confidence,
		}

		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, models.Bucket{Key: key})
		}
		buckets[i].Findings = append(buckets[i].Findings, f)
	}

	return buckets
}

// ChunkIssueIDs はイシューIDのリストを最大maxSize件ずつの連続したチャンクに分割します
func ChunkIssueIDs(issueIDs []int, maxSize int) [][]int {
	var chunks [][]int

	for start := 0; start < len(issueIDs); start += maxSize {
		end := start + maxSize
		if end > len(issueIDs) {
			end = len(issueIDs)
		}
		chunks = append(chunks, issueIDs[start:end])
	}

	return chunks
}

// BuildTicketPayload はチケット作成リクエストのペイロードを構築します。
// 値が判明しているフィールドだけを含め、不明なフィールドは一切入れません。
func BuildTicketPayload(jiraProjectID int, issueIDs []int, status string, grouped bool, batchSize int, bucket models.Bucket) map[string]interface{} {
	payload := map[string]interface{}{
		"jira_project_id": jiraProjectID,
		"issue_ids":       issueIDs,
		"status":          status,
		"grouped":         grouped,
		"batch_size":      batchSize,
	}

	if bucket.Key.IssueType != "" {
		payload["issue_type"] = bucket.Key.IssueType
	}
	if bucket.Key.Confidence != "" {
		payload["confidence"] = bucket.Key.Confidence
	}
	if bucket.Key.RuleID != "" {
		payload["rules"] = []string{bucket.Key.RuleID}
	}

	// バケット内の重大度を出現順のまま重複排除して付与する
	if severities := uniqueSeverities(bucket.Findings); len(severities) > 0 {
		payload["severities"] = severities
	}

	return payload
}

// uniqueSeverities はファインディング群の重大度を出現順を保ったまま重複排除します
func uniqueSeverities(findings []models.FindingFields) []string {
	var severities []string
	seen := make(map[string]bool)

	for _, f := range findings {
		if f.Severity == "" || seen[f.Severity] {
			continue
		}
		seen[f.Severity] = true
		severities = append(severities, f.Severity)
	}

	return severities
}
