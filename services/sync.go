package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"semgreptojira/api"
	"semgreptojira/config"
	"semgreptojira/models"
	"semgreptojira/utils"
)

// SyncService はSemgrepのファインディングからJIRAチケットを作成する同期処理を担当します
type SyncService struct {
	config  *config.Config
	client  *api.SemgrepClient
	mapping models.ProjectMapping // nilの場合は設定のJiraProjectIDを全リポジトリに使う
}

// SyncOptions は1回の同期実行の挙動を指定します
type SyncOptions struct {
	Repo       string   // 空でなければプロジェクト一覧を取得せず単一リポジトリを処理する
	Severities []string // 対象の重大度（小文字）
	IssueType  string   // sast / sca
	DryRun     bool     // チケットを作成せずログ出力のみ
	Group      bool     // バケット単位でまとめてチケットを作成する
}

// NewSyncService は新しい同期サービスを作成します
func NewSyncService(cfg *config.Config, client *api.SemgrepClient, mapping models.ProjectMapping) *SyncService {
	return &SyncService{
		config:  cfg,
		client:  client,
		mapping: mapping,
	}
}

// Run は同期処理を実行します。プロジェクト一覧 → プレフィックス絞り込み →
// リポジトリごとのファインディング取得 → 重複排除・グループ化 → チケット作成、
// の順に逐次処理します。回復不能なAPIエラーが発生した時点で中断します。
func (s *SyncService) Run(opts SyncOptions) error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "同期処理")

	repos, err := s.resolveRepos(opts)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		utils.LogInfo("対象のプロジェクトが見つかりませんでした。終了します。")
		return nil
	}

	targetSeverities := make(map[string]bool, len(opts.Severities))
	for _, sev := range opts.Severities {
		targetSeverities[strings.ToLower(sev)] = true
	}

	// この実行内でチケット作成済みのイシューIDを記録する（実行をまたいだ永続化はしない）
	ticketed := NewTicketedSet()
	totalCreated := 0

	for _, repo := range repos {
		utils.LogInfo("[REPO] %s", repo)

		jiraProjectID, ok := s.resolveJiraProjectID(repo)
		if !ok {
			utils.LogWarn("  - マッピングCSVに '%s' のエントリがないためスキップします",
				s.projectSegment(repo))
			continue
		}

		created, err := s.syncRepo(repo, jiraProjectID, targetSeverities, opts, ticketed)
		if err != nil {
			return fmt.Errorf("リポジトリ %s の同期エラー: %w", repo, err)
		}
		totalCreated += created
	}

	utils.LogInfo("すべて完了しました。作成したチケット: %d 件", totalCreated)
	return nil
}

// resolveRepos は処理対象のリポジトリ一覧を決定します
func (s *SyncService) resolveRepos(opts SyncOptions) ([]string, error) {
	if opts.Repo != "" {
		repo := strings.TrimSpace(opts.Repo)
		utils.LogInfo("単一リポジトリモード: %s", repo)
		return []string{repo}, nil
	}

	projects, err := s.client.ListProjects(s.config.DeploymentSlug)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧取得エラー: %w", err)
	}

	var projectNames []string
	for _, p := range projects {
		// 名前を取り出せないレコードはスキップする（エラーにはしない）
		if name := models.GetProjectName(p); name != "" {
			projectNames = append(projectNames, name)
		}
	}

	var matching []string
	seen := make(map[string]bool)
	for _, name := range projectNames {
		if !strings.HasPrefix(name, s.config.ProjectPrefix) {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		matching = append(matching, name)
	}
	sort.Strings(matching)

	utils.LogInfo("プロジェクト %d 件中、プレフィックスに一致: %d 件", len(projectNames), len(matching))
	return matching, nil
}

// resolveJiraProjectID はリポジトリに対応するJIRAプロジェクトIDを決定します。
// マッピング利用時にエントリがない場合はfalseを返し、呼び出し側がスキップします。
func (s *SyncService) resolveJiraProjectID(repo string) (int, bool) {
	if s.mapping == nil {
		return s.config.JiraProjectID, true
	}

	id, ok := s.mapping[s.projectSegment(repo)]
	return id, ok
}

// projectSegment はプロジェクト名から設定済みプレフィックスを除いたセグメントを返します
func (s *SyncService) projectSegment(repo string) string {
	return strings.TrimPrefix(repo, s.config.ProjectPrefix)
}

// syncRepo は1リポジトリ分のファインディングを取得してチケットを作成します
func (s *SyncService) syncRepo(repo string, jiraProjectID int, targetSeverities map[string]bool, opts SyncOptions, ticketed *TicketedSet) (int, error) {
	findings, err := s.client.ListFindings(s.config.DeploymentSlug, api.FindingsFilter{
		Repo:       repo,
		Severities: opts.Severities,
		IssueType:  opts.IssueType,
		Status:     s.config.FindingsStatus,
		PageSize:   s.config.FindingsPageSize,
	})
	if err != nil {
		return 0, fmt.Errorf("ファインディング取得エラー: %w", err)
	}

	if len(findings) == 0 {
		utils.LogInfo("  - ファインディングなし")
		return 0, nil
	}

	fields := make([]models.FindingFields, 0, len(findings))
	for _, f := range findings {
		fields = append(fields, models.ExtractFindingFields(f))
	}

	selected := SelectFindings(fields, targetSeverities, ticketed)
	if len(selected) == 0 {
		utils.LogInfo("  - 対象のファインディングなし（取得 %d 件）", len(findings))
		return 0, nil
	}

	buckets := s.buildBuckets(selected, opts.Group)
	utils.LogInfo("  - ファインディング %d 件を %d バケットに分けました", len(selected), len(buckets))

	created := 0
	for _, bucket := range buckets {
		issueIDs := make([]int, 0, len(bucket.Findings))
		for _, f := range bucket.Findings {
			issueIDs = append(issueIDs, f.IssueID)
		}

		for _, chunk := range ChunkIssueIDs(issueIDs, s.config.MaxBatchSize) {
			payload := BuildTicketPayload(jiraProjectID, chunk, s.config.FindingsStatus,
				opts.Group, s.config.MaxBatchSize, bucket)

			if opts.DryRun {
				utils.LogInfo("  - DRY_RUN チケット作成予定: issue_ids=%v severity=%s rule=%s",
					chunk, bucket.Key.Severity, bucket.Key.RuleID)
				continue
			}

			resp, err := s.client.CreateTicket(s.config.DeploymentSlug, payload)
			if err != nil {
				return created, fmt.Errorf("チケット作成エラー: %w", err)
			}
			created++
			utils.LogInfo("  - チケット作成完了: issue_ids=%v レスポンスキー=%v", chunk, recordKeys(resp))
		}
	}

	utils.LogInfo("  - 完了。作成したチケット: %d 件", created)
	return created, nil
}

// buildBuckets はグループ化の有無に応じてバケットを構築します。
// グループ化しない場合は1ファインディング=1バケットです。
func (s *SyncService) buildBuckets(selected []models.FindingFields, group bool) []models.Bucket {
	if group {
		return GroupFindings(selected)
	}

	buckets := make([]models.Bucket, 0, len(selected))
	for _, f := range selected {
		buckets = append(buckets, models.Bucket{
			Key: models.BucketKey{
				Severity:   f.Severity,
				RuleID:     f.RuleID,
				IssueType:  f.IssueType,
				Confidence: f.Confidence,
			},
			Findings: []models.FindingFields{f},
		})
	}
	return buckets
}

// recordKeys はレスポンスのトップレベルキーをソートして返します（ログ用）
func recordKeys(record models.RawRecord) []string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
