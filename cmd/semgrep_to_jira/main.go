package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"semgreptojira/api"
	"semgreptojira/config"
	"semgreptojira/models"
	"semgreptojira/services"
	"semgreptojira/utils"
)

func main() {
	// コマンドラインフラグの定義
	repo := flag.String("repo", "", "単一リポジトリのみ処理する（プロジェクト一覧の取得をスキップ）")
	severities := flag.String("severities", "high,critical", "対象の重大度（カンマ区切り）")
	issueType := flag.String("issue-type", "sast", "対象のイシュータイプ (sast または sca)")
	dryRun := flag.Bool("dry-run", true, "チケットを作成せずログ出力のみ行う（-dry-run=false で実際に作成）")
	group := flag.Bool("group", true, "重大度・ルール・タイプ・確信度ごとにまとめてチケットを作成する")
	batchSize := flag.Int("batch-size", 0, "1チケットあたりの最大イシュー数（0の場合は環境変数の値を使用）")
	prefix := flag.String("prefix", "", "対象プロジェクト名のプレフィックス（空の場合は環境変数の値を使用）")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(2)
	}

	// フラグによる設定の上書き（指定された場合のみ）
	if *batchSize > 0 {
		cfg.MaxBatchSize = *batchSize
	}
	if *prefix != "" {
		cfg.ProjectPrefix = *prefix
	}

	// 対象の重大度のパース
	targetSeverities := parseSeverities(*severities)
	if len(targetSeverities) == 0 {
		utils.LogError("-severities には少なくとも1つの値が必要です")
		os.Exit(2)
	}

	// イシュータイプの検証
	if *issueType != "sast" && *issueType != "sca" {
		utils.LogError("-issue-type は sast または sca を指定してください: %q", *issueType)
		os.Exit(2)
	}

	// 必須設定の検証（ネットワークアクセスの前に行う）
	if missing := cfg.Validate(); len(missing) > 0 {
		for _, name := range missing {
			utils.LogError("%s が設定されていません", name)
		}
		os.Exit(2)
	}
	if err := cfg.ValidateExclusive(); err != nil {
		utils.LogError("%v", err)
		os.Exit(2)
	}
	if cfg.MaxBatchSize <= 0 {
		utils.LogError("バッチサイズは1以上を指定してください: %d", cfg.MaxBatchSize)
		os.Exit(2)
	}

	// マッピングCSVの読み込み（不正な行はこの時点でエラーになる）
	var mapping models.ProjectMapping
	if cfg.ProjectMappingCSV != "" {
		mapping, err = services.LoadProjectMapping(cfg.ProjectMappingCSV)
		if err != nil {
			utils.LogError("マッピングCSVの読み込みに失敗しました: %v", err)
			os.Exit(2)
		}
	}

	utils.LogInfo("Semgrep → JIRA チケット同期ツール")
	utils.LogInfo("Semgrep base URL: %s", cfg.SemgrepBaseURL)
	utils.LogInfo("デプロイメント:   %s", cfg.DeploymentSlug)
	utils.LogInfo("プレフィックス:   %q", cfg.ProjectPrefix)
	utils.LogInfo("重大度:           %v", targetSeverities)
	utils.LogInfo("イシュータイプ:   %s", *issueType)
	utils.LogInfo("グループ化:       %t / バッチサイズ: %d", *group, cfg.MaxBatchSize)
	utils.LogInfo("DRY_RUN:          %t", *dryRun)

	// 必要なサービスの初期化
	client := api.NewSemgrepClient(cfg)
	syncService := services.NewSyncService(cfg, client, mapping)

	// 同期の実行
	err = syncService.Run(services.SyncOptions{
		Repo:       *repo,
		Severities: targetSeverities,
		IssueType:  *issueType,
		DryRun:     *dryRun,
		Group:      *group,
	})
	if err != nil {
		utils.LogError("同期処理に失敗しました: %v", err)
		os.Exit(1)
	}
}

// parseSeverities はカンマ区切りの重大度リストをパースします（小文字化、空要素は除外）
func parseSeverities(raw string) []string {
	var severities []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			severities = append(severities, s)
		}
	}
	return severities
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Semgrep → JIRA チケット同期ツール

使用方法:
  %s [オプション]

オプション:
  -repo=REPO          単一リポジトリのみ処理する
  -severities=LIST    対象の重大度（カンマ区切り、デフォルト: high,critical）
  -issue-type=TYPE    対象のイシュータイプ（sast または sca、デフォルト: sast）
  -dry-run=BOOL       チケットを作成せずログ出力のみ行う（デフォルト: true）
  -group=BOOL         バケット単位でまとめてチケットを作成する（デフォルト: true）
  -batch-size=N       1チケットあたりの最大イシュー数
  -prefix=PREFIX      対象プロジェクト名のプレフィックス
  -help               このヘルプを表示する

環境変数:
  SEMGREP_TOKEN        Semgrep APIトークン (必須)
  DEPLOYMENT_SLUG      デプロイメントのスラッグ (必須)
  JIRA_PROJECT_ID      JIRAプロジェクトID (PROJECT_MAPPING_CSVと排他、どちらか必須)
  PROJECT_MAPPING_CSV  プロジェクト → JIRAプロジェクトID のマッピングCSV
  SEMGREP_BASE_URL     SemgrepのベースURL（デフォルト: https://semgrep.dev）
  PROJECT_PREFIX       対象プロジェクト名のプレフィックス
  FINDINGS_PAGE_SIZE   ファインディング取得のページサイズ（デフォルト: 200）
  FINDINGS_STATUS      対象のステータス（デフォルト: open）
  MAX_BATCH_SIZE       1チケットあたりの最大イシュー数（デフォルト: 200）
  REQUEST_TIMEOUT_S    リクエストタイムアウト秒数（デフォルト: 30）
  RATE_LIMIT_SLEEP_S   429/5xx時の再試行間隔秒数（デフォルト: 2）

終了コード:
  0  正常終了（対象なしを含む）
  2  必須設定の不足・不正
  1  実行中の回復不能なエラー
`, os.Args[0])
}
