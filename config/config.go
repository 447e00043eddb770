package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Semgrep API設定
	SemgrepBaseURL string
	SemgrepToken   string
	DeploymentSlug string

	// JIRAプロジェクトの指定（固定ID、またはマッピングCSVのどちらか一方）
	JiraProjectID     int
	HasJiraProjectID  bool
	ProjectMappingCSV string

	// 検索条件
	ProjectPrefix    string
	FindingsPageSize int
	FindingsStatus   string

	// チケット作成の挙動
	MaxBatchSize int

	// HTTPの挙動
	RequestTimeout time.Duration
	RateLimitSleep time.Duration
}

// LoadConfig は環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	config := &Config{
		SemgrepBaseURL:    strings.TrimRight(getEnvWithDefault("SEMGREP_BASE_URL", "https://semgrep.dev"), "/"),
		SemgrepToken:      strings.TrimSpace(os.Getenv("SEMGREP_TOKEN")),
		DeploymentSlug:    strings.TrimSpace(os.Getenv("DEPLOYMENT_SLUG")),
		ProjectMappingCSV: strings.TrimSpace(os.Getenv("PROJECT_MAPPING_CSV")),
		ProjectPrefix:     os.Getenv("PROJECT_PREFIX"),
		FindingsPageSize:  getEnvAsIntWithDefault("FINDINGS_PAGE_SIZE", 200),
		FindingsStatus:    getEnvWithDefault("FINDINGS_STATUS", "open"),
		MaxBatchSize:      getEnvAsIntWithDefault("MAX_BATCH_SIZE", 200),
		RequestTimeout:    time.Duration(getEnvAsIntWithDefault("REQUEST_TIMEOUT_S", 30)) * time.Second,
		RateLimitSleep:    time.Duration(getEnvAsIntWithDefault("RATE_LIMIT_SLEEP_S", 2)) * time.Second,
	}

	// JIRA_PROJECT_IDはマッピングCSVと同じ型で扱うため数値として検証する
	if raw := strings.TrimSpace(os.Getenv("JIRA_PROJECT_ID")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("JIRA_PROJECT_IDが数値ではありません: %q", raw)
		}
		config.JiraProjectID = id
		config.HasJiraProjectID = true
	}

	return config, nil
}

// Validate は必須設定の有無を確認し、不足項目のリストを返します。
// 不足がある場合、呼び出し側はネットワークアクセスの前に終了コード2で終了します。
func (c *Config) Validate() []string {
	var missing []string

	if c.SemgrepToken == "" {
		missing = append(missing, "SEMGREP_TOKEN")
	}
	if c.DeploymentSlug == "" {
		missing = append(missing, "DEPLOYMENT_SLUG")
	}
	if !c.HasJiraProjectID && c.ProjectMappingCSV == "" {
		missing = append(missing, "JIRA_PROJECT_ID または PROJECT_MAPPING_CSV")
	}

	return missing
}

// ValidateExclusive はJIRAプロジェクトの指定が一方だけであることを確認します
func (c *Config) ValidateExclusive() error {
	if c.HasJiraProjectID && c.ProjectMappingCSV != "" {
		return fmt.Errorf("JIRA_PROJECT_IDとPROJECT_MAPPING_CSVは同時に指定できません")
	}
	return nil
}

// デフォルト値付きで環境変数を取得
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// デフォルト値付きで環境変数を整数として取得
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
