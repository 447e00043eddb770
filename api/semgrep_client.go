package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"semgreptojira/config"
	"semgreptojira/models"
	"semgreptojira/utils"
)

// ページ内のリストを探す候補キー。エンティティ固有のキーを最優先で試します。
var batchKeys = []string{"data", "results"}

// 次ページのカーソルを探す候補キー
var cursorKeys = []string{"cursor", "next_cursor", "next"}

// レート制限・一時的なサーバーエラーとして再試行するステータスコード
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// SemgrepClient はSemgrep APIとのやり取りを処理します
type SemgrepClient struct {
	config *config.Config
	client *http.Client
}

// FindingsFilter はファインディング取得時の検索条件です
type FindingsFilter struct {
	Repo       string
	Severities []string
	IssueType  string
	Status     string
	PageSize   int
}

// NewSemgrepClient は新しいSemgrepクライアントを作成します
func NewSemgrepClient(cfg *config.Config) *SemgrepClient {
	return &SemgrepClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// request はリクエストを1回発行します。429および5xx系のエラーでは
// 一定時間スリープして同じリクエストを成功するまで再試行します。
// それ以外の失敗ステータスはステータスコードとレスポンスボディを含むエラーになります。
func (s *SemgrepClient) request(method, path string, params url.Values, body interface{}) (models.RawRecord, error) {
	reqURL := s.config.SemgrepBaseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var payloadBytes []byte
	if body != nil {
		var err error
		payloadBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("JSONエンコードエラー: %w", err)
		}
	}

	for {
		var reqBody io.Reader
		if payloadBytes != nil {
			reqBody = bytes.NewReader(payloadBytes)
		}

		req, err := http.NewRequest(method, reqURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+s.config.SemgrepToken)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
		}

		// レート制限・一時的なエラーは固定間隔で再試行する（上限なし）
		if retryableStatus[resp.StatusCode] {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			utils.LogDebug("ステータス %d を受信。%s 後に再試行します: %s %s",
				resp.StatusCode, s.config.RateLimitSleep, method, reqURL)
			time.Sleep(s.config.RateLimitSleep)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%s %s 失敗: ステータス %d\n%s", method, reqURL, resp.StatusCode, string(respBody))
		}

		var result models.RawRecord
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
		}

		return result, nil
	}
}

// ListProjects はデプロイメント内の全プロジェクトをカーソルページネーションで取得します
func (s *SemgrepClient) ListProjects(deploymentSlug string) ([]models.RawRecord, error) {
	path := fmt.Sprintf("/api/v1/deployments/%s/projects", deploymentSlug)

	var projects []models.RawRecord
	cursor := ""

	for {
		params := url.Values{}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		data, err := s.request(http.MethodGet, path, params, nil)
		if err != nil {
			return nil, err
		}

		batch, err := extractBatch(data, "projects")
		if err != nil {
			return nil, err
		}
		projects = append(projects, batch...)

		cursor = nextCursor(data)
		if cursor == "" {
			break
		}
	}

	return projects, nil
}

// ListFindings は1リポジトリのファインディングを検索条件付きで全ページ取得します
func (s *SemgrepClient) ListFindings(deploymentSlug string, filter FindingsFilter) ([]models.RawRecord, error) {
	path := fmt.Sprintf("/api/v1/deployments/%s/findings", deploymentSlug)

	var findings []models.RawRecord
	cursor := ""

	for {
		params := url.Values{}
		params.Set("repos", filter.Repo)
		params.Set("pageSize", fmt.Sprintf("%d", filter.PageSize))
		if filter.Status != "" {
			params.Set("status", filter.Status)
		}
		if len(filter.Severities) > 0 {
			params.Set("severities", strings.Join(filter.Severities, ","))
		}
		if filter.IssueType != "" {
			params.Set("issue_type", filter.IssueType)
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		data, err := s.request(http.MethodGet, path, params, nil)
		if err != nil {
			return nil, err
		}

		batch, err := extractBatch(data, "findings")
		if err != nil {
			return nil, err
		}
		findings = append(findings, batch...)

		cursor = nextCursor(data)
		if cursor == "" {
			break
		}
	}

	return findings, nil
}

// CreateTicket はファインディング群に対するチケットを作成します
func (s *SemgrepClient) CreateTicket(deploymentSlug string, payload map[string]interface{}) (models.RawRecord, error) {
	path := fmt.Sprintf("/api/v1/deployments/%s/tickets", deploymentSlug)
	return s.request(http.MethodPost, path, nil, payload)
}

// CheckAuth はSemgrep APIの認証情報を確認します（プロジェクト一覧の先頭ページを取得）
func (s *SemgrepClient) CheckAuth(deploymentSlug string) error {
	path := fmt.Sprintf("/api/v1/deployments/%s/projects", deploymentSlug)

	data, err := s.request(http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}

	_, err = extractBatch(data, "projects")
	return err
}

// extractBatch はレスポンスからレコードのリストを取り出します。
// どの候補キーにもリストが見つからない場合はAPIのレスポンス形式が
// 互換でないと判断し、エラーを返します（回復不能）。
func extractBatch(data models.RawRecord, entityKey string) ([]models.RawRecord, error) {
	for _, key := range append([]string{entityKey}, batchKeys...) {
		list, ok := data[key].([]interface{})
		if !ok {
			continue
		}

		batch := make([]models.RawRecord, 0, len(list))
		for _, item := range list {
			if rec, ok := item.(map[string]interface{}); ok {
				batch = append(batch, models.RawRecord(rec))
			}
		}
		return batch, nil
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return nil, fmt.Errorf("予期しないレスポンス形式です（%sのリストが見つかりません）。キー: %v", entityKey, keys)
}

// nextCursor は次ページのカーソルトークンを取り出します。見つからなければ空文字列です。
func nextCursor(data models.RawRecord) string {
	for _, key := range cursorKeys {
		if val, ok := data[key].(string); ok && val != "" {
			return val
		}
	}
	return ""
}
