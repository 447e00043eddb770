package main

import (
	"flag"
	"fmt"
	"os"

	"semgreptojira/api"
	"semgreptojira/config"
	"semgreptojira/utils"
)

func main() {
	// ヘルプフラグの定義
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	utils.LogInfo("Semgrep認証確認ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(2)
	}

	// トークンとスラッグだけを確認する（JIRAプロジェクトの指定は不要）
	if cfg.SemgrepToken == "" {
		utils.LogError("SEMGREP_TOKEN が設定されていません")
		os.Exit(2)
	}
	if cfg.DeploymentSlug == "" {
		utils.LogError("DEPLOYMENT_SLUG が設定されていません")
		os.Exit(2)
	}

	// Semgrepクライアントの初期化
	client := api.NewSemgrepClient(cfg)

	// 認証チェック
	utils.LogInfo("Semgrep APIの認証を確認しています...")
	err = client.CheckAuth(cfg.DeploymentSlug)
	if err != nil {
		utils.LogError("Semgrep認証エラー: %v", err)
		utils.LogError("認証情報を確認してください。")
		os.Exit(1)
	}

	utils.LogInfo("Semgrep認証成功！ 接続先: %s", cfg.SemgrepBaseURL)
	utils.LogInfo("Semgrep APIの認証情報は正常です。")
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Semgrep認証確認ツール

使用方法:
  %s [オプション]

オプション:
  -help               このヘルプを表示する

環境変数:
  SEMGREP_TOKEN       Semgrep APIトークン (必須)
  DEPLOYMENT_SLUG     デプロイメントのスラッグ (必須)
  SEMGREP_BASE_URL    SemgrepのベースURL（デフォルト: https://semgrep.dev）

説明:
  このツールはSemgrep APIの認証情報が正しく設定されているかを確認します。
  認証が成功すれば、同期ツールも正常に動作する可能性が高いです。
`, os.Args[0])
}
