package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"semgreptojira/models"
	"semgreptojira/utils"
)

// マッピングCSVの必須カラム名
const (
	mappingProjectColumn = "project"
	mappingJiraIDColumn  = "jira_project_id"
)

// LoadProjectMapping はプロジェクト名のセグメント → JIRAプロジェクトID の
// マッピングCSVを読み込みます。ヘッダー行で必須カラムの位置を特定し、
// 不正な行（カラム不足、数値でないID）はロード時点でエラーにします。
func LoadProjectMapping(filePath string) (models.ProjectMapping, error) {
	utils.LogInfo("プロジェクトマッピングCSV '%s' を読み込みます", filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("マッピングCSVオープンエラー: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// ヘッダーと行でカラム数が揃っていないCSVも受け付け、行ごとに検証する
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("マッピングCSV読み込みエラー: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("マッピングデータが不足しています")
	}

	headers := records[0]
	projectIndex, idIndex := -1, -1

	for i, header := range headers {
		switch header {
		case mappingProjectColumn:
			projectIndex = i
		case mappingJiraIDColumn:
			idIndex = i
		}
	}

	if projectIndex == -1 || idIndex == -1 {
		return nil, fmt.Errorf("マッピングに必要なカラム（%s, %s）が見つかりません",
			mappingProjectColumn, mappingJiraIDColumn)
	}

	mapping := make(models.ProjectMapping)
	for i, record := range records[1:] {
		rowNum := i + 2 // ヘッダーを含む1始まりの行番号

		if len(record) <= projectIndex || len(record) <= idIndex {
			return nil, fmt.Errorf("行 %d: カラムが不足しています", rowNum)
		}

		project := record[projectIndex]
		if project == "" {
			return nil, fmt.Errorf("行 %d: プロジェクト名が空です", rowNum)
		}

		jiraID, err := strconv.Atoi(record[idIndex])
		if err != nil {
			return nil, fmt.Errorf("行 %d: JIRAプロジェクトIDが数値ではありません: %q", rowNum, record[idIndex])
		}

		mapping[project] = jiraID
	}

	utils.LogInfo("プロジェクトマッピングをロードしました: %d 件", len(mapping))
	return mapping, nil
}
