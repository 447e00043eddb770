package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semgreptojira/models"
)

// テスト用のマッピングCSVを書き出します
func writeMappingCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProjectMapping(t *testing.T) {
	path := writeMappingCSV(t, "project,jira_project_id\nx,10001\ny,10002\n")

	mapping, err := LoadProjectMapping(path)

	require.NoError(t, err)
	assert.Equal(t, models.ProjectMapping{"x": 10001, "y": 10002}, mapping)
}

func TestLoadProjectMappingNonIntegerID(t *testing.T) {
	path := writeMappingCSV(t, "project,jira_project_id\nx,abc\n")

	_, err := LoadProjectMapping(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "数値ではありません")
}

func TestLoadProjectMappingMissingColumn(t *testing.T) {
	path := writeMappingCSV(t, "project,jira_project_id\nx,10001\nonly-one-column\n")

	_, err := LoadProjectMapping(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "カラムが不足")
}

func TestLoadProjectMappingMissingHeader(t *testing.T) {
	path := writeMappingCSV(t, "name,id\nx,10001\n")

	_, err := LoadProjectMapping(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "カラム")
}

func TestLoadProjectMappingEmptyFile(t *testing.T) {
	path := writeMappingCSV(t, "project,jira_project_id\n")

	_, err := LoadProjectMapping(path)

	require.Error(t, err)
}

func TestLoadProjectMappingFileNotFound(t *testing.T) {
	_, err := LoadProjectMapping(filepath.Join(t.TempDir(), "nope.csv"))

	require.Error(t, err)
}
