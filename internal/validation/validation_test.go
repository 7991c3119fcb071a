package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCfnLintResult_TotalIssues(t *testing.T) {
	tests := []struct {
		name     string
		result   CfnLintResult
		expected int
	}{
		{
			name:     "empty result",
			result:   CfnLintResult{},
			expected: 0,
		},
		{
			name: "errors only",
			result: CfnLintResult{
				Errors: []string{"error1", "error2"},
			},
			expected: 2,
		},
		{
			name: "mixed levels",
			result: CfnLintResult{
				Errors:        []string{"error1"},
				Warnings:      []string{"warning1"},
				Informational: []string{"info1", "info2"},
			},
			expected: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.TotalIssues())
		})
	}
}

func TestLintFile_MissingFile(t *testing.T) {
	result, err := LintFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not found")
}

func TestLintFile_ValidTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")

	content := `AWSTemplateFormatVersion: "2010-09-09"
Resources:
  OrdbAlertLogGroup:
    Type: AWS::Logs::LogGroup
    Properties:
      LogGroupName: /aws/rds/instance/ordb/alert
      RetentionInDays: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	result, err := LintFile(path)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Errors)
}
