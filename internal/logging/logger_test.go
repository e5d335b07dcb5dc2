package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, tempDir string, debug bool) {
	t.Helper()
	configDir := filepath.Join(tempDir, ".ragrt")
	require.NoError(t, os.MkdirAll(configDir, 0755))

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": ` + boolStr(debug) + `,
			"categories": {
				"boot": true,
				"controller": true,
				"scorer": true,
				"vector_store": true,
				"rag": true,
				"retrieval": true,
				"orchestrator": true,
				"audit": true,
				"embedding": true,
				"generator": true
			},
			"json_format": false
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644))
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func resetLoggingState() {
	CloseAll()
	configLoaded = false
	config = loggingConfig{}
}

func TestAllCategoriesLog(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)
	defer resetLoggingState()

	writeTestConfig(t, tempDir, true)
	require.NoError(t, Initialize(tempDir))

	categories := []Category{
		CategoryBoot, CategoryController, CategoryScorer, CategoryVectorStore,
		CategoryRAG, CategoryRetrieval, CategoryOrchestrator, CategoryAudit,
		CategoryEmbedding, CategoryGenerator,
	}

	for _, cat := range categories {
		l := Get(cat)
		l.Info("hello from %s", cat)
	}

	date := time.Now().Format("2006-01-02")
	for _, cat := range categories {
		path := filepath.Join(tempDir, ".ragrt", "logs", date+"_"+string(cat)+".log")
		_, err := os.Stat(path)
		assert.NoError(t, err, "expected log file for category %s", cat)
	}
}

func TestDebugModeDisabledIsNoOp(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_disabled")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)
	defer resetLoggingState()

	writeTestConfig(t, tempDir, false)
	require.NoError(t, Initialize(tempDir))

	l := Get(CategoryController)
	l.Info("should not be written anywhere")

	logsDirPath := filepath.Join(tempDir, ".ragrt", "logs")
	_, err = os.Stat(logsDirPath)
	assert.True(t, os.IsNotExist(err), "logs directory should not exist when debug_mode is false")
}

func TestMissingConfigDefaultsToProduction(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_missing")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)
	defer resetLoggingState()

	require.NoError(t, Initialize(tempDir))
	assert.False(t, IsDebugMode())
}

func TestStructuredLogEntryJSON(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_json")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)
	defer resetLoggingState()

	configDir := filepath.Join(tempDir, ".ragrt")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	configContent := `{"logging":{"level":"debug","debug_mode":true,"json_format":true}}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644))
	require.NoError(t, Initialize(tempDir))

	l := Get(CategoryScorer)
	l.Info("signal strength computed")

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(tempDir, ".ragrt", "logs", date+"_scorer.log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"cat":"scorer"`))
}

func TestTimerStopWithThreshold(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_timer")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)
	defer resetLoggingState()

	writeTestConfig(t, tempDir, true)
	require.NoError(t, Initialize(tempDir))

	timer := StartTimer(CategoryVectorStore, "search")
	elapsed := timer.StopWithThreshold(time.Hour)
	assert.True(t, elapsed >= 0)
}

func TestRequestLoggerIncludesRequestID(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_reqid")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)
	defer resetLoggingState()

	writeTestConfig(t, tempDir, true)
	require.NoError(t, Initialize(tempDir))

	rl := WithRequestID(CategoryOrchestrator, "req-123").WithField("mode", "balanced")
	rl.Info("dispatching generation request")

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(tempDir, ".ragrt", "logs", date+"_orchestrator.log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "req-123"))
}
