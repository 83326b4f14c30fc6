package support

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/scan"
	"github.com/MeKo-Tech/qrscan/internal/server"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastStderr    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	EnvVars    []string

	// In-process server
	HTTPTestServer *httptest.Server
	Server         *server.Server
	Pool           *scan.Pool
	History        *history.Store

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string

	// WebSocket stream state
	StreamMessages []server.StreamMessage
}

// NewTestContext creates a new test context. Every scenario gets its own
// home directory and preference file so history does not leak between
// scenarios.
func NewTestContext() (*TestContext, error) {
	workingDir, err := testutil.GetProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "qrscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ctx := &TestContext{
		WorkingDir:      workingDir,
		TempDir:         tempDir,
		EnvVars:         []string{},
		LastHTTPHeaders: map[string]string{},
	}
	ctx.AddEnvVar("HOME", tempDir)
	ctx.AddEnvVar("XDG_CONFIG_HOME", tempDir)
	ctx.AddEnvVar("QRSCAN_LOG_LEVEL", "error")
	ctx.AddEnvVar("QRSCAN_HISTORY_BACKEND", "file")
	ctx.AddEnvVar("QRSCAN_HISTORY_PATH", filepath.Join(tempDir, "prefs.json"))
	return ctx, nil
}

// Cleanup stops the server and removes the scenario's temporary directory.
func (testCtx *TestContext) Cleanup() error {
	var errors []error

	if err := testCtx.StopServer(); err != nil {
		errors = append(errors, fmt.Errorf("failed to stop server: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errors = append(errors, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("cleanup errors: %v", errors)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// Path resolves name inside the scenario's temporary directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substituteCommandVariables replaces {tmp} with the scenario's temporary
// directory.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	return strings.ReplaceAll(command, "{tmp}", testCtx.TempDir)
}
