package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLoggerLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "test", "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected json output, got %s", out)
	}
}

func TestSetupLoggerUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	setupLogger(&buf, "test", "loud", "text")
	if !strings.Contains(buf.String(), "Ignoring LOG_LEVEL") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FD_CLI_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FD_CLI_TEST_VALUE", "")
	os.Unsetenv("FD_CLI_TEST_VALUE")

	LoadEnvFile(path)
	if got := os.Getenv("FD_CLI_TEST_VALUE"); got != "from-file" {
		t.Errorf("value = %q", got)
	}
}
