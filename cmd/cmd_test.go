package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/pders01/schedule-context/internal/config"
	"github.com/pders01/schedule-context/internal/testutil"
)

// setupTestEnv points the store at a fresh temporary directory
func setupTestEnv(t *testing.T) *testutil.TempDir {
	t.Helper()

	dir := testutil.NewTempDir(t)
	viper.Reset()
	config.SetDefaults(viper.GetViper())
	viper.Set(config.KeyStorePath, filepath.Join(dir.Path, "db"))
	viper.Set(config.KeyLogLevel, "error")
	t.Cleanup(viper.Reset)
	return dir
}

// captureStdout returns what fn printed to stdout
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	old := os.Stdout
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return string(out), runErr
}

func mustRun(t *testing.T, name string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
}
