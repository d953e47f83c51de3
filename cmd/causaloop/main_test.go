package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// newTestRootCmd builds a root command with the global flags but no
// subcommands; tests add just the command under test.
func newTestRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{Use: "causaloop"}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	return rootCmd
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// writeModelFile drops a model file into a temp dir and returns its path.
func writeModelFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing model file: %v", err)
	}
	return path
}
