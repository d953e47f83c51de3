package main

import (
	"encoding/json"
	"testing"
)

const validModel = `
name: tourism
nodes:
  - id: tourists
    kind: stock
    initial: 100
  - id: congestion
    kind: auxiliary
    initial: 0
edges:
  - from: tourists
    to: congestion
    polarity: 1
    delay: 0
run:
  horizon: 8
`

func TestValidateCommandJSON(t *testing.T) {
	path := writeModelFile(t, validModel)

	out := captureStdout(t, func() {
		rootCmd := newTestRootCmd()
		rootCmd.AddCommand(newValidateCmd())
		rootCmd.SetArgs([]string{"validate", path, "--json"})
		if err := rootCmd.Execute(); err != nil {
			t.Errorf("validate failed: %v", err)
		}
	})

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, out)
	}
	if result["valid"] != true {
		t.Errorf("valid = %v, want true", result["valid"])
	}
	if result["nodes"] != float64(2) || result["edges"] != float64(1) {
		t.Errorf("counts = %v nodes, %v edges", result["nodes"], result["edges"])
	}
}

func TestValidateCommandJSON_Invalid(t *testing.T) {
	path := writeModelFile(t, `
nodes:
  - id: a
    kind: stock
edges:
  - from: a
    to: ghost
    polarity: 1
    delay: 0
`)

	out := captureStdout(t, func() {
		rootCmd := newTestRootCmd()
		rootCmd.AddCommand(newValidateCmd())
		rootCmd.SetArgs([]string{"validate", path, "--json"})
		if err := rootCmd.Execute(); err != nil {
			t.Errorf("validate failed: %v", err)
		}
	})

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, out)
	}
	if result["valid"] != false {
		t.Errorf("valid = %v, want false", result["valid"])
	}
	if result["error"] == nil {
		t.Error("expected an error field for an invalid model")
	}
}
