package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storefront/beacon/pkg/config"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--output", "text")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "Beacon "+Version) {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "Go Version: go") {
		t.Errorf("output missing Go version: %q", out)
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	out, err := execute(t, "version", "-o", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}

	var info versionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if info.Version != Version || info.GitCommit != GitCommit {
		t.Errorf("info = %+v", info)
	}
}

func TestVersionCommand_UnknownFormat(t *testing.T) {
	if _, err := execute(t, "version", "-o", "csv"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

// TestValidateCommand tests valid, invalid and missing configuration files.
func TestValidateCommand(t *testing.T) {
	valid := writeConfig(t, "server:\n  listen_address: 0.0.0.0:9400\nproxy:\n  upstream_url: http://127.0.0.1:3000\n")
	invalid := writeConfig(t, "proxy:\n  upstream_url: localhost\ntelemetry:\n  tracing:\n    sample_ratio: 2\n")

	tests := []struct {
		name     string
		path     string
		wantErr  bool
		contains []string
	}{
		{
			name:     "valid",
			path:     valid,
			contains: []string{"✓ Configuration valid"},
		},
		{
			name:     "invalid",
			path:     invalid,
			wantErr:  true,
			contains: []string{"proxy.upstream_url", "telemetry.tracing.sample_ratio"},
		},
		{
			name:    "missing",
			path:    filepath.Join(t.TempDir(), "absent.yaml"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", "--config", tt.path, "--output", "text")
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate error = %v, wantErr %v (output %q)", err, tt.wantErr, out)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q: %q", want, out)
				}
			}
		})
	}
}

func TestValidateCommand_JSON(t *testing.T) {
	invalid := writeConfig(t, "server:\n  read_timeout: -1s\n")

	out, err := execute(t, "validate", "--config", invalid, "--output", "json")
	if err == nil {
		t.Fatal("expected validation error")
	}

	var result validationResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if result.Valid || len(result.Errors) != 1 || result.Errors[0].Field != "server.read_timeout" {
		t.Errorf("result = %+v", result)
	}
}

func TestConfigCommand_RedactsSecrets(t *testing.T) {
	path := writeConfig(t, "redis:\n  password: hunter2\n")

	out, err := execute(t, "config", "--config", path, "--output", "yaml")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Error("password printed in clear text")
	}
	if !strings.Contains(out, redacted) {
		t.Errorf("output missing redacted password: %q", out)
	}
	if !strings.Contains(out, "127.0.0.1:9400") {
		t.Errorf("output missing defaults: %q", out)
	}
}

func TestRedactConfig_LeavesOriginal(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Redis.Password = "secret"

	out := redactConfig(cfg)
	if out.Redis.Password != redacted {
		t.Errorf("redacted password = %q", out.Redis.Password)
	}
	if cfg.Redis.Password != "secret" {
		t.Error("original config modified")
	}
}

func TestRunCommand_DryRun(t *testing.T) {
	if config.GetConfig() != nil {
		t.Skip("configuration singleton already initialized")
	}
	path := writeConfig(t, "database:\n  backend: none\n")

	out, err := execute(t, "run", "--config", path, "--dry-run", "--log-level", "error")
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	if !strings.Contains(out, "✓ Configuration valid") {
		t.Errorf("output = %q", out)
	}
}
