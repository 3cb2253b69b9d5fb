package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yusing/fswatch-forward/internal/config/types"
	"github.com/yusing/fswatch-forward/internal/gperr"
	. "github.com/yusing/fswatch-forward/internal/utils/testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	ExpectNoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	ExpectNoError(t, err)

	cwd, _ := os.Getwd()
	ExpectDeepEqual(t, cfg.Value().WatchRoots, []string{
		filepath.Join(cwd, "src"),
		filepath.Join(cwd, "static", "locales"),
	})
	ExpectEqual(t, cfg.Target().String(), "10.23.42.1:4000")
	ExpectEqual(t, cfg.Value().Forward.Codec, types.CodecListen)
	ExpectEqual(t, cfg.Value().Forward.QueueCapacity, 1000)
	ExpectDeepEqual(t, cfg.Value().IgnorePatterns(), types.DefaultIgnorePatterns)
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, `
watch_roots:
  - `+root+`
  - `+root+`/
forward_to: 127.0.0.1:4100
debounce: 100ms
ignore: []
forward:
  codec: jsonl
  queue_capacity: 10
`)
	cfg, err := LoadFile(path)
	ExpectNoError(t, err)
	ExpectDeepEqual(t, cfg.Value().WatchRoots, []string{root})
	ExpectEqual(t, cfg.Target(), types.ForwardTarget{Host: "127.0.0.1", Port: 4100})
	ExpectEqual(t, cfg.Value().Debounce, 100*time.Millisecond)
	ExpectEqual(t, cfg.Value().Forward.Codec, types.CodecJSONL)
	ExpectEqual(t, cfg.Value().Forward.QueueCapacity, 10)
	ExpectEqual(t, len(cfg.Value().IgnorePatterns()), 0)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FSWATCH_ROOTS", "/tmp/a, /tmp/b")
	t.Setenv("FSWATCH_FORWARD_HOST", "localhost")
	t.Setenv("FSWATCH_FORWARD_PORT", "4001")
	t.Setenv("FSWATCH_QUEUE_CAPACITY", "5")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	ExpectNoError(t, err)
	ExpectDeepEqual(t, cfg.Value().WatchRoots, []string{"/tmp/a", "/tmp/b"})
	ExpectEqual(t, cfg.Target().String(), "localhost:4001")
	ExpectEqual(t, cfg.Value().Forward.QueueCapacity, 5)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "forward_port: 70000"},
		{"bad host", "forward_host: \"not a host\""},
		{"bad forward_to", "forward_to: 127.0.0.1"},
		{"no roots", "watch_roots: []"},
		{"bad codec", "forward:\n  codec: xml"},
		{"unknown field", "watch_dirs: [/tmp]"},
		{"backoff max below initial", "forward:\n  backoff_initial: 10s\n  backoff_max: 1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			ExpectError(t, gperr.ErrConfiguration, err)
		})
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("FSWATCH_FORWARD_PORT", "abc")
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	ExpectError(t, gperr.ErrConfiguration, err)
}

func TestParseForwardTarget(t *testing.T) {
	target, err := types.ParseForwardTarget("127.0.0.1:4000")
	ExpectNoError(t, err)
	ExpectEqual(t, target, types.ForwardTarget{Host: "127.0.0.1", Port: 4000})

	for _, addr := range []string{"", "127.0.0.1", "127.0.0.1:0", "127.0.0.1:http", ":4000"} {
		_, err := types.ParseForwardTarget(addr)
		ExpectError(t, gperr.ErrConfiguration, err)
	}
}
