package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8181\n"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8181", cfg.Server.Addr())
	assert.Empty(t, cfg.Server.Token)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.Agent.AllowOrigins)
	assert.Equal(t, "127.0.0.1:5005", cfg.Agent.Addr())
	assert.Equal(t, 5*time.Second, cfg.Agent.SampleInterval)
	assert.Equal(t, 10*time.Second, cfg.Agent.CommandTimeout)
	assert.Equal(t, "yaml", cfg.Backup.Format)
	assert.Less(t, cfg.Chat.TotalTimeout, time.Duration(cfg.Server.WriteTimeout)*time.Second)
	require.Len(t, cfg.Chat.Providers, 4)
	assert.Equal(t, "groq", cfg.Chat.Providers[0].Name)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VEER_SERVER_PORT", "9090")
	t.Setenv("VEER_AGENT_TOKEN", "tok")
	t.Setenv("VEER_KEYS_GEMINI", "gem-key")

	cfg, err := Load(writeConfig(t, `
agent:
  apps:
    linux:
      editor: "code --new-window"
`))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "tok", cfg.Agent.Token)
	assert.Equal(t, "code --new-window", cfg.Agent.Apps["linux"]["editor"])

	for _, p := range cfg.Chat.Providers {
		if p.Name == "gemini" {
			assert.Equal(t, "gem-key", p.APIKey)
		} else {
			assert.Empty(t, p.APIKey)
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "backup:\n  format: xml\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "agent:\n  sample_interval: 10ms\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [1, 2\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatchReload(t *testing.T) {
	path := writeConfig(t, "agent:\n  token: old-token\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "old-token", cfg.Agent.Token)

	tokens := make(chan string, 16)
	Watch(func(next *Config) {
		select {
		case tokens <- next.Agent.Token:
		default:
		}
	})

	// 文件监听器就绪之前的写入可能丢失，所以每轮都重写一次
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte("agent:\n  token: new-token\n"), 0o600); err != nil {
			return false
		}
		select {
		case tok := <-tokens:
			return tok == "new-token"
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)
}

func TestWatchWithoutLoad(t *testing.T) {
	mu.Lock()
	prev := current
	current = nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		current = prev
		mu.Unlock()
	})

	called := false
	assert.NotPanics(t, func() { Watch(func(*Config) { called = true }) })
	assert.False(t, called)
}
