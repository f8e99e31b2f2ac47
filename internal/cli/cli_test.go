package cli

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veerhq/veer/config"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "veer version "+Version)
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "agent", "backup", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	restore, _, err := rootCmd.Find([]string{"backup", "restore"})
	require.NoError(t, err)
	assert.Error(t, restore.Args(restore, nil))
}

func TestNewHTTPServer(t *testing.T) {
	h := http.NotFoundHandler()

	plain, err := newHTTPServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080, ReadTimeout: 5}, h)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", plain.Addr)
	assert.Nil(t, plain.TLSConfig)

	tlsSrv, err := newHTTPServer(config.ServerConfig{Port: 8443, EnableHTTPS: true, EnableHTTP2: true}, h)
	require.NoError(t, err)
	require.NotNil(t, tlsSrv.TLSConfig)
	assert.Contains(t, tlsSrv.TLSConfig.NextProtos, "h2")

	cleartext, err := newHTTPServer(config.ServerConfig{Port: 8080, EnableHTTP2: true}, h)
	require.NoError(t, err)
	_, unwrapped := cleartext.Handler.(http.HandlerFunc)
	assert.False(t, unwrapped)
}
