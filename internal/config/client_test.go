package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcore/internal/apperrors"
)

func writeProperties(t *testing.T, content string) string {
	t.Helper()
	home := t.TempDir()
	dir := filepath.Join(home, "resources")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ducc.properties"), []byte(content), 0o644))
	return home
}

func TestLoadClientConfig(t *testing.T) {
	t.Parallel()
	home := writeProperties(t, `
# orchestrator
ducc.head = head.example.com
ducc.orchestrator.node = or.example.com
ducc.orchestrator.http.port = 19099
ducc.signature.required = ON
ducc.signature.key.file = /etc/ducc/signature.key
`)

	cfg, err := LoadClientConfig(home)
	require.NoError(t, err)
	assert.Equal(t, "or.example.com", cfg.Node)
	assert.Equal(t, "19099", cfg.Port)
	assert.True(t, cfg.SignatureRequired)
	assert.Equal(t, "/etc/ducc/signature.key", cfg.SignatureKeyFile)
	assert.Equal(t, "http://or.example.com:19099/or", cfg.URL())
}

func TestLoadClientConfig_SignatureDefaults(t *testing.T) {
	t.Parallel()
	home := writeProperties(t, "ducc.orchestrator.node=n\nducc.orchestrator.http.port=1\n")

	cfg, err := LoadClientConfig(home)
	require.NoError(t, err)
	assert.False(t, cfg.SignatureRequired)
	assert.True(t, strings.HasSuffix(cfg.SignatureKeyFile, filepath.Join(".ducc", "signature.key")), cfg.SignatureKeyFile)
}

func TestLoadClientConfig_Missing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		key     string
	}{
		{"no port", "ducc.orchestrator.node=n\n", KeyOrchestratorHTTPPort},
		{"no node", "ducc.orchestrator.http.port=1\n", KeyOrchestratorNode},
		{"blank node", "ducc.orchestrator.node=  \nducc.orchestrator.http.port=1\n", KeyOrchestratorNode},
		{"nothing", "", KeyOrchestratorHTTPPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadClientConfig(writeProperties(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfig))

			var appErr *apperrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.key, appErr.Key)
		})
	}
}

func TestLoadClientConfig_NoFile(t *testing.T) {
	t.Parallel()
	_, err := LoadClientConfig(t.TempDir())
	assert.True(t, errors.Is(err, apperrors.ErrConfig))
}

func TestLoadClientConfig_EnvOverride(t *testing.T) {
	home := writeProperties(t, "ducc.orchestrator.node=n\nducc.orchestrator.http.port=1\n")
	t.Setenv("DUCC_ORCHESTRATOR_NODE", "override.example.com")

	cfg, err := LoadClientConfig(home)
	require.NoError(t, err)
	assert.Equal(t, "override.example.com", cfg.Node)
}

func TestFindDuccHome(t *testing.T) {
	t.Setenv(EnvDuccHome, "")
	_, err := FindDuccHome()
	assert.True(t, errors.Is(err, apperrors.ErrConfig))

	t.Setenv(EnvDuccHome, "/opt/ducc")
	home, err := FindDuccHome()
	require.NoError(t, err)
	assert.Equal(t, "/opt/ducc", home)
}

func TestReadSignatureKey(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "signature.key")
	require.NoError(t, os.WriteFile(path, []byte("k3y\n"), 0o600))

	key, err := (&ClientConfig{SignatureKeyFile: path}).ReadSignatureKey()
	require.NoError(t, err)
	assert.Equal(t, "k3y", key)

	_, err = (&ClientConfig{SignatureKeyFile: path + ".missing"}).ReadSignatureKey()
	assert.True(t, errors.Is(err, apperrors.ErrConfig))
}
