package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"jobcore/internal/apperrors"
)

// Property keys read from ducc.properties.
const (
	KeyOrchestratorNode     = "ducc.orchestrator.node"
	KeyOrchestratorHTTPPort = "ducc.orchestrator.http.port"
	KeySignatureRequired    = "ducc.signature.required"
	KeySignatureKeyFile     = "ducc.signature.key.file"
)

// EnvDuccHome names the installation directory.
const EnvDuccHome = "DUCC_HOME"

// ClientConfig is what a command line client needs to reach the orchestrator.
type ClientConfig struct {
	Home              string
	Node              string
	Port              string
	SignatureRequired bool
	SignatureKeyFile  string
}

// URL returns the orchestrator request endpoint.
func (c *ClientConfig) URL() string {
	return fmt.Sprintf("http://%s:%s/or", c.Node, c.Port)
}

// FindDuccHome returns $DUCC_HOME, or a configuration error when unset.
func FindDuccHome() (string, error) {
	home := strings.TrimSpace(os.Getenv(EnvDuccHome))
	if home == "" {
		return "", apperrors.Config(EnvDuccHome, "missing required environment variable: "+EnvDuccHome)
	}
	return home, nil
}

// PropertiesPath returns the location of ducc.properties under home.
func PropertiesPath(home string) string {
	return filepath.Join(home, "resources", "ducc.properties")
}

// LoadClientConfig reads ducc.properties under home. Each key may be
// overridden by an environment variable named after it in upper case with
// dots replaced by underscores, e.g. DUCC_ORCHESTRATOR_NODE.
//
// The HTTP port and node are required; their absence is reported as a
// configuration error, port first.
func LoadClientConfig(home string) (*ClientConfig, error) {
	// Property keys contain dots; a different delimiter keeps them flat so
	// ducc.head and ducc.head.x can coexist.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(PropertiesPath(home))
	v.SetConfigType("properties")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Internal("config.read", err)
		}
	}

	cfg := &ClientConfig{
		Home:             home,
		Port:             strings.TrimSpace(v.GetString(KeyOrchestratorHTTPPort)),
		Node:             strings.TrimSpace(v.GetString(KeyOrchestratorNode)),
		SignatureKeyFile: strings.TrimSpace(v.GetString(KeySignatureKeyFile)),
	}
	cfg.SignatureRequired = strings.EqualFold(strings.TrimSpace(v.GetString(KeySignatureRequired)), "on")

	if cfg.Port == "" {
		return nil, apperrors.Config(KeyOrchestratorHTTPPort,
			"orchestrator HTTP port not defined, add "+KeyOrchestratorHTTPPort+" to ducc.properties")
	}
	if cfg.Node == "" {
		return nil, apperrors.Config(KeyOrchestratorNode,
			"orchestrator node not defined, add "+KeyOrchestratorNode+" to ducc.properties")
	}
	if cfg.SignatureKeyFile == "" {
		if userHome, err := os.UserHomeDir(); err == nil {
			cfg.SignatureKeyFile = filepath.Join(userHome, ".ducc", "signature.key")
		}
	}
	return cfg, nil
}

// ReadSignatureKey loads the key used to sign the caller identity.
func (c *ClientConfig) ReadSignatureKey() (string, error) {
	key := GetSecretFile(c.SignatureKeyFile)
	if key == "" {
		return "", apperrors.Config(KeySignatureKeyFile, "signature key not readable at "+c.SignatureKeyFile)
	}
	return key, nil
}
