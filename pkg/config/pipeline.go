package config

import (
	"time"

	"github.com/ivanehh/datapipe/pkg/logging"
)

// Pipeline is the configuration consumed by the datapipe cli
type Pipeline struct {
	BaseURL      string            `yaml:"base_url"`
	Endpoint     string            `yaml:"endpoint"`
	Token        string            `yaml:"token,omitempty"`
	AuthEndpoint string            `yaml:"auth_endpoint,omitempty"`
	Credentials  map[string]string `yaml:"credentials,omitempty"`
	TokenField   string            `yaml:"token_field,omitempty"`
	Params       map[string]string `yaml:"params,omitempty"`
	Extract      string            `yaml:"extract,omitempty"`
	Flatten      bool              `yaml:"flatten,omitempty"`
	Outputs      []string          `yaml:"outputs"`
	Backup       bool              `yaml:"backup,omitempty"`
	Timeout      time.Duration     `yaml:"timeout,omitempty"`
	Log          logging.Config    `yaml:"logging,omitempty"`
}
