package model

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, "/kubeconfig", cfg.KubeconfigPath)
	assert.Equal(t, "awx", cfg.Namespace)
	assert.Equal(t, "awx-instance", cfg.AWXName)
	assert.Equal(t, "awx.sin.padminisys.com", cfg.AWXHostname)
	assert.Equal(t, "admin", cfg.AdminUser)
	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, 10*time.Minute, cfg.OperatorTimeout)
	assert.Equal(t, 10*time.Second, cfg.OperatorPollInterval)
	assert.Equal(t, 20*time.Minute, cfg.InstanceTimeout)
	assert.Equal(t, 30*time.Second, cfg.InstancePollInterval)
	assert.Equal(t, ClusterClientKubectl, cfg.ClusterClient)
	assert.Equal(t, "awx_deployment.log", cfg.LogFile)
	assert.Empty(t, cfg.StatusAddr)
	require.NoError(t, cfg.Validate())
}

func TestConfigOverrides(t *testing.T) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{
		"KUBECONFIG":            "/tmp/kc",
		"AWX_NAMESPACE":         "ops",
		"AWX_OPERATOR_TIMEOUT":  "90s",
		"DEPLOY_CLUSTER_CLIENT": "api",
		"AWX_POSTGRES_PORT":     "6543",
	}})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/kc", cfg.KubeconfigPath)
	assert.Equal(t, "ops", cfg.Namespace)
	assert.Equal(t, 90*time.Second, cfg.OperatorTimeout)
	assert.Equal(t, 6543, cfg.PostgresPort)
	require.NoError(t, cfg.Validate())
}

func TestConfigInvalidPort(t *testing.T) {
	_, err := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{
		"AWX_POSTGRES_PORT": "not-a-port",
	}})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{}})
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown client", func(c *Config) { c.ClusterClient = "helm" }},
		{"empty kubeconfig", func(c *Config) { c.KubeconfigPath = "" }},
		{"empty namespace", func(c *Config) { c.Namespace = "" }},
		{"empty name", func(c *Config) { c.AWXName = "" }},
		{"empty hostname", func(c *Config) { c.AWXHostname = "" }},
		{"empty password", func(c *Config) { c.AdminPassword = "" }},
		{"zero timeout", func(c *Config) { c.InstanceTimeout = 0 }},
		{"negative interval", func(c *Config) { c.OperatorPollInterval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOperatorURL(t *testing.T) {
	cfg := Config{AWXHostname: "awx.example.com"}
	assert.Equal(t, "github.com/ansible/awx-operator/config/default?ref=2.19.1", cfg.OperatorURL("2.19.1"))
	assert.Equal(t, "https://awx.example.com", cfg.URL())
}
