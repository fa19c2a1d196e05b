package model

import (
	"fmt"
	"time"
)

const AppName = "awx-deployer"

const (
	OperatorDeployment   = "awx-operator-controller-manager"
	OperatorKustomizeURL = "github.com/ansible/awx-operator/config/default"

	AdminSecretName    = "awx-admin-password"
	AdminSecretKey     = "password"
	PostgresSecretName = "awx-postgres-configuration"

	PostgresPVName = "awx-postgres-pv"
	ProjectsPVName = "awx-projects-pv"
)

const (
	ClusterClientKubectl = "kubectl"
	ClusterClientAPI     = "api"
)

type Config struct {
	KubeconfigPath string `env:"KUBECONFIG" envDefault:"/kubeconfig"`
	Namespace      string `env:"AWX_NAMESPACE" envDefault:"awx"`

	AWXName       string `env:"AWX_NAME" envDefault:"awx-instance"`
	AWXHostname   string `env:"AWX_HOSTNAME" envDefault:"awx.sin.padminisys.com"`
	AdminUser     string `env:"AWX_ADMIN_USER" envDefault:"admin"`
	AdminPassword string `env:"AWX_ADMIN_PASSWORD" envDefault:"admin123!@#"`

	StorageClass    string `env:"AWX_STORAGE_CLASS" envDefault:"hostpath"`
	PostgresStorage string `env:"AWX_POSTGRES_STORAGE" envDefault:"8Gi"`
	ProjectsStorage string `env:"AWX_PROJECTS_STORAGE" envDefault:"8Gi"`
	PostgresPVPath  string `env:"AWX_POSTGRES_PV_PATH" envDefault:"/opt/awx/postgres"`
	ProjectsPVPath  string `env:"AWX_PROJECTS_PV_PATH" envDefault:"/opt/awx/projects"`

	PostgresHost     string `env:"AWX_POSTGRES_HOST" envDefault:"awx-instance-postgres-13"`
	PostgresPort     int    `env:"AWX_POSTGRES_PORT" envDefault:"5432"`
	PostgresDatabase string `env:"AWX_POSTGRES_DATABASE" envDefault:"awx"`
	PostgresUsername string `env:"AWX_POSTGRES_USERNAME" envDefault:"awx"`
	PostgresPassword string `env:"AWX_POSTGRES_PASSWORD" envDefault:"awxpassword"`

	IngressClassName string `env:"AWX_INGRESS_CLASS" envDefault:"nginx"`
	TLSSecretName    string `env:"AWX_TLS_SECRET" envDefault:"awx-tls"`
	CertIssuer       string `env:"AWX_CERT_ISSUER" envDefault:"letsencrypt-prod"`

	OperatorVersion         string        `env:"AWX_OPERATOR_VERSION" envDefault:"2.19.1"`
	OperatorFallbackVersion string        `env:"AWX_OPERATOR_FALLBACK_VERSION" envDefault:"2.19.1"`
	OperatorTimeout         time.Duration `env:"AWX_OPERATOR_TIMEOUT" envDefault:"10m"`
	OperatorPollInterval    time.Duration `env:"AWX_OPERATOR_POLL_INTERVAL" envDefault:"10s"`
	InstanceTimeout         time.Duration `env:"AWX_INSTANCE_TIMEOUT" envDefault:"20m"`
	InstancePollInterval    time.Duration `env:"AWX_INSTANCE_POLL_INTERVAL" envDefault:"30s"`

	ClusterClient string `env:"DEPLOY_CLUSTER_CLIENT" envDefault:"kubectl"`
	KubectlBin    string `env:"DEPLOY_KUBECTL_BIN" envDefault:"kubectl"`
	LogFile       string `env:"DEPLOY_LOG_FILE" envDefault:"awx_deployment.log"`
	StatusAddr    string `env:"DEPLOY_STATUS_ADDR"`
}

// OperatorURL returns the kustomize bundle URL pinned to ref.
func (c *Config) OperatorURL(ref string) string {
	return OperatorKustomizeURL + "?ref=" + ref
}

func (c *Config) URL() string {
	return "https://" + c.AWXHostname
}

func (c *Config) Validate() error {
	switch c.ClusterClient {
	case ClusterClientKubectl, ClusterClientAPI:
	default:
		return fmt.Errorf("DEPLOY_CLUSTER_CLIENT must be %q or %q, got %q", ClusterClientKubectl, ClusterClientAPI, c.ClusterClient)
	}
	if c.KubeconfigPath == "" {
		return fmt.Errorf("KUBECONFIG is required")
	}
	if c.Namespace == "" {
		return fmt.Errorf("AWX_NAMESPACE is required")
	}
	if c.AWXName == "" {
		return fmt.Errorf("AWX_NAME is required")
	}
	if c.AWXHostname == "" {
		return fmt.Errorf("AWX_HOSTNAME is required")
	}
	if c.AdminPassword == "" {
		return fmt.Errorf("AWX_ADMIN_PASSWORD is required")
	}
	if c.OperatorTimeout <= 0 || c.InstanceTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.OperatorPollInterval <= 0 || c.InstancePollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	return nil
}
