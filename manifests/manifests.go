// Package manifests renders the embedded resource templates and stages them in
// a per-run temporary directory for the cluster client to apply.
package manifests

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"text/template"

	"github.com/padminisys/awx-deployer/model"

	"sigs.k8s.io/yaml"
)

//go:embed templates/*.yaml
var templatesFS embed.FS

const (
	StorageClass   = "storage-class.yaml"
	PostgresPV     = "postgres-pv.yaml"
	ProjectsPV     = "projects-pv.yaml"
	PostgresSecret = "postgres-secret.yaml"
	AdminSecret    = "admin-secret.yaml"
	AWXInstance    = "awx-instance.yaml"
)

var funcs = template.FuncMap{"quote": quote}

type Volume struct {
	Name     string
	Capacity string
	Path     string
}

type Postgres struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type Ingress struct {
	ClassName  string
	TLSSecret  string
	CertIssuer string
}

// Values is the data every template is rendered with.
type Values struct {
	Namespace    string
	Name         string
	Hostname     string
	StorageClass string

	PostgresPV Volume
	ProjectsPV Volume

	PostgresSecret string
	AdminSecret    string
	AdminUser      string
	AdminPassword  string

	Postgres Postgres
	Ingress  Ingress
}

func ValuesFromConfig(cfg *model.Config) Values {
	return Values{
		Namespace:    cfg.Namespace,
		Name:         cfg.AWXName,
		Hostname:     cfg.AWXHostname,
		StorageClass: cfg.StorageClass,
		PostgresPV: Volume{
			Name:     model.PostgresPVName,
			Capacity: cfg.PostgresStorage,
			Path:     cfg.PostgresPVPath,
		},
		ProjectsPV: Volume{
			Name:     model.ProjectsPVName,
			Capacity: cfg.ProjectsStorage,
			Path:     cfg.ProjectsPVPath,
		},
		PostgresSecret: model.PostgresSecretName,
		AdminSecret:    model.AdminSecretName,
		AdminUser:      cfg.AdminUser,
		AdminPassword:  cfg.AdminPassword,
		Postgres: Postgres{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			Database: cfg.PostgresDatabase,
			Username: cfg.PostgresUsername,
			Password: cfg.PostgresPassword,
		},
		Ingress: Ingress{
			ClassName:  cfg.IngressClassName,
			TLSSecret:  cfg.TLSSecretName,
			CertIssuer: cfg.CertIssuer,
		},
	}
}

// Render executes the named template and checks the result is valid YAML.
func Render(name string, values Values) ([]byte, error) {
	content, err := templatesFS.ReadFile(path.Join("templates", name))
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}

	if _, err := yaml.YAMLToJSON(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("rendered %s is not valid YAML: %w", name, err)
	}
	return buf.Bytes(), nil
}

// quote emits s as a double-quoted YAML scalar. JSON string syntax is a
// subset of YAML's, so arbitrary passwords survive unescaped characters.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
