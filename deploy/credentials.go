package deploy

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/padminisys/awx-deployer/k8s"
	"github.com/padminisys/awx-deployer/model"
)

// AdminPassword reads the admin password from the cluster. ok is false if the
// secret cannot be read or decoded, or has no password key.
func (d *Deployer) AdminPassword(ctx context.Context) (string, bool) {
	data, err := d.cluster.Get(ctx, k8s.Secrets, model.AdminSecretName, d.cfg.Namespace)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to get admin password")
		return "", false
	}
	password, ok, err := k8s.SecretValue(data, model.AdminSecretKey)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to decode admin password")
		return "", false
	}
	return password, ok
}

// PrintAccessInfo writes the access banner. The configured password is shown
// when the live one cannot be read.
func (d *Deployer) PrintAccessInfo(ctx context.Context) {
	password, ok := d.AdminPassword(ctx)
	if !ok {
		password = d.cfg.AdminPassword
	}

	rule := strings.Repeat("=", 60)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintln(&b, "AWX DEPLOYMENT COMPLETED SUCCESSFULLY!")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "AWX URL: %s\n", d.cfg.URL())
	fmt.Fprintf(&b, "Username: %s\n", d.cfg.AdminUser)
	fmt.Fprintf(&b, "Password: %s\n", password)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Please allow a few minutes for the ingress and SSL certificate")
	fmt.Fprintln(&b, "to be ready.")
	fmt.Fprintf(&b, "%s\n\n", rule)

	_, _ = io.WriteString(d.out, b.String())
}
