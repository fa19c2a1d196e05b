package deploy

import (
	"context"
	"fmt"

	"github.com/padminisys/awx-deployer/k8s"
	"github.com/padminisys/awx-deployer/manifests"
	"github.com/padminisys/awx-deployer/model"

	"github.com/rs/zerolog"
)

const (
	StepClusterAccess  = "cluster-access"
	StepNamespace      = "namespace"
	StepStorageClass   = "storage-class"
	StepPostgresPV     = "postgres-pv"
	StepProjectsPV     = "projects-pv"
	StepPostgresSecret = "postgres-secret"
	StepAdminSecret    = "admin-secret"
	StepOperator       = "operator"
	StepOperatorReady  = "operator-ready"
	StepInstance       = "awx-instance"
	StepInstanceReady  = "awx-instance-ready"
	StepVerify         = "verify"
)

func (d *Deployer) steps() []step {
	ns := d.cfg.Namespace
	return []step{
		{StepClusterAccess, d.checkClusterAccess},
		{StepNamespace, d.ensureNamespace},
		{StepStorageClass, d.ensure(manifestStep{
			kind: k8s.StorageClasses, name: d.cfg.StorageClass, template: manifests.StorageClass, level: zerolog.WarnLevel,
		})},
		{StepPostgresPV, d.ensure(manifestStep{
			kind: k8s.PersistentVolumes, name: model.PostgresPVName, template: manifests.PostgresPV, level: zerolog.ErrorLevel,
		})},
		{StepProjectsPV, d.ensure(manifestStep{
			kind: k8s.PersistentVolumes, name: model.ProjectsPVName, template: manifests.ProjectsPV, level: zerolog.ErrorLevel,
		})},
		{StepPostgresSecret, d.ensure(manifestStep{
			kind: k8s.Secrets, name: model.PostgresSecretName, namespace: ns, template: manifests.PostgresSecret, level: zerolog.ErrorLevel,
		})},
		{StepAdminSecret, d.ensure(manifestStep{
			kind: k8s.Secrets, name: model.AdminSecretName, namespace: ns, template: manifests.AdminSecret, level: zerolog.ErrorLevel,
		})},
		{StepOperator, d.ensureOperator},
		{StepOperatorReady, d.waitForOperator},
		{StepInstance, d.ensure(manifestStep{
			kind: k8s.AWXs, name: d.cfg.AWXName, namespace: ns, template: manifests.AWXInstance, fatal: true,
		})},
		{StepInstanceReady, d.waitForInstance},
		{StepVerify, d.verifyComponents},
	}
}

func (d *Deployer) checkClusterAccess(ctx context.Context) (StepState, error) {
	d.log.Info().Msg("checking Kubernetes cluster access")
	if err := d.cluster.Ping(ctx); err != nil {
		return StateFailed, fmt.Errorf("cannot access Kubernetes cluster: %w", err)
	}
	return StateDone, nil
}

func (d *Deployer) ensureNamespace(ctx context.Context) (StepState, error) {
	ns := d.cfg.Namespace
	log := d.log.With().Str("namespace", ns).Logger()

	if d.exists(ctx, k8s.Namespaces, ns, "") {
		log.Info().Msg("namespace already exists")
		return StateSkipped, nil
	}

	err := d.cluster.CreateNamespace(ctx, ns)
	switch {
	case err == nil:
		log.Info().Msg("created namespace")
		return StateDone, nil
	case k8s.IsAlreadyExists(err):
		log.Info().Msg("namespace already exists")
		return StateSkipped, nil
	default:
		return StateFailed, fmt.Errorf("create namespace %s: %w", ns, err)
	}
}

// manifestStep describes a resource rendered from a template. Non-fatal
// failures are logged at level and the run continues.
type manifestStep struct {
	kind      k8s.Kind
	name      string
	namespace string
	template  string
	fatal     bool
	level     zerolog.Level
}

func (d *Deployer) ensure(m manifestStep) func(context.Context) (StepState, error) {
	return func(ctx context.Context) (StepState, error) {
		log := d.log.With().Str("kind", m.kind.Resource).Str("name", m.name).Logger()

		if d.exists(ctx, m.kind, m.name, m.namespace) {
			log.Info().Msg("already exists, skipping")
			return StateSkipped, nil
		}

		err := d.apply(ctx, m.template)
		if err == nil {
			log.Info().Msg("created")
			return StateDone, nil
		}
		if m.fatal {
			return StateFailed, fmt.Errorf("create %s %s: %w", m.kind, m.name, err)
		}
		log.WithLevel(m.level).Err(err).Msg("failed to create, continuing")
		return StateTolerated, nil
	}
}

func (d *Deployer) apply(ctx context.Context, template string) error {
	path, err := d.ws.Stage(template, d.values)
	if err != nil {
		return err
	}
	return d.cluster.Apply(ctx, path)
}

// exists treats a failed lookup as absent so the following create reports
// the real problem.
func (d *Deployer) exists(ctx context.Context, kind k8s.Kind, name, namespace string) bool {
	ok, err := d.cluster.Exists(ctx, kind, name, namespace)
	if err != nil {
		d.log.Warn().Err(err).Str("kind", kind.Resource).Str("name", name).Msg("existence check failed, assuming absent")
		return false
	}
	return ok
}

func (d *Deployer) ensureOperator(ctx context.Context) (StepState, error) {
	if d.exists(ctx, k8s.Deployments, model.OperatorDeployment, d.cfg.Namespace) {
		d.log.Info().Msg("AWX operator already installed, skipping")
		return StateSkipped, nil
	}

	d.log.Info().Str("version", d.cfg.OperatorVersion).Msg("installing AWX operator")
	err := d.cluster.ApplyKustomize(ctx, d.cfg.OperatorURL(d.cfg.OperatorVersion))
	if err == nil {
		return StateDone, nil
	}

	d.log.Warn().Err(err).Str("fallback", d.cfg.OperatorFallbackVersion).Msg("operator version failed, trying fallback")
	if err := d.cluster.ApplyKustomize(ctx, d.cfg.OperatorURL(d.cfg.OperatorFallbackVersion)); err != nil {
		return StateFailed, fmt.Errorf("install AWX operator: %w", err)
	}
	return StateDone, nil
}

func (d *Deployer) waitForOperator(ctx context.Context) (StepState, error) {
	err := d.waiter.WaitForDeployment(ctx, model.OperatorDeployment, d.cfg.Namespace, d.cfg.OperatorTimeout, d.cfg.OperatorPollInterval)
	if err != nil {
		return StateFailed, fmt.Errorf("AWX operator not ready: %w", err)
	}
	return StateDone, nil
}

func (d *Deployer) waitForInstance(ctx context.Context) (StepState, error) {
	err := d.waiter.WaitForInstance(ctx, d.cfg.AWXName, d.cfg.Namespace, d.cfg.InstanceTimeout, d.cfg.InstancePollInterval)
	if err != nil {
		return StateFailed, fmt.Errorf("AWX instance not ready: %w", err)
	}
	return StateDone, nil
}
