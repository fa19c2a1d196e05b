package deploy

import (
	"context"

	"github.com/padminisys/awx-deployer/k8s"
)

type component struct {
	kind k8s.Kind
	name string
}

// components lists the objects the operator creates for a running instance.
func (d *Deployer) components() []component {
	name := d.cfg.AWXName
	return []component{
		{k8s.Deployments, name + "-postgres-13"},
		{k8s.Deployments, name + "-web"},
		{k8s.Deployments, name + "-task"},
		{k8s.Services, name + "-service"},
		{k8s.Ingresses, name + "-ingress"},
	}
}

func (d *Deployer) verifyComponents(ctx context.Context) (StepState, error) {
	state := StateDone
	for _, c := range d.components() {
		log := d.log.With().Str("kind", c.kind.Resource).Str("name", c.name).Logger()
		ok, err := d.cluster.Exists(ctx, c.kind, c.name, d.cfg.Namespace)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("failed to verify component")
			state = StateTolerated
		case !ok:
			log.Warn().Msg("component not found")
			state = StateTolerated
		default:
			log.Debug().Msg("component present")
		}
	}
	return state, nil
}
