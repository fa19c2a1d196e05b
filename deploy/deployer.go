// Package deploy drives an AWX installation: it ensures each prerequisite
// resource exists, installs the operator, creates the AWX resource, and waits
// for everything to report ready.
package deploy

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/padminisys/awx-deployer/k8s"
	"github.com/padminisys/awx-deployer/manifests"
	"github.com/padminisys/awx-deployer/model"

	"github.com/rs/zerolog"
	"k8s.io/utils/clock"
)

// StepError is returned by Run when a step fails fatally.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type Deployer struct {
	cfg      *model.Config
	cluster  k8s.Cluster
	log      zerolog.Logger
	out      io.Writer
	clock    clock.Clock
	sleep    SleepFunc
	progress *Progress
	waiter   *Waiter

	values manifests.Values
	ws     *manifests.Workspace
}

type Option func(*Deployer)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Deployer) { d.log = l }
}

// WithOutput sets where the access banner and status reports are printed.
func WithOutput(w io.Writer) Option {
	return func(d *Deployer) { d.out = w }
}

func WithClock(c clock.Clock) Option {
	return func(d *Deployer) { d.clock = c }
}

// WithSleep replaces the wait between readiness checks.
func WithSleep(fn SleepFunc) Option {
	return func(d *Deployer) { d.sleep = fn }
}

func WithProgress(p *Progress) Option {
	return func(d *Deployer) { d.progress = p }
}

func New(cfg *model.Config, cluster k8s.Cluster, opts ...Option) *Deployer {
	d := &Deployer{
		cfg:     cfg,
		cluster: cluster,
		log:     zerolog.Nop(),
		out:     os.Stdout,
		clock:   clock.RealClock{},
		values:  manifests.ValuesFromConfig(cfg),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sleep == nil {
		d.sleep = clockSleep(d.clock)
	}
	if d.progress == nil {
		d.progress = NewProgress(d.clock)
	}
	d.waiter = NewWaiter(cluster, d.clock, d.sleep, d.log)
	return d
}

func (d *Deployer) Progress() *Progress { return d.progress }

// Run executes every step in order and stops at the first fatal failure. The
// manifest workspace is removed before Run returns.
func (d *Deployer) Run(ctx context.Context) error {
	start := d.clock.Now()
	d.log.Info().Str("namespace", d.cfg.Namespace).Str("awx", d.cfg.AWXName).Msg("starting AWX deployment")

	ws, err := manifests.NewWorkspace()
	if err != nil {
		return &StepError{Step: "workspace", Err: err}
	}
	d.ws = ws
	defer func() {
		if err := ws.Close(); err != nil {
			d.log.Warn().Err(err).Str("dir", ws.Dir()).Msg("failed to clean up temporary files")
			return
		}
		d.log.Debug().Str("dir", ws.Dir()).Msg("cleaned up temporary directory")
	}()

	steps := d.steps()
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.name
	}
	d.progress.Init(names)

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.runStep(ctx, s); err != nil {
			d.log.Error().Err(err).Msg("deployment failed")
			return err
		}
	}

	d.log.Info().Dur("elapsed", d.clock.Since(start)).Msg("deployment completed")
	d.PrintAccessInfo(ctx)
	return nil
}

type step struct {
	name string
	fn   func(ctx context.Context) (StepState, error)
}

func (d *Deployer) runStep(ctx context.Context, s step) error {
	d.progress.Start(s.name)
	started := d.clock.Now()

	state, err := s.fn(ctx)
	if err != nil {
		state = StateFailed
	}

	stepDuration.WithLabelValues(s.name).Observe(d.clock.Since(started).Seconds())
	stepsTotal.WithLabelValues(s.name, string(state)).Inc()
	d.progress.Finish(s.name, state, err)

	if err != nil {
		return &StepError{Step: s.name, Err: err}
	}
	return nil
}
