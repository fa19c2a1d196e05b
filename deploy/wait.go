package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/padminisys/awx-deployer/k8s"

	"github.com/rs/zerolog"
	"k8s.io/utils/clock"
)

var ErrTimeout = errors.New("timed out waiting for readiness")

const (
	deploymentLogEvery = 30 * time.Second
	instanceLogEvery   = 60 * time.Second
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func clockSleep(clk clock.Clock) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		t := clk.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C():
			return nil
		}
	}
}

// Waiter polls cluster objects at a fixed interval until they report ready.
type Waiter struct {
	cluster k8s.Cluster
	clock   clock.PassiveClock
	sleep   SleepFunc
	log     zerolog.Logger
}

func NewWaiter(cluster k8s.Cluster, clk clock.PassiveClock, sleep SleepFunc, log zerolog.Logger) *Waiter {
	return &Waiter{cluster: cluster, clock: clk, sleep: sleep, log: log}
}

// WaitForDeployment returns nil once the deployment's ready replica count
// equals its desired count.
func (w *Waiter) WaitForDeployment(ctx context.Context, name, namespace string, timeout, interval time.Duration) error {
	log := w.log.With().Str("deployment", name).Str("namespace", namespace).Logger()
	log.Info().Dur("timeout", timeout).Msg("waiting for deployment")

	return w.poll(ctx, "deployment", timeout, interval, deploymentLogEvery, log, func(ctx context.Context) (bool, string) {
		data, err := w.cluster.Get(ctx, k8s.Deployments, name, namespace)
		if err != nil {
			log.Debug().Err(err).Msg("deployment status unavailable")
			return false, ""
		}
		status, err := k8s.ParseDeploymentStatus(data)
		if err != nil {
			log.Warn().Err(err).Msg("failed to parse deployment status")
			return false, ""
		}
		return status.IsReady(), fmt.Sprintf("%d/%d ready", status.Ready(), status.Desired())
	})
}

// WaitForInstance returns nil once the AWX resource reports Running=True.
func (w *Waiter) WaitForInstance(ctx context.Context, name, namespace string, timeout, interval time.Duration) error {
	log := w.log.With().Str("awx", name).Str("namespace", namespace).Logger()
	log.Info().Dur("timeout", timeout).Msg("waiting for AWX instance")

	return w.poll(ctx, "instance", timeout, interval, instanceLogEvery, log, func(ctx context.Context) (bool, string) {
		data, err := w.cluster.Get(ctx, k8s.AWXs, name, namespace)
		if err != nil {
			log.Debug().Err(err).Msg("instance status unavailable")
			return false, ""
		}
		status, err := k8s.ParseInstanceStatus(data)
		if err != nil {
			log.Warn().Err(err).Msg("failed to parse AWX status")
			return false, ""
		}
		return status.Running(), status.Message
	})
}

// poll runs check until it succeeds or timeout has elapsed. Sleeps are capped
// at the remaining time so the total wait never exceeds timeout.
func (w *Waiter) poll(ctx context.Context, target string, timeout, interval, logEvery time.Duration, log zerolog.Logger, check func(context.Context) (bool, string)) error {
	start := w.clock.Now()
	lastLog := start

	for {
		ready, detail := check(ctx)
		if ready {
			pollChecksTotal.WithLabelValues(target, "ready").Inc()
			log.Info().Dur("elapsed", w.clock.Since(start)).Msg("ready")
			return nil
		}
		pollChecksTotal.WithLabelValues(target, "not_ready").Inc()

		now := w.clock.Now()
		elapsed := now.Sub(start)
		if elapsed >= timeout {
			log.Error().Dur("elapsed", elapsed).Msg("timeout waiting for readiness")
			return fmt.Errorf("%s after %s: %w", target, timeout, ErrTimeout)
		}

		if now.Sub(lastLog) >= logEvery {
			ev := log.Info().Dur("elapsed", elapsed)
			if detail != "" {
				ev = ev.Str("status", detail)
			}
			ev.Msg("still waiting")
			lastLog = now
		}

		if err := w.sleep(ctx, min(interval, timeout-elapsed)); err != nil {
			return err
		}
	}
}
