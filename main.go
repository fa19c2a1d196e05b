package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/padminisys/awx-deployer/deploy"
	"github.com/padminisys/awx-deployer/k8s"
	"github.com/padminisys/awx-deployer/model"
	"github.com/padminisys/awx-deployer/server"
	"github.com/padminisys/awx-deployer/utils"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

var errMissingKubeconfig = errors.New("kubeconfig not found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newCommand(os.Stdout, os.Stderr).Run(ctx, os.Args)
	interrupted := ctx.Err() != nil
	stop()

	os.Exit(exitCode(err, interrupted))
}

func exitCode(err error, interrupted bool) int {
	switch {
	case err == nil:
		return exitOK
	case interrupted || errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailure
	}
}

func newCommand(stdout, stderr io.Writer) *cli.Command {
	deployCmd := func(ctx context.Context, cmd *cli.Command) error {
		return runDeploy(ctx, cmd, stdout, stderr)
	}

	return &cli.Command{
		Name:    model.AppName,
		Usage:   "deploy AWX onto a Kubernetes cluster",
		Version: version,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (trace, debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: deployCmd,
		Commands: []*cli.Command{
			{
				Name:   "deploy",
				Usage:  "install or converge the AWX deployment (default)",
				Action: deployCmd,
			},
			{
				Name:  "status",
				Usage: "show operator and AWX instance state",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print the report as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStatus(ctx, cmd, stdout, stderr)
				},
			},
			{
				Name:  "password",
				Usage: "print the AWX admin password",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runPassword(ctx, cmd, stdout, stderr)
				},
			},
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(_ context.Context, _ *cli.Command) error {
					_, err := fmt.Fprintf(stdout, "%s %s (%s)\n", model.AppName, version, commit)
					return err
				},
			},
		},
	}
}

func loadConfig() (*model.Config, error) {
	cfg, err := env.ParseAs[model.Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setup loads config, builds the logger, and confirms the kubeconfig exists.
// The returned closer must be called once the command is done.
func setup(cmd *cli.Command, stderr io.Writer, withLogFile bool) (*model.Config, zerolog.Logger, io.Closer, error) {
	level := utils.ParseLevel(cmd.String("log-level"))

	cfg, err := loadConfig()
	if err != nil {
		logger, closer, _ := utils.NewLogger(level, stderr, "")
		logger.Error().Err(err).Msg("invalid configuration")
		return nil, logger, closer, err
	}

	logFile := ""
	if withLogFile {
		logFile = cfg.LogFile
	}
	logger, closer, err := utils.NewLogger(level, stderr, logFile)
	if err != nil {
		logger, closer, _ = utils.NewLogger(level, stderr, "")
		logger.Error().Err(err).Msg("failed to open log file")
		return nil, logger, closer, err
	}

	if _, err := os.Stat(cfg.KubeconfigPath); err != nil {
		logger.Error().Str("path", cfg.KubeconfigPath).Msg("kubeconfig file not found, please provide a valid kubeconfig file")
		return nil, logger, closer, fmt.Errorf("%w at %s", errMissingKubeconfig, cfg.KubeconfigPath)
	}
	logger.Info().Str("path", cfg.KubeconfigPath).Str("client", cfg.ClusterClient).Msg("using kubeconfig")

	return cfg, logger, closer, nil
}

func newCluster(cfg *model.Config) (k8s.Cluster, error) {
	kubectl := k8s.NewKubectl(cfg.KubectlBin, cfg.KubeconfigPath)
	if cfg.ClusterClient == model.ClusterClientAPI {
		return k8s.NewAPIClient(cfg.KubeconfigPath, kubectl)
	}
	return kubectl, nil
}

func newDeployer(cmd *cli.Command, stdout, stderr io.Writer, withLogFile bool, opts ...deploy.Option) (*deploy.Deployer, *model.Config, zerolog.Logger, io.Closer, error) {
	cfg, logger, closer, err := setup(cmd, stderr, withLogFile)
	if err != nil {
		return nil, nil, logger, closer, err
	}
	cluster, err := newCluster(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create cluster client")
		return nil, nil, logger, closer, err
	}
	opts = append([]deploy.Option{deploy.WithLogger(logger), deploy.WithOutput(stdout)}, opts...)
	return deploy.New(cfg, cluster, opts...), cfg, logger, closer, nil
}

func runDeploy(ctx context.Context, cmd *cli.Command, stdout, stderr io.Writer) error {
	progress := deploy.NewProgress(nil)
	d, cfg, logger, closer, err := newDeployer(cmd, stdout, stderr, true, deploy.WithProgress(progress))
	defer closer.Close()
	if err != nil {
		return err
	}
	logger.Info().Str("version", version).Str("commit", commit).Msg("starting awx-deployer")

	if cfg.StatusAddr != "" {
		stop := startStatusServer(ctx, cfg.StatusAddr, progress, logger)
		defer stop()
	}

	err = d.Run(ctx)
	if err != nil && ctx.Err() != nil {
		logger.Info().Msg("deployment interrupted by user")
	}
	return err
}

// startStatusServer serves progress in the background. The returned stop
// function shuts the server down and waits for it to exit.
func startStatusServer(ctx context.Context, addr string, progress *deploy.Progress, logger zerolog.Logger) (stop func()) {
	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	srv := server.New(addr, version, commit, progress, logger)
	go func() {
		defer close(done)
		if err := srv.Run(srvCtx); err != nil {
			logger.Error().Err(err).Msg("status server failed")
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func runStatus(ctx context.Context, cmd *cli.Command, stdout, stderr io.Writer) error {
	d, _, logger, closer, err := newDeployer(cmd, stdout, stderr, false)
	defer closer.Close()
	if err != nil {
		return err
	}

	report, err := d.Status(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read deployment status")
		return err
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	report.Print(stdout)
	return nil
}

func runPassword(ctx context.Context, cmd *cli.Command, stdout, stderr io.Writer) error {
	d, _, logger, closer, err := newDeployer(cmd, stdout, stderr, false)
	defer closer.Close()
	if err != nil {
		return err
	}

	password, ok := d.AdminPassword(ctx)
	if !ok {
		err := errors.New("admin password not available")
		logger.Error().Err(err).Str("secret", model.AdminSecretName).Msg("failed to read admin password")
		return err
	}
	_, err = fmt.Fprintln(stdout, password)
	return err
}
