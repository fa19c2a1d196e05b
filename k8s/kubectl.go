package k8s

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/padminisys/awx-deployer/utils"
)

const clientKubectl = "kubectl"

// stderr fragments kubectl prints for well-known API outcomes.
const (
	errNotFound      = "(NotFound)"
	errNoSuchKind    = "doesn't have a resource type"
	errAlreadyExists = "(AlreadyExists)"
	errExists        = "already exists"
)

// Kubectl implements Cluster by running the kubectl binary. Every invocation
// carries --kubeconfig so the process environment is never modified.
type Kubectl struct {
	bin        string
	kubeconfig string
	cmd        utils.Runner
}

func NewKubectl(bin, kubeconfig string) *Kubectl {
	return NewKubectlWithRunner(bin, kubeconfig, &utils.ShellRunner{})
}

func NewKubectlWithRunner(bin, kubeconfig string, r utils.Runner) *Kubectl {
	return &Kubectl{bin: bin, kubeconfig: kubeconfig, cmd: r}
}

func (k *Kubectl) Ping(ctx context.Context) error {
	_, err := k.exec(ctx, "cluster-info", "cluster-info")
	return err
}

func (k *Kubectl) Exists(ctx context.Context, kind Kind, name, namespace string) (bool, error) {
	args := append([]string{"get", kind.Resource, name}, nsArgs(kind, namespace)...)
	args = append(args, "--ignore-not-found", "-o", "name")

	out, err := k.exec(ctx, "exists", args...)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (k *Kubectl) CreateNamespace(ctx context.Context, name string) error {
	_, err := k.exec(ctx, "create_namespace", "create", "namespace", name)
	return err
}

func (k *Kubectl) Apply(ctx context.Context, path string) error {
	_, err := k.exec(ctx, "apply", "apply", "-f", path)
	return err
}

func (k *Kubectl) ApplyKustomize(ctx context.Context, url string) error {
	_, err := k.exec(ctx, "apply_kustomize", "apply", "-k", url)
	return err
}

func (k *Kubectl) Get(ctx context.Context, kind Kind, name, namespace string) ([]byte, error) {
	args := append([]string{"get", kind.Resource, name}, nsArgs(kind, namespace)...)
	args = append(args, "-o", "json")

	out, err := k.exec(ctx, "get", args...)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (k *Kubectl) exec(ctx context.Context, op string, args ...string) (string, error) {
	full := append([]string{"--kubeconfig", k.kubeconfig}, args...)
	out, err := k.cmd.Run(ctx, k.bin, full...)
	if err != nil {
		err = classify(fmt.Sprintf("kubectl %s", strings.Join(args, " ")), err)
	}
	observe(clientKubectl, op, err)
	return out, err
}

func nsArgs(kind Kind, namespace string) []string {
	if !kind.Namespaced || namespace == "" {
		return nil
	}
	return []string{"-n", namespace}
}

// classify maps a failed kubectl invocation onto a ClusterError code.
func classify(op string, err error) error {
	msg := err.Error()
	var cmdErr *utils.CommandError
	if errors.As(err, &cmdErr) {
		msg = cmdErr.Stderr
	}

	switch {
	case errors.Is(err, exec.ErrNotFound):
		return clusterErr(Fatal, op, err)
	case strings.Contains(msg, errNotFound), strings.Contains(msg, errNoSuchKind):
		return clusterErr(NotFound, op, err)
	case strings.Contains(msg, errAlreadyExists), strings.Contains(msg, errExists):
		return clusterErr(AlreadyExists, op, err)
	default:
		return clusterErr(Transient, op, err)
	}
}
