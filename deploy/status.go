package deploy

import (
	"context"
	"fmt"
	"io"

	"github.com/padminisys/awx-deployer/k8s"
	"github.com/padminisys/awx-deployer/model"
)

type OperatorReport struct {
	Installed     bool  `json:"installed"`
	Replicas      int32 `json:"replicas"`
	ReadyReplicas int32 `json:"readyReplicas"`
	Ready         bool  `json:"ready"`
}

type InstanceReport struct {
	Name       string          `json:"name"`
	Exists     bool            `json:"exists"`
	Running    bool            `json:"running"`
	Message    string          `json:"message,omitempty"`
	Conditions []k8s.Condition `json:"conditions,omitempty"`
}

type Report struct {
	Namespace string         `json:"namespace"`
	URL       string         `json:"url"`
	Operator  OperatorReport `json:"operator"`
	Instance  InstanceReport `json:"instance"`
}

func (r Report) Ready() bool {
	return r.Operator.Ready && r.Instance.Running
}

// Status reads the current operator and instance state without changing
// anything in the cluster.
func (d *Deployer) Status(ctx context.Context) (Report, error) {
	r := Report{
		Namespace: d.cfg.Namespace,
		URL:       d.cfg.URL(),
		Instance:  InstanceReport{Name: d.cfg.AWXName},
	}

	if err := d.cluster.Ping(ctx); err != nil {
		return r, fmt.Errorf("cannot access Kubernetes cluster: %w", err)
	}

	data, err := d.cluster.Get(ctx, k8s.Deployments, model.OperatorDeployment, d.cfg.Namespace)
	switch {
	case k8s.IsNotFound(err):
	case err != nil:
		return r, fmt.Errorf("get operator deployment: %w", err)
	default:
		status, err := k8s.ParseDeploymentStatus(data)
		if err != nil {
			return r, err
		}
		r.Operator = OperatorReport{
			Installed:     true,
			Replicas:      status.Desired(),
			ReadyReplicas: status.Ready(),
			Ready:         status.IsReady(),
		}
	}

	data, err = d.cluster.Get(ctx, k8s.AWXs, d.cfg.AWXName, d.cfg.Namespace)
	switch {
	case k8s.IsNotFound(err):
	case err != nil:
		return r, fmt.Errorf("get AWX instance: %w", err)
	default:
		status, err := k8s.ParseInstanceStatus(data)
		if err != nil {
			return r, err
		}
		r.Instance.Exists = true
		r.Instance.Running = status.Running()
		r.Instance.Message = status.Message
		r.Instance.Conditions = status.Conditions
	}

	return r, nil
}

func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Namespace: %s\n", r.Namespace)
	fmt.Fprintf(w, "URL:       %s\n", r.URL)
	if r.Operator.Installed {
		fmt.Fprintf(w, "Operator:  %d/%d ready\n", r.Operator.ReadyReplicas, r.Operator.Replicas)
	} else {
		fmt.Fprintln(w, "Operator:  not installed")
	}
	switch {
	case !r.Instance.Exists:
		fmt.Fprintf(w, "Instance:  %s not found\n", r.Instance.Name)
	case r.Instance.Running:
		fmt.Fprintf(w, "Instance:  %s running\n", r.Instance.Name)
	default:
		fmt.Fprintf(w, "Instance:  %s not running\n", r.Instance.Name)
	}
	if r.Instance.Message != "" {
		fmt.Fprintf(w, "Message:   %s\n", r.Instance.Message)
	}
	for _, c := range r.Instance.Conditions {
		fmt.Fprintf(w, "  %s=%s %s\n", c.Type, c.Status, c.Reason)
	}
}
