// Package k8s hides how the deployer talks to the cluster behind a narrow
// interface. Two implementations exist: Kubectl (subprocess) and APIClient
// (client-go).
package k8s

import (
	"context"
	"errors"
	"fmt"
)

type Cluster interface {
	// Ping checks that the cluster API is reachable with the configured credentials.
	Ping(ctx context.Context) error
	// Exists reports whether the object exists. A missing object is (false, nil).
	Exists(ctx context.Context, kind Kind, name, namespace string) (bool, error)
	CreateNamespace(ctx context.Context, name string) error
	// Apply creates or updates the objects in the manifest file at path.
	Apply(ctx context.Context, path string) error
	// ApplyKustomize applies a remote kustomize bundle (e.g. a git ref URL).
	ApplyKustomize(ctx context.Context, url string) error
	// Get returns the object as JSON.
	Get(ctx context.Context, kind Kind, name, namespace string) ([]byte, error)
}

type Code string

const (
	NotFound      Code = "NOT_FOUND"
	AlreadyExists Code = "ALREADY_EXISTS"
	// Transient failures may succeed when the step is retried or rerun.
	Transient Code = "TRANSIENT"
	// Fatal failures will not succeed without operator intervention.
	Fatal Code = "FATAL"
)

type ClusterError struct {
	Code Code
	Op   string
	Err  error
}

func (e *ClusterError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ClusterError) Unwrap() error { return e.Err }

// CodeOf returns the ClusterError code of err, or Transient for any other error.
func CodeOf(err error) Code {
	var ce *ClusterError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return Transient
}

func IsNotFound(err error) bool {
	return err != nil && CodeOf(err) == NotFound
}

func IsAlreadyExists(err error) bool {
	return err != nil && CodeOf(err) == AlreadyExists
}

func IsFatal(err error) bool {
	return err != nil && CodeOf(err) == Fatal
}

func clusterErr(code Code, op string, err error) error {
	return &ClusterError{Code: code, Op: op, Err: err}
}
