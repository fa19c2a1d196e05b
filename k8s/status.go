package k8s

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	ConditionRunning = "Running"
	ConditionTrue    = "True"
)

// Desired returns the replica count the deployment wants. Deployments whose
// status has not been populated yet count as wanting one replica.
func (s DeploymentStatus) Desired() int32 {
	if s.Replicas == nil {
		return 1
	}
	return *s.Replicas
}

func (s DeploymentStatus) Ready() int32 {
	if s.ReadyReplicas == nil {
		return 0
	}
	return *s.ReadyReplicas
}

func (s DeploymentStatus) IsReady() bool {
	return s.Ready() == s.Desired()
}

func ParseDeploymentStatus(data []byte) (DeploymentStatus, error) {
	var obj struct {
		Status DeploymentStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return DeploymentStatus{}, fmt.Errorf("decode deployment status: %w", err)
	}
	return obj.Status, nil
}

func ParseInstanceStatus(data []byte) (InstanceStatus, error) {
	var obj struct {
		Status InstanceStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return InstanceStatus{}, fmt.Errorf("decode instance status: %w", err)
	}
	return obj.Status, nil
}

// Condition returns the first condition of the given type.
func (s InstanceStatus) Condition(condType string) (Condition, bool) {
	for _, c := range s.Conditions {
		if c.Type == condType {
			return c, true
		}
	}
	return Condition{}, false
}

// Running is true if any condition has type Running and status True.
func (s InstanceStatus) Running() bool {
	for _, c := range s.Conditions {
		if c.Type == ConditionRunning && c.Status == ConditionTrue {
			return true
		}
	}
	return false
}

// SecretValue decodes a single key of a Secret object. A missing or empty key
// returns ok=false without error.
func SecretValue(data []byte, key string) (value string, ok bool, err error) {
	var secret Secret
	if err := json.Unmarshal(data, &secret); err != nil {
		return "", false, fmt.Errorf("decode secret: %w", err)
	}

	encoded := secret.Data[key]
	if encoded == "" {
		return "", false, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", false, fmt.Errorf("decode secret key %q: %w", key, err)
	}
	return string(decoded), true, nil
}
