package k8s

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Kind identifies a resource type for both implementations: Resource is what
// kubectl accepts, GVR what the dynamic client needs.
type Kind struct {
	Resource   string
	GVR        schema.GroupVersionResource
	Namespaced bool
}

func (k Kind) String() string { return k.Resource }

var (
	Namespaces        = Kind{Resource: "namespace", GVR: schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}}
	StorageClasses    = Kind{Resource: "storageclass", GVR: schema.GroupVersionResource{Group: "storage.k8s.io", Version: "v1", Resource: "storageclasses"}}
	PersistentVolumes = Kind{Resource: "pv", GVR: schema.GroupVersionResource{Version: "v1", Resource: "persistentvolumes"}}
	Secrets           = Kind{Resource: "secret", GVR: schema.GroupVersionResource{Version: "v1", Resource: "secrets"}, Namespaced: true}
	Services          = Kind{Resource: "service", GVR: schema.GroupVersionResource{Version: "v1", Resource: "services"}, Namespaced: true}
	Deployments       = Kind{Resource: "deployment", GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}, Namespaced: true}
	Ingresses         = Kind{Resource: "ingress", GVR: schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"}, Namespaced: true}
	AWXs              = Kind{Resource: "awx", GVR: schema.GroupVersionResource{Group: "awx.ansible.com", Version: "v1beta1", Resource: "awxs"}, Namespaced: true}
)

// Lightweight status types, decoded from the JSON returned by Cluster.Get.

type Condition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

type DeploymentStatus struct {
	Replicas      *int32 `json:"replicas,omitempty"`
	ReadyReplicas *int32 `json:"readyReplicas,omitempty"`
}

type InstanceStatus struct {
	Conditions []Condition `json:"conditions,omitempty"`
	Message    string      `json:"message,omitempty"`
}

type Secret struct {
	Data map[string]string `json:"data"`
}
