package k8s

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

const clientAPI = "api"

// APIClient implements Cluster against the API server with client-go.
// Remote kustomize bundles have no client-go loader, so ApplyKustomize is
// delegated to kubectl.
type APIClient struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
	mapper    meta.RESTMapper
	kustomize *Kubectl
}

func NewAPIClient(kubeconfigPath string, kustomize *Kubectl) (*APIClient, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(clientset.Discovery()))
	return NewAPIClientFrom(clientset, dynamicClient, mapper, kustomize), nil
}

func NewAPIClientFrom(clientset kubernetes.Interface, dyn dynamic.Interface, mapper meta.RESTMapper, kustomize *Kubectl) *APIClient {
	return &APIClient{clientset: clientset, dynamic: dyn, mapper: mapper, kustomize: kustomize}
}

// Ping requests /version with ctx so an interrupt aborts a hanging check.
func (c *APIClient) Ping(ctx context.Context) error {
	var err error
	if rc := c.clientset.Discovery().RESTClient(); rc != nil {
		err = rc.Get().AbsPath("/version").Do(ctx).Error()
	} else {
		// fake discovery clients carry no REST client
		_, err = c.clientset.Discovery().ServerVersion()
	}
	if err != nil {
		err = apiErr("server version", err)
	}
	observe(clientAPI, "cluster-info", err)
	return err
}

func (c *APIClient) Exists(ctx context.Context, kind Kind, name, namespace string) (bool, error) {
	_, err := c.resource(kind, namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		err = apiErr(fmt.Sprintf("get %s/%s", kind, name), err)
		observe(clientAPI, "exists", err)
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	observe(clientAPI, "exists", nil)
	return true, nil
}

func (c *APIClient) CreateNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	_, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil {
		err = apiErr("create namespace "+name, err)
	}
	observe(clientAPI, "create_namespace", err)
	return err
}

// Apply decodes every document in the manifest and creates it, updating in
// place when the object already exists.
func (c *APIClient) Apply(ctx context.Context, path string) error {
	err := c.apply(ctx, path)
	observe(clientAPI, "apply", err)
	return err
}

func (c *APIClient) apply(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return clusterErr(Fatal, "read manifest "+path, err)
	}

	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), 4096)
	for {
		obj := &unstructured.Unstructured{}
		if err := decoder.Decode(&obj.Object); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return clusterErr(Fatal, "decode manifest "+path, err)
		}
		if len(obj.Object) == 0 {
			continue
		}
		if err := c.applyObject(ctx, obj); err != nil {
			return err
		}
	}
}

func (c *APIClient) applyObject(ctx context.Context, obj *unstructured.Unstructured) error {
	gvk := obj.GroupVersionKind()
	op := fmt.Sprintf("apply %s/%s", gvk.Kind, obj.GetName())

	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if meta.IsNoMatchError(err) {
		// CRDs installed earlier in the run are not in the cached discovery yet.
		if r, ok := c.mapper.(meta.ResettableRESTMapper); ok {
			r.Reset()
			mapping, err = c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		}
	}
	if err != nil {
		return clusterErr(Fatal, op, err)
	}

	var ri dynamic.ResourceInterface = c.dynamic.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		ns := obj.GetNamespace()
		if ns == "" {
			ns = metav1.NamespaceDefault
		}
		ri = c.dynamic.Resource(mapping.Resource).Namespace(ns)
	}

	_, err = ri.Create(ctx, obj, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return apiErr(op, err)
	}

	existing, err := ri.Get(ctx, obj.GetName(), metav1.GetOptions{})
	if err != nil {
		return apiErr(op, err)
	}
	obj.SetResourceVersion(existing.GetResourceVersion())
	if _, err := ri.Update(ctx, obj, metav1.UpdateOptions{}); err != nil {
		return apiErr(op, err)
	}
	return nil
}

func (c *APIClient) ApplyKustomize(ctx context.Context, url string) error {
	if c.kustomize == nil {
		err := clusterErr(Fatal, "apply kustomize "+url, errors.New("no kubectl configured for kustomize bundles"))
		observe(clientAPI, "apply_kustomize", err)
		return err
	}
	return c.kustomize.ApplyKustomize(ctx, url)
}

func (c *APIClient) Get(ctx context.Context, kind Kind, name, namespace string) ([]byte, error) {
	obj, err := c.resource(kind, namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		err = apiErr(fmt.Sprintf("get %s/%s", kind, name), err)
		observe(clientAPI, "get", err)
		return nil, err
	}
	observe(clientAPI, "get", nil)
	return obj.MarshalJSON()
}

func (c *APIClient) resource(kind Kind, namespace string) dynamic.ResourceInterface {
	if kind.Namespaced {
		return c.dynamic.Resource(kind.GVR).Namespace(namespace)
	}
	return c.dynamic.Resource(kind.GVR)
}

func apiErr(op string, err error) error {
	switch {
	case apierrors.IsNotFound(err):
		return clusterErr(NotFound, op, err)
	case apierrors.IsAlreadyExists(err):
		return clusterErr(AlreadyExists, op, err)
	case apierrors.IsForbidden(err), apierrors.IsUnauthorized(err), apierrors.IsInvalid(err):
		return clusterErr(Fatal, op, err)
	default:
		return clusterErr(Transient, op, err)
	}
}
