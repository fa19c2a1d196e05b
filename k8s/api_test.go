package k8s

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"

	"github.com/padminisys/awx-deployer/utils"
)

var testKinds = []struct {
	kind  Kind
	gvk   schema.GroupVersionKind
	scope meta.RESTScope
}{
	{Namespaces, schema.GroupVersionKind{Version: "v1", Kind: "Namespace"}, meta.RESTScopeRoot},
	{StorageClasses, schema.GroupVersionKind{Group: "storage.k8s.io", Version: "v1", Kind: "StorageClass"}, meta.RESTScopeRoot},
	{PersistentVolumes, schema.GroupVersionKind{Version: "v1", Kind: "PersistentVolume"}, meta.RESTScopeRoot},
	{Secrets, schema.GroupVersionKind{Version: "v1", Kind: "Secret"}, meta.RESTScopeNamespace},
	{Deployments, schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}, meta.RESTScopeNamespace},
	{AWXs, schema.GroupVersionKind{Group: "awx.ansible.com", Version: "v1beta1", Kind: "AWX"}, meta.RESTScopeNamespace},
}

func newTestAPIClient(t *testing.T, kustomize *Kubectl, objs ...runtime.Object) *APIClient {
	t.Helper()

	mapper := meta.NewDefaultRESTMapper(nil)
	listKinds := map[schema.GroupVersionResource]string{}
	for _, k := range testKinds {
		mapper.Add(k.gvk, k.scope)
		listKinds[k.kind.GVR] = k.gvk.Kind + "List"
	}

	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), listKinds, objs...)
	return NewAPIClientFrom(fake.NewClientset(), dyn, mapper, kustomize)
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const pvManifest = `
apiVersion: v1
kind: PersistentVolume
metadata:
  name: awx-postgres-pv
spec:
  capacity:
    storage: 8Gi
  persistentVolumeReclaimPolicy: Retain
`

func newServerAPIClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clientset, err := kubernetes.NewForConfig(&rest.Config{Host: srv.URL})
	require.NoError(t, err)
	return NewAPIClientFrom(clientset, nil, nil, nil)
}

func TestAPIClientPingServer(t *testing.T) {
	var path string
	c := newServerAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"major":"1","minor":"35","gitVersion":"v1.35.3"}`))
	})

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "/version", path)
}

func TestAPIClientPingHonorsContext(t *testing.T) {
	release := make(chan struct{})
	c := newServerAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Ping(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, IsNotFound(err))
}

func TestAPIClientPing(t *testing.T) {
	c := newTestAPIClient(t, nil)
	require.NoError(t, c.Ping(context.Background()))
}

func TestAPIClientApplyAndExists(t *testing.T) {
	ctx := context.Background()
	c := newTestAPIClient(t, nil)

	ok, err := c.Exists(ctx, PersistentVolumes, "awx-postgres-pv", "")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Apply(ctx, writeManifest(t, pvManifest)))

	ok, err = c.Exists(ctx, PersistentVolumes, "awx-postgres-pv", "")
	require.NoError(t, err)
	assert.True(t, ok)

	// second apply goes through the update path
	require.NoError(t, c.Apply(ctx, writeManifest(t, pvManifest)))
}

func TestAPIClientApplyNamespacedDefaultsNamespace(t *testing.T) {
	ctx := context.Background()
	c := newTestAPIClient(t, nil)

	require.NoError(t, c.Apply(ctx, writeManifest(t, `
apiVersion: v1
kind: Secret
metadata:
  name: awx-admin-password
stringData:
  password: x
`)))

	ok, err := c.Exists(ctx, Secrets, "awx-admin-password", "default")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAPIClientApplyMultiDocument(t *testing.T) {
	ctx := context.Background()
	c := newTestAPIClient(t, nil)

	require.NoError(t, c.Apply(ctx, writeManifest(t, `
apiVersion: storage.k8s.io/v1
kind: StorageClass
metadata:
  name: hostpath
provisioner: kubernetes.io/no-provisioner
---
apiVersion: awx.ansible.com/v1beta1
kind: AWX
metadata:
  name: awx-instance
  namespace: awx
spec:
  hostname: awx.example.com
`)))

	ok, err := c.Exists(ctx, StorageClasses, "hostpath", "")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := c.Get(ctx, AWXs, "awx-instance", "awx")
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	spec := obj["spec"].(map[string]any)
	assert.Equal(t, "awx.example.com", spec["hostname"])
}

func TestAPIClientApplyUnknownKind(t *testing.T) {
	c := newTestAPIClient(t, nil)
	err := c.Apply(context.Background(), writeManifest(t, `
apiVersion: example.com/v1
kind: Widget
metadata:
  name: w
`))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestAPIClientApplyMissingFile(t *testing.T) {
	c := newTestAPIClient(t, nil)
	err := c.Apply(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestAPIClientGet(t *testing.T) {
	deployment := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]any{"name": "awx-operator-controller-manager", "namespace": "awx"},
		"status":     map[string]any{"replicas": int64(1), "readyReplicas": int64(1)},
	}}
	c := newTestAPIClient(t, nil, deployment)

	data, err := c.Get(context.Background(), Deployments, "awx-operator-controller-manager", "awx")
	require.NoError(t, err)

	status, err := ParseDeploymentStatus(data)
	require.NoError(t, err)
	assert.True(t, status.IsReady())

	_, err = c.Get(context.Background(), Deployments, "missing", "awx")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestAPIClientCreateNamespace(t *testing.T) {
	ctx := context.Background()
	c := newTestAPIClient(t, nil)

	require.NoError(t, c.CreateNamespace(ctx, "awx"))
	ns, err := c.clientset.CoreV1().Namespaces().Get(ctx, "awx", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "awx", ns.Name)

	err = c.CreateNamespace(ctx, "awx")
	require.Error(t, err)
	assert.True(t, IsAlreadyExists(err))
}

func TestAPIClientApplyKustomize(t *testing.T) {
	t.Run("delegates to kubectl", func(t *testing.T) {
		m := &utils.MockRunner{}
		c := newTestAPIClient(t, NewKubectlWithRunner("kubectl", "/kc", m))

		require.NoError(t, c.ApplyKustomize(context.Background(), "github.com/ansible/awx-operator/config/default?ref=2.19.1"))
		assert.Equal(t, 1, m.CallCount("apply", "-k"))
	})

	t.Run("without kubectl", func(t *testing.T) {
		c := newTestAPIClient(t, nil)
		err := c.ApplyKustomize(context.Background(), "x")
		require.Error(t, err)
		assert.True(t, IsFatal(err))
	})
}
