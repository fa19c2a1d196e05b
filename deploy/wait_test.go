package deploy

import (
	"context"
	"testing"
	"time"

	"github.com/padminisys/awx-deployer/k8s"
	"github.com/padminisys/awx-deployer/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceCluster returns the given payloads from Get in order, repeating the
// last one.
type sequenceCluster struct {
	*fakeCluster
	payloads []string
	gets     int
}

func (s *sequenceCluster) Get(context.Context, k8s.Kind, string, string) ([]byte, error) {
	i := min(s.gets, len(s.payloads)-1)
	s.gets++
	return []byte(s.payloads[i]), nil
}

func newTestWaiter(payloads ...string) (*Waiter, *sequenceCluster, *[]time.Duration) {
	c := &sequenceCluster{fakeCluster: newFakeCluster(), payloads: payloads}
	fc, sleep, slept := testClock()
	return NewWaiter(c, fc, sleep, zerolog.Nop()), c, slept
}

func TestWaitForDeploymentTimeout(t *testing.T) {
	tests := []struct {
		name      string
		timeout   time.Duration
		interval  time.Duration
		wantSleep []time.Duration
	}{
		{"exact multiple", 30 * time.Second, 10 * time.Second, []time.Duration{10 * time.Second, 10 * time.Second, 10 * time.Second}},
		{"last sleep capped", 25 * time.Second, 10 * time.Second, []time.Duration{10 * time.Second, 10 * time.Second, 5 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c, slept := newTestWaiter(`{"status":{"replicas":1}}`)

			err := w.WaitForDeployment(context.Background(), model.OperatorDeployment, "awx", tt.timeout, tt.interval)
			require.ErrorIs(t, err, ErrTimeout)
			assert.Equal(t, tt.wantSleep, *slept)
			assert.Equal(t, len(tt.wantSleep)+1, c.gets)
		})
	}
}

func TestWaitForDeploymentDefaults(t *testing.T) {
	w, c, slept := newTestWaiter(`{"status":{"replicas":2,"readyReplicas":1}}`)

	err := w.WaitForDeployment(context.Background(), model.OperatorDeployment, "awx", 600*time.Second, 10*time.Second)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 600*time.Second, total(*slept))
	assert.Equal(t, 61, c.gets)
}

func TestWaitForDeploymentBecomesReady(t *testing.T) {
	w, c, slept := newTestWaiter(
		`{"status":{}}`,
		`not json`,
		`{"status":{"replicas":1,"readyReplicas":1}}`,
	)

	err := w.WaitForDeployment(context.Background(), model.OperatorDeployment, "awx", time.Minute, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, c.gets)
	assert.Equal(t, 20*time.Second, total(*slept))
}

func TestWaitForDeploymentMissingStatusCountsAsOneReplica(t *testing.T) {
	w, _, slept := newTestWaiter(`{"status":{"readyReplicas":1}}`)

	require.NoError(t, w.WaitForDeployment(context.Background(), model.OperatorDeployment, "awx", time.Minute, 10*time.Second))
	assert.Empty(t, *slept)
}

func TestWaitForInstance(t *testing.T) {
	w, c, slept := newTestWaiter(
		`{"status":{"message":"creating"}}`,
		`{"status":{"conditions":[{"type":"Successful","status":"True"},{"type":"Running","status":"False"}]}}`,
		`{"status":{"conditions":[{"type":"Failure","status":"True"},{"type":"Running","status":"True"}]}}`,
	)

	err := w.WaitForInstance(context.Background(), "awx-instance", "awx", 20*time.Minute, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, c.gets)
	assert.Equal(t, time.Minute, total(*slept))
}

func TestWaitForInstanceTimeout(t *testing.T) {
	w, c, slept := newTestWaiter(`{"status":{"conditions":[{"type":"Running","status":"False"}]}}`)

	err := w.WaitForInstance(context.Background(), "awx-instance", "awx", 1200*time.Second, 30*time.Second)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1200*time.Second, total(*slept))
	assert.Equal(t, 41, c.gets)
}

func TestWaitCanceled(t *testing.T) {
	w, c, _ := newTestWaiter(`{"status":{}}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WaitForInstance(ctx, "awx-instance", "awx", time.Minute, 30*time.Second)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, c.gets)
}
