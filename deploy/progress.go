package deploy

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

type StepState string

const (
	StatePending   StepState = "pending"
	StateRunning   StepState = "running"
	StateDone      StepState = "done"
	StateSkipped   StepState = "skipped"
	StateTolerated StepState = "tolerated"
	StateFailed    StepState = "failed"
)

type StepRecord struct {
	Name       string     `json:"name"`
	State      StepState  `json:"state"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Progress records the state of each step of a run. It is written by the
// deployer and may be read concurrently by the status server.
type Progress struct {
	clock clock.PassiveClock
	mu    sync.RWMutex
	steps []StepRecord
	index map[string]int
}

func NewProgress(clk clock.PassiveClock) *Progress {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Progress{clock: clk, index: make(map[string]int)}
}

// Init resets the tracker to the given steps, all pending.
func (p *Progress) Init(names []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = make([]StepRecord, len(names))
	p.index = make(map[string]int, len(names))
	for i, n := range names {
		p.steps[i] = StepRecord{Name: n, State: StatePending}
		p.index[n] = i
	}
}

func (p *Progress) Start(name string) {
	p.update(name, func(r *StepRecord) {
		now := p.clock.Now()
		r.State = StateRunning
		r.StartedAt = &now
	})
}

func (p *Progress) Finish(name string, state StepState, err error) {
	p.update(name, func(r *StepRecord) {
		now := p.clock.Now()
		r.State = state
		r.FinishedAt = &now
		if err != nil {
			r.Error = err.Error()
		}
	})
}

func (p *Progress) update(name string, fn func(*StepRecord)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.index[name]
	if !ok {
		p.steps = append(p.steps, StepRecord{Name: name, State: StatePending})
		i = len(p.steps) - 1
		p.index[name] = i
	}
	fn(&p.steps[i])
}

// Current returns the name of the running step, or "" when idle.
func (p *Progress) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, r := range p.steps {
		if r.State == StateRunning {
			return r.Name
		}
	}
	return ""
}

func (p *Progress) Snapshot() []StepRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]StepRecord, len(p.steps))
	copy(out, p.steps)
	return out
}
