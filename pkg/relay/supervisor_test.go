package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlttj/portpanel/pkg/activity"
	"github.com/xlttj/portpanel/pkg/proc"
	"github.com/xlttj/portpanel/pkg/rules"
)

type fakeProcess struct {
	pid     int
	stopErr error

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, done: make(chan struct{})}
}

func (p *fakeProcess) Pid() int              { return p.pid }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) Stderr() string        { return "" }

func (p *fakeProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *fakeProcess) exit() { close(p.done) }

func (p *fakeProcess) Stop(time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.stopErr != nil {
		return p.stopErr
	}
	if !p.Exited() {
		close(p.done)
	}
	return nil
}

func (p *fakeProcess) wasStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

type spawnCall struct {
	name string
	args []string
}

type fakeSpawner struct {
	calls []spawnCall
	procs []*fakeProcess
	err   error
}

func (f *fakeSpawner) spawn(name string, args []string, _ []byte) (proc.Process, error) {
	f.calls = append(f.calls, spawnCall{name: name, args: args})
	if f.err != nil {
		return nil, f.err
	}
	p := newFakeProcess(1000 + len(f.procs))
	f.procs = append(f.procs, p)
	return p, nil
}

type fakeElevator struct {
	hasCredential bool
	calls         [][]string
	proc          *fakeProcess
}

func (e *fakeElevator) HasCredential() bool { return e.hasCredential }

func (e *fakeElevator) SpawnLongRunning(_ context.Context, args ...string) (proc.Process, error) {
	e.calls = append(e.calls, args)
	e.proc = newFakeProcess(1)
	return e.proc, nil
}

func lookPathFound(name string) (string, error) { return "/usr/bin/" + name, nil }

func lookPathMissing(string) (string, error) {
	return "", errors.New("executable file not found in $PATH")
}

func portAlwaysFree(int) bool { return true }

func hasMessage(log *activity.Log, substr string) bool {
	for _, e := range log.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func newTestSupervisor(t *testing.T, opts ...Option) (*Supervisor, *activity.Log) {
	t.Helper()
	log := activity.NewLog(0)
	opts = append([]Option{WithPortCheck(portAlwaysFree)}, opts...)
	return NewSupervisor(rules.NewStore(), nil, log, DefaultConfig(), opts...), log
}

func TestToggleWithoutRelayDegradesThenDeactivates(t *testing.T) {
	spawner := &fakeSpawner{}
	s, log := newTestSupervisor(t, WithLookPath(lookPathMissing), WithSpawner(spawner.spawn))

	r, err := s.Add(rules.Candidate{ListenPort: 8080, TargetHost: "10.0.0.5", TargetPort: 80})
	require.NoError(t, err)
	require.Equal(t, 1, s.Store().Len())
	v, err := s.State(r.ID)
	require.NoError(t, err)
	assert.False(t, v.Active)

	v, err = s.ToggleAt(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, v.Active)
	assert.True(t, v.Degraded)
	assert.Zero(t, v.PID)
	assert.True(t, hasMessage(log, "no relay"))
	assert.Empty(t, spawner.calls)

	v, err = s.ToggleAt(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, v.Active)
	assert.False(t, v.Degraded)
	assert.Zero(t, v.PID)
	assert.Zero(t, s.ActiveCount())
}

func TestToggleStartsRelayWithExpectedArgs(t *testing.T) {
	spawner := &fakeSpawner{}
	s, log := newTestSupervisor(t, WithLookPath(lookPathFound), WithSpawner(spawner.spawn))

	_, err := s.Add(rules.Candidate{ListenPort: 8080, TargetHost: "10.0.0.5", TargetPort: 80})
	require.NoError(t, err)

	v, err := s.ToggleAt(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, v.Active)
	assert.False(t, v.Degraded)
	assert.Equal(t, 1000, v.PID)

	require.Len(t, spawner.calls, 1)
	assert.Equal(t, "/usr/bin/socat", spawner.calls[0].name)
	assert.Equal(t, []string{"TCP-LISTEN:8080,reuseaddr,fork", "TCP:10.0.0.5:80"}, spawner.calls[0].args)
	assert.Equal(t, activity.ToneGood, log.Status().Tone)
	assert.Contains(t, log.Status().Text, "Forwarding 8080")
}

func TestToggleTwiceLeavesNoProcess(t *testing.T) {
	spawner := &fakeSpawner{}
	s, _ := newTestSupervisor(t, WithLookPath(lookPathFound), WithSpawner(spawner.spawn))
	r, _ := s.Add(rules.Candidate{ListenPort: 9000, TargetHost: "h", TargetPort: 1})

	_, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)
	v, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)

	assert.False(t, v.Active)
	assert.Zero(t, v.PID)
	require.Len(t, spawner.procs, 1)
	assert.True(t, spawner.procs[0].wasStopped())
}

func TestStopFailureStillResetsState(t *testing.T) {
	spawner := &fakeSpawner{}
	s, log := newTestSupervisor(t, WithLookPath(lookPathFound), WithSpawner(spawner.spawn))
	r, _ := s.Add(rules.Candidate{ListenPort: 9000, TargetHost: "h", TargetPort: 1})

	_, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)
	spawner.procs[0].stopErr = proc.ErrStopTimeout

	v, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, v.Active)
	assert.True(t, hasMessage(log, "state reset anyway"))
}

func TestExclusiveActivationStopsOtherRelay(t *testing.T) {
	spawner := &fakeSpawner{}
	s, _ := newTestSupervisor(t, WithLookPath(lookPathFound), WithSpawner(spawner.spawn))
	first, _ := s.Add(rules.Candidate{ListenPort: 9001, TargetHost: "h", TargetPort: 1})
	second, _ := s.Add(rules.Candidate{ListenPort: 9002, TargetHost: "h", TargetPort: 2})

	_, err := s.Toggle(context.Background(), first.ID)
	require.NoError(t, err)
	_, err = s.Toggle(context.Background(), second.ID)
	require.NoError(t, err)

	v1, _ := s.State(first.ID)
	v2, _ := s.State(second.ID)
	assert.False(t, v1.Active)
	assert.Zero(t, v1.PID)
	assert.True(t, v2.Active)
	assert.True(t, spawner.procs[0].wasStopped())
	assert.False(t, spawner.procs[1].wasStopped())
	assert.Equal(t, 1, s.ActiveCount())
}

func TestExclusiveActivationClearsDegradedRule(t *testing.T) {
	s, _ := newTestSupervisor(t, WithLookPath(lookPathMissing))
	first, _ := s.Add(rules.Candidate{ListenPort: 9001, TargetHost: "h", TargetPort: 1})
	second, _ := s.Add(rules.Candidate{ListenPort: 9002, TargetHost: "h", TargetPort: 2})

	_, _ = s.Toggle(context.Background(), first.ID)
	_, _ = s.Toggle(context.Background(), second.ID)

	views := s.List()
	require.Len(t, views, 2)
	assert.False(t, views[0].Active)
	assert.True(t, views[1].Active)
	assert.True(t, views[1].Degraded)
}

func TestRemoveActiveRuleStopsFirst(t *testing.T) {
	spawner := &fakeSpawner{}
	s, log := newTestSupervisor(t, WithLookPath(lookPathFound), WithSpawner(spawner.spawn))
	_, _ = s.Add(rules.Candidate{ListenPort: 9001, TargetHost: "h", TargetPort: 1})
	r, _ := s.Add(rules.Candidate{ListenPort: 9002, TargetHost: "h", TargetPort: 2})

	_, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)

	removed, err := s.RemoveAt(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, r.ID, removed.ID)
	assert.Equal(t, 1, s.Store().Len())
	assert.True(t, spawner.procs[0].wasStopped())
	assert.Zero(t, s.ActiveCount())
	assert.True(t, hasMessage(log, "Stopped forwarding before removing rule 9002"))
}

func TestRemoveDegradedRule(t *testing.T) {
	s, _ := newTestSupervisor(t, WithLookPath(lookPathMissing))
	r, _ := s.Add(rules.Candidate{ListenPort: 9001, TargetHost: "h", TargetPort: 1})
	_, _ = s.Toggle(context.Background(), r.ID)

	_, err := s.Remove(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Zero(t, s.Store().Len())
	assert.Zero(t, s.ActiveCount())
}

func TestIndexOutOfRangeIsReported(t *testing.T) {
	s, log := newTestSupervisor(t)

	_, err := s.ToggleAt(context.Background(), 0)
	assert.ErrorIs(t, err, rules.ErrIndexOutOfRange)
	_, err = s.RemoveAt(context.Background(), 2)
	assert.ErrorIs(t, err, rules.ErrIndexOutOfRange)
	assert.True(t, hasMessage(log, "invalid index 2"))
}

func TestSpawnErrorDegrades(t *testing.T) {
	spawner := &fakeSpawner{err: errors.New("fork failed")}
	s, log := newTestSupervisor(t, WithLookPath(lookPathFound), WithSpawner(spawner.spawn))
	r, _ := s.Add(rules.Candidate{ListenPort: 9001, TargetHost: "h", TargetPort: 1})

	v, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, v.Active)
	assert.True(t, v.Degraded)
	assert.True(t, hasMessage(log, "fork failed"))
	assert.Equal(t, activity.ToneWarning, log.Status().Tone)
}

func TestBusyPortDegrades(t *testing.T) {
	spawner := &fakeSpawner{}
	s := NewSupervisor(rules.NewStore(), nil, activity.NewLog(0), DefaultConfig(),
		WithLookPath(lookPathFound), WithSpawner(spawner.spawn), WithPortCheck(func(int) bool { return false }))
	r, _ := s.Add(rules.Candidate{ListenPort: 9001, TargetHost: "h", TargetPort: 1})

	v, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, v.Degraded)
	assert.Empty(t, spawner.calls)
}

func TestPrivilegedPortUsesElevator(t *testing.T) {
	spawner := &fakeSpawner{}
	elevator := &fakeElevator{hasCredential: true}
	s := NewSupervisor(rules.NewStore(), elevator, activity.NewLog(0), DefaultConfig(),
		WithLookPath(lookPathFound), WithSpawner(spawner.spawn), WithPortCheck(portAlwaysFree))
	r, _ := s.Add(rules.Candidate{ListenPort: 80, TargetHost: "10.0.0.5", TargetPort: 8080})

	v, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, v.Active)
	assert.False(t, v.Degraded)
	assert.Empty(t, spawner.calls)
	require.Len(t, elevator.calls, 1)
	assert.Equal(t, []string{"/usr/bin/socat", "TCP-LISTEN:80,reuseaddr,fork", "TCP:10.0.0.5:8080"}, elevator.calls[0])
}

func TestPrivilegedPortWithoutCredentialNeverCallsElevator(t *testing.T) {
	elevator := &fakeElevator{}
	log := activity.NewLog(0)
	s := NewSupervisor(rules.NewStore(), elevator, log, DefaultConfig(),
		WithLookPath(lookPathFound), WithPortCheck(portAlwaysFree))
	r, _ := s.Add(rules.Candidate{ListenPort: 443, TargetHost: "h", TargetPort: 8443})

	v, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, v.Degraded)
	assert.Empty(t, elevator.calls)
	assert.True(t, hasMessage(log, "Sudo password not provided"))
}

func TestPrivilegedPortWithoutElevationBinarySpawnsDirectly(t *testing.T) {
	spawner := &fakeSpawner{}
	elevator := &fakeElevator{hasCredential: true}
	lookPath := func(name string) (string, error) {
		if name == "sudo" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	s := NewSupervisor(rules.NewStore(), elevator, nil, DefaultConfig(),
		WithLookPath(lookPath), WithSpawner(spawner.spawn), WithPortCheck(portAlwaysFree))
	r, _ := s.Add(rules.Candidate{ListenPort: 80, TargetHost: "h", TargetPort: 1})

	_, err := s.Toggle(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Empty(t, elevator.calls)
	assert.Len(t, spawner.calls, 1)
}

func TestExitedRelayIsReported(t *testing.T) {
	spawner := &fakeSpawner{}
	s, _ := newTestSupervisor(t, WithLookPath(lookPathFound), WithSpawner(spawner.spawn))
	r, _ := s.Add(rules.Candidate{ListenPort: 9001, TargetHost: "h", TargetPort: 1})
	_, _ = s.Toggle(context.Background(), r.ID)

	spawner.procs[0].exit()
	v, _ := s.State(r.ID)
	assert.True(t, v.Active)
	assert.True(t, v.Exited)
}

func TestCleanupAllStopsEverything(t *testing.T) {
	spawner := &fakeSpawner{}
	s, _ := newTestSupervisor(t, WithLookPath(lookPathFound), WithSpawner(spawner.spawn))
	r, _ := s.Add(rules.Candidate{ListenPort: 9001, TargetHost: "h", TargetPort: 1})
	_, _ = s.Toggle(context.Background(), r.ID)

	s.CleanupAll()
	assert.Zero(t, s.ActiveCount())
	assert.True(t, spawner.procs[0].wasStopped())
}

func TestActiveImpliesProcessOrDegraded(t *testing.T) {
	spawner := &fakeSpawner{}
	s, _ := newTestSupervisor(t, WithLookPath(lookPathFound), WithSpawner(spawner.spawn))
	for _, port := range []int{9001, 9002, 9003} {
		_, err := s.Add(rules.Candidate{ListenPort: port, TargetHost: "h", TargetPort: 1})
		require.NoError(t, err)
	}

	for _, idx := range []int{0, 1, 1, 2, 0, 0, 2} {
		_, err := s.ToggleAt(context.Background(), idx)
		require.NoError(t, err)
		for _, v := range s.List() {
			if v.Active {
				assert.True(t, v.PID != 0 || v.Degraded)
			} else {
				assert.Zero(t, v.PID)
				assert.False(t, v.Degraded)
			}
		}
	}
}

func TestDuplicateAddIsRecorded(t *testing.T) {
	s, log := newTestSupervisor(t)
	c := rules.Candidate{ListenPort: 9001, TargetHost: "h", TargetPort: 1}
	_, err := s.Add(c)
	require.NoError(t, err)
	_, err = s.Add(c)
	assert.ErrorIs(t, err, rules.ErrDuplicateRule)
	assert.True(t, hasMessage(log, "Rule already exists"))
}
