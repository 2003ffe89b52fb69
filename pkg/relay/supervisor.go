// Package relay supervises one external TCP relay process per active forwarding rule.
package relay

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xlttj/portpanel/pkg/activity"
	"github.com/xlttj/portpanel/pkg/logging"
	"github.com/xlttj/portpanel/pkg/proc"
	"github.com/xlttj/portpanel/pkg/rules"
)

// ErrRelayUnavailable marks an activation that could not start a relay. It is
// recorded on the activity log, never returned: the rule degrades instead.
var ErrRelayUnavailable = errors.New("relay unavailable")

const (
	DefaultRelayBinary             = "socat"
	DefaultElevationBinary         = "sudo"
	DefaultPrivilegedPortThreshold = 1024
	DefaultStopGrace               = time.Second
)

// Config holds the supervisor's tunables.
type Config struct {
	RelayBinary             string
	ElevationBinary         string
	PrivilegedPortThreshold int
	StopGrace               time.Duration
}

// DefaultConfig returns the socat/sudo defaults.
func DefaultConfig() Config {
	return Config{
		RelayBinary:             DefaultRelayBinary,
		ElevationBinary:         DefaultElevationBinary,
		PrivilegedPortThreshold: DefaultPrivilegedPortThreshold,
		StopGrace:               DefaultStopGrace,
	}
}

// Elevator spawns relays that need a privileged bind.
type Elevator interface {
	HasCredential() bool
	SpawnLongRunning(ctx context.Context, args ...string) (proc.Process, error)
}

type (
	LookPathFunc  func(file string) (string, error)
	SpawnFunc     func(name string, args []string, stdin []byte) (proc.Process, error)
	PortCheckFunc func(port int) bool
)

// Option customizes a Supervisor.
type Option func(*Supervisor)

func WithLookPath(fn LookPathFunc) Option   { return func(s *Supervisor) { s.lookPath = fn } }
func WithSpawner(fn SpawnFunc) Option       { return func(s *Supervisor) { s.spawn = fn } }
func WithPortCheck(fn PortCheckFunc) Option { return func(s *Supervisor) { s.portFree = fn } }

// ruleState is the runtime state of one rule. Absent from the map means inactive.
// An entry is either backed by a process or explicitly degraded.
type ruleState struct {
	process  proc.Process
	degraded bool
}

// RuleView is the display projection of a rule and its runtime state.
type RuleView struct {
	Index    int
	Rule     rules.Rule
	Active   bool
	Degraded bool
	PID      int
	// Exited reports that the relay died on its own and has not been toggled since.
	Exited bool
}

// Supervisor toggles rules between active and inactive and owns their relay processes.
// All state transitions are serialized by a single mutex.
type Supervisor struct {
	store    *rules.Store
	elevator Elevator
	recorder activity.Recorder
	cfg      Config

	lookPath LookPathFunc
	spawn    SpawnFunc
	portFree PortCheckFunc

	mutex  sync.Mutex
	states map[uuid.UUID]*ruleState
}

// NewSupervisor creates a supervisor over store. elevator may be nil, in which
// case privileged relays always degrade.
func NewSupervisor(store *rules.Store, elevator Elevator, recorder activity.Recorder, cfg Config, opts ...Option) *Supervisor {
	def := DefaultConfig()
	if cfg.RelayBinary == "" {
		cfg.RelayBinary = def.RelayBinary
	}
	if cfg.ElevationBinary == "" {
		cfg.ElevationBinary = def.ElevationBinary
	}
	if cfg.PrivilegedPortThreshold <= 0 {
		cfg.PrivilegedPortThreshold = def.PrivilegedPortThreshold
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = def.StopGrace
	}
	if recorder == nil {
		recorder = activity.Discard
	}

	s := &Supervisor{
		store:    store,
		elevator: elevator,
		recorder: recorder,
		cfg:      cfg,
		lookPath: exec.LookPath,
		spawn:    proc.Spawn,
		portFree: isPortAvailable,
		states:   make(map[uuid.UUID]*ruleState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the rule store the supervisor works on.
func (s *Supervisor) Store() *rules.Store {
	return s.store
}

func (s *Supervisor) record(level activity.Level, r *rules.Rule, format string, args ...interface{}) {
	e := activity.Entry{Level: level, Source: "relay", Message: fmt.Sprintf(format, args...)}
	if r != nil {
		e.RuleID = r.ID.String()
	}
	switch level {
	case activity.LevelError:
		logging.LogError("%s", e.Message)
	case activity.LevelWarn:
		logging.LogWarn("%s", e.Message)
	default:
		logging.LogInfo("%s", e.Message)
	}
	s.recorder.Record(e)
}

func (s *Supervisor) status(tone activity.Tone, format string, args ...interface{}) {
	s.recorder.SetStatus(activity.Status{Text: fmt.Sprintf(format, args...), Tone: tone})
}

// Add admits a new inactive rule to the store.
func (s *Supervisor) Add(c rules.Candidate) (rules.Rule, error) {
	r, err := s.store.Add(c)
	if err != nil {
		if errors.Is(err, rules.ErrDuplicateRule) {
			s.record(activity.LevelInfo, nil, "Rule already exists: %d -> %s:%d", c.ListenPort, c.TargetHost, c.TargetPort)
		} else {
			s.record(activity.LevelWarn, nil, "Add rule failed: %v", err)
		}
		return rules.Rule{}, err
	}
	s.record(activity.LevelInfo, &r, "Added rule: %s", r)
	s.status(activity.ToneNeutral, "Added rule: %s", r)
	return r, nil
}

// Toggle deactivates an active rule, or activates an inactive one. Activation
// is exclusive: every other active rule is stopped first.
func (s *Supervisor) Toggle(ctx context.Context, id uuid.UUID) (RuleView, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, err := s.store.Get(id)
	if err != nil {
		s.record(activity.LevelWarn, nil, "Toggle failed: %v", err)
		return RuleView{}, err
	}

	if _, active := s.states[id]; active {
		s.deactivateLocked(r)
		s.record(activity.LevelInfo, &r, "Stopped forwarding %s", r)
		s.status(activity.ToneNeutral, "Stopped forwarding %d", r.ListenPort)
		return s.viewLocked(r), nil
	}

	for otherID := range s.states {
		if otherID == id {
			continue
		}
		other, err := s.store.Get(otherID)
		if err != nil {
			// state for a rule that is no longer stored; drop it
			s.stopStateLocked(otherID, nil)
			continue
		}
		s.deactivateLocked(other)
		s.record(activity.LevelInfo, &other, "Stopped forwarding %s (another rule was activated)", other)
	}

	s.activateLocked(ctx, r)
	return s.viewLocked(r), nil
}

// ToggleAt toggles the rule at display position index.
func (s *Supervisor) ToggleAt(ctx context.Context, index int) (RuleView, error) {
	r, err := s.store.At(index)
	if err != nil {
		s.record(activity.LevelWarn, nil, "Toggle failed: %v", err)
		return RuleView{}, err
	}
	return s.Toggle(ctx, r.ID)
}

func (s *Supervisor) activateLocked(ctx context.Context, r rules.Rule) {
	relayPath, err := s.lookPath(s.cfg.RelayBinary)
	if err != nil {
		s.degradeLocked(r, fmt.Errorf("%w: %s not found", ErrRelayUnavailable, s.cfg.RelayBinary))
		s.record(activity.LevelWarn, &r, "Activated rule (no relay): %s", r)
		s.status(activity.ToneWarning, "Activated (no relay) %d", r.ListenPort)
		return
	}

	p, err := s.startRelayLocked(ctx, relayPath, r)
	if err != nil {
		s.degradeLocked(r, err)
		s.record(activity.LevelWarn, &r, "Relay start failed: %v", err)
		s.status(activity.ToneWarning, "Activated (relay failed) %d", r.ListenPort)
		return
	}

	s.states[r.ID] = &ruleState{process: p}
	s.record(activity.LevelInfo, &r, "Started relay: %s (PID: %d)", r, p.Pid())
	s.status(activity.ToneGood, "Forwarding %s", r)
}

func (s *Supervisor) startRelayLocked(ctx context.Context, relayPath string, r rules.Rule) (proc.Process, error) {
	args := relayArgs(r)

	if r.ListenPort < s.cfg.PrivilegedPortThreshold && s.elevator != nil {
		if _, err := s.lookPath(s.cfg.ElevationBinary); err == nil {
			if !s.elevator.HasCredential() {
				s.record(activity.LevelWarn, &r, "Sudo password not provided; privileged relay cancelled")
				return nil, fmt.Errorf("%w: no credential for privileged port %d", ErrRelayUnavailable, r.ListenPort)
			}
			p, err := s.elevator.SpawnLongRunning(ctx, append([]string{relayPath}, args...)...)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRelayUnavailable, err)
			}
			return p, nil
		}
	}

	if r.ListenPort >= s.cfg.PrivilegedPortThreshold && !s.portFree(r.ListenPort) {
		return nil, fmt.Errorf("%w: %w: %d", ErrRelayUnavailable, ErrPortInUse, r.ListenPort)
	}
	p, err := s.spawn(relayPath, args, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayUnavailable, err)
	}
	return p, nil
}

func (s *Supervisor) degradeLocked(r rules.Rule, cause error) {
	logging.WithFields(map[string]interface{}{"rule": r.ID.String(), "listen": r.ListenPort}).
		Debugf("degraded activation: %v", cause)
	s.states[r.ID] = &ruleState{degraded: true}
}

// deactivateLocked stops r's process (if any) and always clears its state.
func (s *Supervisor) deactivateLocked(r rules.Rule) {
	s.stopStateLocked(r.ID, &r)
}

func (s *Supervisor) stopStateLocked(id uuid.UUID, r *rules.Rule) {
	st, ok := s.states[id]
	if !ok {
		return
	}
	delete(s.states, id)
	if st.process == nil {
		return
	}
	if err := st.process.Stop(s.cfg.StopGrace); err != nil {
		s.record(activity.LevelWarn, r, "Stopping relay PID %d failed, state reset anyway: %v", st.process.Pid(), err)
	}
}

// Stop deactivates the rule if it is active.
func (s *Supervisor) Stop(_ context.Context, id uuid.UUID) (RuleView, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, err := s.store.Get(id)
	if err != nil {
		return RuleView{}, err
	}
	if _, active := s.states[id]; active {
		s.deactivateLocked(r)
		s.record(activity.LevelInfo, &r, "Stopped forwarding %s", r)
		s.status(activity.ToneNeutral, "Stopped forwarding %d", r.ListenPort)
	}
	return s.viewLocked(r), nil
}

// Remove stops the rule's relay, then deletes the rule from the store.
func (s *Supervisor) Remove(_ context.Context, id uuid.UUID) (rules.Rule, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, err := s.store.Get(id)
	if err != nil {
		s.record(activity.LevelWarn, nil, "Remove failed: %v", err)
		return rules.Rule{}, err
	}
	return s.removeLocked(r)
}

// RemoveAt removes the rule at display position index.
func (s *Supervisor) RemoveAt(_ context.Context, index int) (rules.Rule, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, err := s.store.At(index)
	if err != nil {
		s.record(activity.LevelWarn, nil, "Remove failed: invalid index %d", index)
		return rules.Rule{}, err
	}
	return s.removeLocked(r)
}

func (s *Supervisor) removeLocked(r rules.Rule) (rules.Rule, error) {
	if _, active := s.states[r.ID]; active {
		s.deactivateLocked(r)
		s.record(activity.LevelInfo, &r, "Stopped forwarding before removing rule %d", r.ListenPort)
	}
	removed, err := s.store.Remove(r.ID)
	if err != nil {
		return rules.Rule{}, err
	}
	s.record(activity.LevelInfo, &removed, "Removed rule: %s", removed)
	s.status(activity.ToneNeutral, "Removed rule: %s", removed)
	return removed, nil
}

func (s *Supervisor) viewLocked(r rules.Rule) RuleView {
	v := RuleView{Index: s.store.IndexOf(r.ID), Rule: r}
	st, ok := s.states[r.ID]
	if !ok {
		return v
	}
	v.Active = true
	v.Degraded = st.degraded
	if st.process != nil {
		v.PID = st.process.Pid()
		v.Exited = st.process.Exited()
	}
	return v
}

// State returns the current view of one rule.
func (s *Supervisor) State(id uuid.UUID) (RuleView, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, err := s.store.Get(id)
	if err != nil {
		return RuleView{}, err
	}
	return s.viewLocked(r), nil
}

// List returns every rule with its runtime state, in display order.
func (s *Supervisor) List() []RuleView {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	list := s.store.List()
	out := make([]RuleView, 0, len(list))
	for _, r := range list {
		out = append(out, s.viewLocked(r))
	}
	return out
}

// ActiveCount returns how many rules are currently active.
func (s *Supervisor) ActiveCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.states)
}

// CleanupAll stops every relay. Used on exit.
func (s *Supervisor) CleanupAll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id := range s.states {
		r, err := s.store.Get(id)
		if err != nil {
			s.stopStateLocked(id, nil)
			continue
		}
		logging.LogDebug("CleanupAll: stopping %s", r)
		s.deactivateLocked(r)
	}
	s.states = make(map[uuid.UUID]*ruleState)
	logging.LogDebug("CleanupAll finished.")
}
