package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrInvalidRule     = errors.New("invalid forwarding rule")
	ErrDuplicateRule   = errors.New("forwarding rule already exists")
	ErrIndexOutOfRange = errors.New("rule index out of range")
	ErrRuleNotFound    = errors.New("rule not found")
)

// Rule describes one forwarding from a local listen port to host:port.
type Rule struct {
	ID         uuid.UUID
	ListenPort int
	TargetHost string
	TargetPort int
}

// Target returns "host:port".
func (r Rule) Target() string {
	return fmt.Sprintf("%s:%d", r.TargetHost, r.TargetPort)
}

func (r Rule) String() string {
	return fmt.Sprintf("%d -> %s", r.ListenPort, r.Target())
}

// Candidate is a rule not yet admitted to the store.
type Candidate struct {
	ListenPort int
	TargetHost string
	TargetPort int
}

func (c Candidate) normalize() Candidate {
	c.TargetHost = strings.TrimSpace(c.TargetHost)
	return c
}

// Validate checks the port ranges and that a host is given.
func (c Candidate) Validate() error {
	c = c.normalize()
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("%w: listen port %d must be between 1 and 65535", ErrInvalidRule, c.ListenPort)
	}
	if c.TargetPort < 1 || c.TargetPort > 65535 {
		return fmt.Errorf("%w: target port %d must be between 1 and 65535", ErrInvalidRule, c.TargetPort)
	}
	if c.TargetHost == "" {
		return fmt.Errorf("%w: target host is required", ErrInvalidRule)
	}
	return nil
}

func (c Candidate) matches(r Rule) bool {
	return c.ListenPort == r.ListenPort && c.TargetHost == r.TargetHost && c.TargetPort == r.TargetPort
}

// Store is the ordered collection of rules. Order is insertion order and is
// only used for display.
type Store struct {
	rules []Rule
	mutex sync.RWMutex
}

func NewStore() *Store {
	return &Store{}
}

// Add validates c, rejects an identical triple and appends it with a fresh ID.
func (s *Store) Add(c Candidate) (Rule, error) {
	if err := c.Validate(); err != nil {
		return Rule{}, err
	}
	c = c.normalize()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.rules {
		if c.matches(existing) {
			return Rule{}, fmt.Errorf("%w: %s", ErrDuplicateRule, existing)
		}
	}

	rule := Rule{
		ID:         uuid.New(),
		ListenPort: c.ListenPort,
		TargetHost: c.TargetHost,
		TargetPort: c.TargetPort,
	}
	s.rules = append(s.rules, rule)
	return rule, nil
}

// Remove deletes the rule with the given id.
func (s *Store) Remove(id uuid.UUID) (Rule, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, r := range s.rules {
		if r.ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return r, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// RemoveAt deletes the rule at index.
func (s *Store) RemoveAt(index int) (Rule, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if index < 0 || index >= len(s.rules) {
		return Rule{}, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(s.rules))
	}
	r := s.rules[index]
	s.rules = append(s.rules[:index], s.rules[index+1:]...)
	return r, nil
}

func (s *Store) Get(id uuid.UUID) (Rule, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, r := range s.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

func (s *Store) At(index int) (Rule, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if index < 0 || index >= len(s.rules) {
		return Rule{}, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(s.rules))
	}
	return s.rules[index], nil
}

// IndexOf returns the display position of id, or -1.
func (s *Store) IndexOf(id uuid.UUID) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for i, r := range s.rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.rules)
}

// List returns a copy of all rules in insertion order.
func (s *Store) List() []Rule {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}
