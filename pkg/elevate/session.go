package elevate

import "sync"

// Session holds the elevated-privilege credential for the lifetime of the panel.
// The credential is only ever handed to the elevation binary's stdin; it is never
// logged or persisted. Close drops it.
type Session struct {
	mu       sync.RWMutex
	password []byte
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// HasCredential reports whether a validated credential is cached.
func (s *Session) HasCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.password) > 0
}

// Close zeroes and forgets the cached credential.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.password {
		s.password[i] = 0
	}
	s.password = nil
}

func (s *Session) set(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.password {
		s.password[i] = 0
	}
	s.password = []byte(password)
}

// stdinLine returns a fresh copy of the credential followed by a newline, as
// `sudo -S` expects it. ok is false when nothing is cached.
func (s *Session) stdinLine() (line []byte, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.password) == 0 {
		return nil, false
	}
	line = make([]byte, 0, len(s.password)+1)
	line = append(line, s.password...)
	line = append(line, '\n')
	return line, true
}
