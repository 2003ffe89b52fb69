package elevate

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/xlttj/portpanel/pkg/logging"
	"github.com/xlttj/portpanel/pkg/proc"
)

var (
	// ErrNoCredential means a privileged action was attempted before a credential was validated.
	ErrNoCredential = errors.New("sudo password not provided")
	// ErrBadCredential means the elevation binary rejected the password.
	ErrBadCredential = errors.New("incorrect sudo password")
	// ErrEmptyPassword is returned by Validate for an empty input.
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// Executor runs commands with elevated privileges.
type Executor interface {
	// RunCaptured runs args synchronously and captures the result.
	RunCaptured(ctx context.Context, args ...string) (proc.Result, error)
	// SpawnLongRunning starts args without waiting and returns an owned handle.
	SpawnLongRunning(ctx context.Context, args ...string) (proc.Process, error)
}

// RunFunc matches proc.Run.
type RunFunc func(ctx context.Context, name string, args []string, stdin []byte) (proc.Result, error)

// SpawnFunc matches proc.Spawn.
type SpawnFunc func(name string, args []string, stdin []byte) (proc.Process, error)

// Sudo is an Executor backed by `sudo -S`, reading the credential from a Session.
type Sudo struct {
	binary  string
	session *Session
	run     RunFunc
	spawn   SpawnFunc
}

// Option customizes a Sudo executor.
type Option func(*Sudo)

// WithRunner replaces the synchronous command runner.
func WithRunner(fn RunFunc) Option {
	return func(s *Sudo) { s.run = fn }
}

// WithSpawner replaces the long-running process spawner.
func WithSpawner(fn SpawnFunc) Option {
	return func(s *Sudo) { s.spawn = fn }
}

// NewSudo creates an executor invoking binary (normally "sudo").
func NewSudo(binary string, session *Session, opts ...Option) *Sudo {
	s := &Sudo{
		binary:  binary,
		session: session,
		run:     proc.Run,
		spawn:   proc.Spawn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Binary returns the elevation binary name.
func (s *Sudo) Binary() string {
	return s.binary
}

// Session returns the credential session this executor reads from.
func (s *Sudo) Session() *Session {
	return s.session
}

// HasCredential reports whether the session holds a validated credential.
func (s *Sudo) HasCredential() bool {
	return s.session.HasCredential()
}

// Validate checks password with `sudo -S -k true` and caches it on success.
func (s *Sudo) Validate(ctx context.Context, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	stdin := []byte(password + "\n")
	res, err := s.run(ctx, s.binary, []string{"-S", "-k", "true"}, stdin)
	for i := range stdin {
		stdin[i] = 0
	}
	if err != nil {
		return errors.Wrap(err, "sudo check failed")
	}
	if res.ExitCode != 0 {
		logging.LogWarn("Credential validation rejected (exit %d)", res.ExitCode)
		return ErrBadCredential
	}
	s.session.set(password)
	logging.LogInfo("Credential validated for this session")
	return nil
}

func (s *Sudo) RunCaptured(ctx context.Context, args ...string) (proc.Result, error) {
	stdin, ok := s.session.stdinLine()
	if !ok {
		return proc.Result{}, ErrNoCredential
	}
	logging.LogDebug("Running: %s -S %s", s.binary, strings.Join(args, " "))
	res, err := s.run(ctx, s.binary, append([]string{"-S"}, args...), stdin)
	if err != nil {
		logging.LogError("Elevated command %q failed to run: %v", strings.Join(args, " "), err)
		return res, errors.Wrap(err, "elevated run")
	}
	return res, nil
}

func (s *Sudo) SpawnLongRunning(ctx context.Context, args ...string) (proc.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stdin, ok := s.session.stdinLine()
	if !ok {
		return nil, ErrNoCredential
	}
	logging.LogDebug("Spawning: %s -S %s", s.binary, strings.Join(args, " "))
	p, err := s.spawn(s.binary, append([]string{"-S"}, args...), stdin)
	if err != nil {
		return nil, errors.Wrap(err, "elevated spawn")
	}
	return p, nil
}
