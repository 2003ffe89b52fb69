package proc

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/xlttj/portpanel/pkg/logging"
)

// ErrStopTimeout is returned when a child is still alive after terminate, kill and both waits.
var ErrStopTimeout = errors.New("process did not exit after kill")

// Process is an owned handle to a long-running child.
type Process interface {
	Pid() int
	// Done is closed once the child has been reaped.
	Done() <-chan struct{}
	Exited() bool
	// Stop sends a graceful terminate, waits up to grace, then force-kills.
	Stop(grace time.Duration) error
	// Stderr returns the tail of what the child wrote to stderr so far.
	Stderr() string
}

// Result is the outcome of a synchronous command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns stdout if non-empty, else stderr.
func (r Result) Output() string {
	if r.Stdout != "" {
		return r.Stdout
	}
	return r.Stderr
}

const stderrTailSize = 4096

type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > stderrTailSize {
		b.buf = b.buf[len(b.buf)-stderrTailSize:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

type cmdProcess struct {
	cmd    *exec.Cmd
	done   chan struct{}
	stderr *tailBuffer
}

// Spawn starts name with args in its own process group without waiting for it.
// When stdin is non-nil it is written to the child's standard input, which is
// then closed.
func Spawn(name string, args []string, stdin []byte) (Process, error) {
	cmd := exec.Command(name, args...)
	setSysProcAttr(cmd)

	stderr := &tailBuffer{}
	cmd.Stdout = nil
	cmd.Stderr = stderr

	var stdinPipe io.WriteCloser
	if stdin != nil {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return nil, errors.Wrap(err, "create stdin pipe")
		}
		stdinPipe = pipe
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", name)
	}

	if stdinPipe != nil {
		if _, err := stdinPipe.Write(stdin); err != nil {
			logging.LogError("Writing stdin to PID %d failed: %v", cmd.Process.Pid, err)
		}
		_ = stdinPipe.Close()
	}

	p := &cmdProcess{
		cmd:    cmd,
		done:   make(chan struct{}),
		stderr: stderr,
	}
	go p.wait()

	logging.LogDebug("Spawned %s (PID: %d)", name, cmd.Process.Pid)
	return p, nil
}

func (p *cmdProcess) wait() {
	err := p.cmd.Wait()
	close(p.done)
	if err != nil {
		logging.LogDebug("PID %d exited: %v", p.Pid(), err)
	} else {
		logging.LogDebug("PID %d exited cleanly", p.Pid())
	}
}

func (p *cmdProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *cmdProcess) Done() <-chan struct{} {
	return p.done
}

func (p *cmdProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *cmdProcess) Stderr() string {
	return p.stderr.String()
}

func (p *cmdProcess) Stop(grace time.Duration) error {
	if p.Exited() {
		return nil
	}

	if err := terminateProcess(p.cmd); err != nil {
		logging.LogDebug("Terminate PID %d: %v", p.Pid(), err)
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
	}

	logging.LogDebug("PID %d still running after %s, killing", p.Pid(), grace)
	if err := forceKillProcess(p.cmd); err != nil {
		logging.LogError("Kill PID %d: %v", p.Pid(), err)
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
		return errors.Wrapf(ErrStopTimeout, "pid %d", p.Pid())
	}
}

// Run executes name synchronously, feeding stdin, and captures its output.
// A command that exits non-zero is not an error; a command that cannot run at
// all returns exit code -1 and the error.
func Run(ctx context.Context, name string, args []string, stdin []byte) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	res.ExitCode = -1
	if res.Stderr == "" {
		res.Stderr = err.Error()
	}
	return res, errors.Wrapf(err, "run %s", name)
}
