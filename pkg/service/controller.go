// Package service starts, stops and queries the managed web server through the
// elevated executor.
package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xlttj/portpanel/pkg/activity"
	"github.com/xlttj/portpanel/pkg/logging"
	"github.com/xlttj/portpanel/pkg/proc"
)

const (
	DefaultName        = "apache2"
	DefaultManager     = "systemctl"
	DefaultDisplayName = "Apache"
)

// Outcome of a service action.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	// OutcomeCancelled means no credential was cached and nothing was run.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// StatusKind classifies the output of the manager's is-active verb.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusRunning
	StatusDisabled
)

// Status is a freshly computed classification; it is never cached.
type Status struct {
	Kind StatusKind
	// Text is the capitalized raw answer when Kind is StatusUnknown.
	Text string
}

func (s Status) String() string {
	switch s.Kind {
	case StatusRunning:
		return "Running"
	case StatusDisabled:
		return "Disabled"
	default:
		if s.Text == "" {
			return "Unknown"
		}
		return s.Text
	}
}

// Tone maps the status to a status bar color class.
func (s Status) Tone() activity.Tone {
	switch s.Kind {
	case StatusRunning:
		return activity.ToneGood
	case StatusDisabled:
		return activity.ToneWarning
	default:
		return activity.ToneBad
	}
}

// ParseStatus classifies is-active output: "active" is running, "inactive" is
// disabled, anything else is unknown and echoed capitalized.
func ParseStatus(output string) Status {
	text := strings.ToLower(strings.TrimSpace(output))
	switch text {
	case "active":
		return Status{Kind: StatusRunning}
	case "inactive":
		return Status{Kind: StatusDisabled}
	default:
		return Status{Kind: StatusUnknown, Text: capitalize(text)}
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Result is what one action produced.
type Result struct {
	Outcome  Outcome
	ExitCode int
	Output   string
}

// Runner is the privileged executor the controller drives.
type Runner interface {
	HasCredential() bool
	RunCaptured(ctx context.Context, args ...string) (proc.Result, error)
}

// Config names the managed service.
type Config struct {
	Name        string
	Manager     string
	DisplayName string
}

// Controller is a thin facade over Runner for the start, stop and is-active verbs.
type Controller struct {
	runner   Runner
	recorder activity.Recorder
	cfg      Config
}

func NewController(runner Runner, recorder activity.Recorder, cfg Config) *Controller {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Manager == "" {
		cfg.Manager = DefaultManager
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = DefaultDisplayName
	}
	if recorder == nil {
		recorder = activity.Discard
	}
	return &Controller{runner: runner, recorder: recorder, cfg: cfg}
}

// Name returns the managed unit name.
func (c *Controller) Name() string {
	return c.cfg.Name
}

func (c *Controller) record(level activity.Level, msg string) {
	c.recorder.Record(activity.Entry{Level: level, Source: "service", Message: msg})
}

func (c *Controller) run(ctx context.Context, verb string) (Result, bool) {
	if !c.runner.HasCredential() {
		c.record(activity.LevelWarn, "Sudo password not provided; action cancelled.")
		logging.LogWarn("%s %s %s cancelled: no credential", c.cfg.Manager, verb, c.cfg.Name)
		return Result{Outcome: OutcomeCancelled}, false
	}

	res, err := c.runner.RunCaptured(ctx, c.cfg.Manager, verb, c.cfg.Name)
	if err != nil {
		logging.LogError("%s %s %s: %v", c.cfg.Manager, verb, c.cfg.Name, err)
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}
		if res.Output() == "" {
			res.Stderr = err.Error()
		}
	}

	out := Result{ExitCode: res.ExitCode, Output: res.Output(), Outcome: OutcomeFailed}
	if res.ExitCode == 0 {
		out.Outcome = OutcomeSucceeded
	}
	logging.LogDebug("%s %s %s exited %d", c.cfg.Manager, verb, c.cfg.Name, res.ExitCode)
	return out, true
}

func (c *Controller) outputLine(res Result, fallback string) string {
	if text := strings.TrimRight(res.Output, "\n"); text != "" {
		return text
	}
	return fallback
}

// Start runs `<manager> start <name>`.
func (c *Controller) Start(ctx context.Context) Result {
	res, ran := c.run(ctx, "start")
	if !ran {
		return res
	}
	c.record(levelFor(res), c.outputLine(res, fmt.Sprintf("start returned %d", res.ExitCode)))
	if res.Outcome == OutcomeSucceeded {
		c.recorder.SetStatus(activity.Status{Text: c.cfg.DisplayName + " started", Tone: activity.ToneGood})
	} else {
		c.recorder.SetStatus(activity.Status{Text: c.cfg.DisplayName + " start error", Tone: activity.ToneBad})
	}
	return res
}

// Stop runs `<manager> stop <name>`.
func (c *Controller) Stop(ctx context.Context) Result {
	res, ran := c.run(ctx, "stop")
	if !ran {
		return res
	}
	c.record(levelFor(res), c.outputLine(res, fmt.Sprintf("stop returned %d", res.ExitCode)))
	if res.Outcome == OutcomeSucceeded {
		c.recorder.SetStatus(activity.Status{Text: c.cfg.DisplayName + " stopped", Tone: activity.ToneBad})
	} else {
		c.recorder.SetStatus(activity.Status{Text: c.cfg.DisplayName + " stop error", Tone: activity.ToneBad})
	}
	return res
}

// QueryStatus runs `<manager> is-active <name>` and classifies the answer.
// A non-zero exit is expected for inactive units and is not a failure of the query.
func (c *Controller) QueryStatus(ctx context.Context) (Status, Result) {
	res, ran := c.run(ctx, "is-active")
	if !ran {
		return Status{}, res
	}
	status := ParseStatus(res.Output)
	c.recorder.SetStatus(activity.Status{
		Text: fmt.Sprintf("%s Status: %s", c.cfg.DisplayName, status),
		Tone: status.Tone(),
	})
	c.record(activity.LevelInfo, c.outputLine(res, fmt.Sprintf("Status check returned %d", res.ExitCode)))
	return status, res
}

func levelFor(res Result) activity.Level {
	if res.Outcome == OutcomeSucceeded {
		return activity.LevelInfo
	}
	return activity.LevelError
}
