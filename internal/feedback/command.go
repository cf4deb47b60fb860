package feedback

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/ayusman/wakeguard/internal/session"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds how long a feedback command may run.
const DefaultTimeout = 3 * time.Second

// Command is an external program run for an event.
type Command struct {
	Name string
	Args []string
}

// Runner executes a command; it exists so tests can replace exec.
type Runner func(ctx context.Context, cmd Command) error

// CommandSink runs a command per event in the background, e.g. to play a sound.
type CommandSink struct {
	commands map[session.Event]Command
	timeout  time.Duration
	run      Runner
	log      logrus.FieldLogger
	wg       sync.WaitGroup
}

// NewCommandSink creates a CommandSink for the given event commands.
// Events without a command are ignored.
func NewCommandSink(commands map[session.Event]Command, log logrus.FieldLogger) *CommandSink {
	return &CommandSink{
		commands: commands,
		timeout:  DefaultTimeout,
		run:      execRunner,
		log:      log,
	}
}

// SystemSounds returns the sound commands for the current platform, or false
// if the platform has no known player.
func SystemSounds() (map[session.Event]Command, bool) {
	return SoundsFor(runtime.GOOS)
}

// SoundsFor returns the sound commands for goos: system sounds through afplay
// on macOS, console beeps through PowerShell on Windows.
func SoundsFor(goos string) (map[session.Event]Command, bool) {
	switch goos {
	case "darwin":
		sound := func(name string) Command {
			return Command{Name: "afplay", Args: []string{fmt.Sprintf("/System/Library/Sounds/%s.aiff", name)}}
		}
		return map[session.Event]Command{
			session.EventStart:           sound("Tink"),
			session.EventStageComplete:   sound("Glass"),
			session.EventSessionComplete: sound("Hero"),
		}, true
	case "windows":
		beep := func(freq, ms int) Command {
			return Command{Name: "powershell", Args: []string{
				"-NoProfile", "-NonInteractive", "-Command",
				fmt.Sprintf("[console]::beep(%d,%d)", freq, ms),
			}}
		}
		return map[session.Event]Command{
			session.EventStart:           beep(1000, 100),
			session.EventStageComplete:   beep(1500, 300),
			session.EventSessionComplete: beep(2000, 600),
		}, true
	default:
		return nil, false
	}
}

// Notify starts the event's command without waiting for it.
func (s *CommandSink) Notify(ev session.Event) {
	cmd, ok := s.commands[ev]
	if !ok {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.run(ctx, cmd); err != nil {
			s.log.WithFields(logrus.Fields{
				"event":   string(ev),
				"command": cmd.Name,
			}).WithError(err).Warn("feedback command failed")
		}
	}()
}

// Wait blocks until every started command has finished.
func (s *CommandSink) Wait() {
	s.wg.Wait()
}

func execRunner(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	out, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("timed out after %s", DefaultTimeout)
	}
	if err != nil {
		if len(out) > 0 {
			return fmt.Errorf("%w: %s", err, out)
		}
		return err
	}
	return nil
}
