package deploy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"deployd/internal/platform/config"
)

// ErrScriptStderr marks a deploy whose script wrote to stderr. Deploy
// scripts are expected to be silent on stderr; any output there is
// treated as a failure even when the process exits zero.
var ErrScriptStderr = errors.New("deploy: script wrote to stderr")

const (
	// maxLineBytes bounds a single output line; anything longer is
	// not log material.
	maxLineBytes = 1 << 20

	// outputTailLines is how many trailing output lines Run keeps in
	// the Result, for failure diagnostics.
	outputTailLines = 20
)

// Result is the outcome of one deploy script execution. Output holds
// the last lines the script wrote, both streams combined.
type Result struct {
	Success bool
	Elapsed time.Duration
	Output  []string
	Err     error
}

// Runner executes an app's deploy command and streams its output into
// the logger line by line, stdout at info and stderr at error, each
// prefixed with the app name.
type Runner struct{}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Run(ctx context.Context, app config.AppConfig) Result {
	start := time.Now()

	if app.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, app.RunArgs[0], app.RunArgs[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Elapsed: time.Since(start), Err: fmt.Errorf("deploy: stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{Elapsed: time.Since(start), Err: fmt.Errorf("deploy: stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return Result{Elapsed: time.Since(start), Err: fmt.Errorf("deploy: start %q: %w", app.RunArgs[0], err)}
	}

	var wg sync.WaitGroup
	var tail outputTail
	var stderrSeen bool

	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := newLineScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			tail.add(line)
			log.Info().Str("app", app.Name).Msg(line)
		}
		drainPipe(stdout, scanner.Err())
	}()
	go func() {
		defer wg.Done()
		scanner := newLineScanner(stderr)
		for scanner.Scan() {
			stderrSeen = true
			line := scanner.Text()
			tail.add(line)
			log.Error().Str("app", app.Name).Msg(line)
		}
		if err := scanner.Err(); err != nil {
			// An overlong line still came from stderr.
			stderrSeen = true
			drainPipe(stderr, err)
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	output := tail.snapshot()

	switch {
	case ctx.Err() != nil:
		return Result{Elapsed: elapsed, Output: output, Err: fmt.Errorf("deploy: %w", ctx.Err())}
	case waitErr != nil:
		return Result{Elapsed: elapsed, Output: output, Err: fmt.Errorf("deploy: %w", waitErr)}
	case stderrSeen:
		return Result{Elapsed: elapsed, Output: output, Err: ErrScriptStderr}
	}

	return Result{Success: true, Elapsed: elapsed, Output: output}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return scanner
}

// drainPipe keeps reading after a scanner error so the child process
// never blocks writing into a full pipe; cmd.Wait depends on both
// pipes reaching EOF.
func drainPipe(r io.Reader, err error) {
	if err != nil {
		io.Copy(io.Discard, r)
	}
}

type outputTail struct {
	mu    sync.Mutex
	lines []string
}

func (t *outputTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > outputTailLines {
		t.lines = t.lines[len(t.lines)-outputTailLines:]
	}
}

func (t *outputTail) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}
