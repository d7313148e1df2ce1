// Package docker runs submissions in throwaway Docker containers.
//
// Each Execute call gets a private worker container: the submission is piped
// over stdin to a Python harness running inside it, output is captured into
// per-call buffers, and the container is force-removed before Execute
// returns — on every exit path, success or not. Workers share no mutable
// state with the caller or with each other, so concurrent Execute calls
// cannot observe each other's output.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/ashan/pytutor/internal/sandbox"
)

// Executor implements sandbox.Executor using Docker.
type Executor struct {
	cli    *client.Client
	config Config
	filter *sandbox.Filter
	logger *slog.Logger
	pool   *pool
}

var _ sandbox.Executor = (*Executor)(nil)

// New creates a Docker Executor, pulls the worker image, and starts the
// pre-warm pool.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	// Make sure the image is pulled before the first submission arrives
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring worker image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	io.Copy(io.Discard, reader)
	logger.Info("worker image is ready")

	exec := &Executor{
		cli:    cli,
		config: cfg,
		filter: sandbox.NewFilter(cfg.Denylist),
		logger: logger,
	}

	exec.pool = newPool(cli, cfg, logger)
	exec.pool.start()

	return exec, nil
}

// Close shuts down the worker pool and the docker client.
func (e *Executor) Close() error {
	e.pool.stop()
	return e.cli.Close()
}

// Execute runs one submission and blocks until its worker has terminated
// and been reaped. See the package comment for the isolation contract.
func (e *Executor) Execute(ctx context.Context, sub sandbox.Submission) (*sandbox.Outcome, error) {
	start := time.Now()

	// Denylist check happens before anything is spawned: an unsafe
	// submission costs zero containers.
	if err := e.filter.Check(sub.Source); err != nil {
		return &sandbox.Outcome{
			Status:       sandbox.StatusUnsafe,
			ErrorMessage: err.Error(),
			Duration:     time.Since(start),
		}, nil
	}

	timeout := sub.Timeout
	if timeout <= 0 {
		timeout = e.config.DefaultTimeout
	}
	if timeout > e.config.MaxTimeout {
		timeout = e.config.MaxTimeout
	}

	workerID, err := e.pool.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire worker: %w", err)
	}

	// Reap the worker on every exit path. ContainerRemove with Force kills
	// the container's processes and waits for removal, so by the time
	// Execute returns the worker is gone — the caller never sees an
	// Outcome for a still-running worker.
	defer func() {
		reapCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := e.cli.ContainerRemove(reapCtx, workerID, container.RemoveOptions{Force: true}); err != nil {
			e.logger.Error("failed to reap worker", slog.String("id", workerID), slog.String("error", err.Error()))
		}
	}()

	execCtx, execCancel := context.WithTimeout(ctx, timeout)
	defer execCancel()

	// The worker idles on `sleep infinity`; the submission is delivered via
	// docker exec. The harness reads the source from stdin, so the source
	// text never passes through a shell or an argv.
	execConfig := container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"python", "-c", harness},
	}

	execResp, err := e.cli.ContainerExecCreate(execCtx, workerID, execConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := e.cli.ContainerExecAttach(execCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	// Deliver the submission and close stdin so the harness's read returns.
	if _, err := attachResp.Conn.Write([]byte(sub.Source)); err != nil {
		return nil, fmt.Errorf("failed to send submission to worker: %w", err)
	}
	if err := attachResp.CloseWrite(); err != nil {
		return nil, fmt.Errorf("failed to close worker stdin: %w", err)
	}

	var stdout, stderr bytes.Buffer

	done := make(chan struct{})
	go func() {
		// stdcopy demultiplexes the worker's stdout and stderr streams
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	select {
	case <-done:
		// Worker finished within the deadline. Classify by exit code.
		inspectResp, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect exec: %w", err)
		}
		if inspectResp.ExitCode != 0 {
			return &sandbox.Outcome{
				Status:       sandbox.StatusCrashed,
				Stdout:       stdout.String(),
				Stderr:       stderr.String(),
				ErrorMessage: crashMessage(stderr.String()),
				Duration:     time.Since(start),
			}, nil
		}
		return &sandbox.Outcome{
			Status:   sandbox.StatusCompleted,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Duration: time.Since(start),
		}, nil

	case <-execCtx.Done():
		// The context fired first. Sever the attach connection so the
		// copier goroutine drains out, then read what made it across —
		// best-effort partial output. The deferred remove kills the
		// worker itself.
		attachResp.Close()
		<-done
		if ctx.Err() != nil {
			// The caller went away (client disconnect, shutdown); that is
			// not a verdict on the submission, so no timed_out outcome.
			return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
		}
		return &sandbox.Outcome{
			Status:       sandbox.StatusTimedOut,
			Stdout:       stdout.String(),
			Stderr:       stderr.String(),
			ErrorMessage: fmt.Sprintf("execution exceeded %s", timeout),
			Duration:     time.Since(start),
		}, nil
	}
}

// crashMessage extracts the failure text surfaced to the caller: the last
// non-empty stderr line, which for a Python traceback is the exception
// itself.
func crashMessage(stderr string) string {
	lines := strings.Split(strings.TrimRight(stderr, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "worker exited with an error"
}
