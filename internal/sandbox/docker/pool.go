package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// pool keeps a small set of pre-warmed worker containers so Execute does not
// pay the container-create cost on the hot path. A container handed out by
// acquire is owned by exactly one Execute call and is destroyed by it —
// workers are never returned to the pool or shared between calls.
type pool struct {
	cli     *client.Client
	config  Config
	logger  *slog.Logger
	workers chan string
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func newPool(cli *client.Client, cfg Config, logger *slog.Logger) *pool {
	return &pool{
		cli:     cli,
		config:  cfg,
		logger:  logger,
		workers: make(chan string, cfg.PoolSize),
		done:    make(chan struct{}),
	}
}

// start launches the background refill loop. Safe to call more than once.
func (p *pool) start() {
	p.once.Do(func() {
		p.logger.Info("starting worker pool", slog.Int("poolSize", p.config.PoolSize))
		p.wg.Add(1)
		go p.refill()
	})
}

// stop shuts down the refill loop and removes every idle pre-warmed worker.
func (p *pool) stop() {
	p.logger.Info("shutting down worker pool")
	close(p.done)
	p.wg.Wait()

	for {
		select {
		case id := <-p.workers:
			p.remove(id)
		default:
			return
		}
	}
}

// acquire hands out a ready worker container ID, blocking until one is
// available or ctx is canceled. Ownership transfers to the caller.
func (p *pool) acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.workers:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refill keeps the pool topped up until stop is called.
func (p *pool) refill() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
			if len(p.workers) < cap(p.workers) {
				id, err := p.create()
				if err != nil {
					p.logger.Error("failed to pre-warm worker container", slog.String("error", err.Error()))
					time.Sleep(1 * time.Second) // backoff on failure
					continue
				}

				select {
				case p.workers <- id:
				case <-p.done:
					// shutting down while trying to hand over
					p.remove(id)
					return
				}
			} else {
				// pool is full, idle briefly
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

// create starts an idle worker container. The container just sleeps; the
// submission is delivered later through a docker exec from Execute.
//
// The isolation knobs here are the real safety boundary: no network, mostly
// read-only filesystem, unprivileged user, memory and CPU caps. The source
// denylist in front of this is advisory only.
func (p *pool) create() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.config.MemoryLimit,
			NanoCPUs: int64(p.config.CPULimit * 1e9),
		},
		AutoRemove:     false,
		ReadonlyRootfs: true,
	}

	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image:        p.config.Image,
		Cmd:          []string{"sleep", "infinity"},
		Tty:          false,
		AttachStdout: false,
		AttachStderr: false,
		User:         "nobody",
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("ContainerCreate failed: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return "", fmt.Errorf("ContainerStart failed: %w", err)
	}

	return resp.ID, nil
}

// remove force-removes a worker container. Force kills the container's
// process tree before removal, so a removed worker is a reaped worker.
func (p *pool) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = p.cli.ContainerRemove(ctx, id, container.RemoveOptions{
		Force: true,
	})
}
