// Package netclient implements the network worker client (C4): it dials a
// node server, primes it with a job and a bounded pipeline of work units,
// and forwards the RenderEvents the node produces back onto the manager's
// event channel. It is a manager.WorkerHandle exactly like localworker.Worker
// is, so RenderManager treats local and remote workers identically.
package netclient

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/manager"
	"github.com/jtdaugherty/fluxgo/wire"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// pipelineBudget bounds how many work units are kept in flight (sent but not
// yet acknowledged with a result) on the wire at once, matching the original
// NetworkWorker's buf = 2.
const pipelineBudget = 2

const maxDialAttempts = 5

// Client is a manager.WorkerHandle that dispatches work to a remote node
// server over a single persistent TCP connection.
type Client struct {
	conn       net.Conn
	enc        *wire.Encoder
	dec        *wire.Decoder
	numThreads uint64
	logger     *logrus.Entry
}

// Dial connects to endpoint (appending wire.DefaultPort if it has no port of
// its own), retrying with exponential backoff until ctx is cancelled or the
// retry budget is exhausted. It then reads the node's WorkerInfo handshake.
func Dial(ctx context.Context, clk clock.Clock, endpoint string, logger *logrus.Entry) (*Client, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if clk == nil {
		clk = clock.WallClock
	}

	addr := withDefaultPort(endpoint)

	conn, err := dialWithRetry(ctx, clk, addr)
	if err != nil {
		return nil, xerrors.Errorf("netclient: dial %s: %w", addr, err)
	}

	dec := wire.NewDecoder(conn)
	info, err := dec.DecodeWorkerInfo()
	if err != nil {
		conn.Close()
		return nil, xerrors.Errorf("netclient: %s: reading WorkerInfo handshake: %w", addr, err)
	}

	return &Client{
		conn:       conn,
		enc:        wire.NewEncoder(conn),
		dec:        dec,
		numThreads: info.NumThreads,
		logger:     logger.WithField("endpoint", addr),
	}, nil
}

func withDefaultPort(endpoint string) string {
	if strings.Contains(endpoint, ":") {
		return endpoint
	}
	return endpoint + ":" + strconv.Itoa(wire.DefaultPort)
}

func dialWithRetry(ctx context.Context, clk clock.Clock, addr string) (net.Conn, error) {
	var dialer net.Dialer
	var conn net.Conn
	var err error

	for attempt := 1; attempt <= maxDialAttempts; attempt++ {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}

		select {
		case <-clk.After(backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, xerrors.Errorf("max dial attempts (%d) exceeded: %w", maxDialAttempts, err)
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * 50 * time.Millisecond
	const max = 5 * time.Second
	if d > max {
		return max
	}
	return d
}

// NumThreads reports the thread count the remote node reported.
func (c *Client) NumThreads() int {
	return int(c.numThreads)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send implements manager.WorkerHandle.
func (c *Client) Send(ctx context.Context, j job.Job, units manager.UnitSource, events chan<- job.RenderEvent, tok *manager.Token) {
	go func() {
		defer tok.Release()
		if err := c.dispatch(ctx, j, units, events); err != nil {
			c.logger.WithField("job_id", j.ID).WithError(err).Error("netclient: dispatch error, abandoning job")
		}
	}()
}

// dispatch primes the node with SetJob, keeps up to pipelineBudget units in
// flight, forwards every RenderEvent it reads back until all sent units are
// answered, then writes Done (no reply to Done is read). Decode/write errors are terminal for this worker (matching
// the original's "a wire error ends the worker" policy) — unlike the
// connect-time retry above. ctx cancellation (the event sink is gone) is
// also terminal: pending results are dropped rather than blocked on forever.
func (c *Client) dispatch(ctx context.Context, j job.Job, units manager.UnitSource, events chan<- job.RenderEvent) error {
	wj := wire.FromJob(j)
	if err := c.enc.EncodeRequest(wire.NetworkWorkerRequest{Kind: wire.RequestSetJob, SetJob: &wj}); err != nil {
		return err
	}

	// Prime the pipeline with up to pipelineBudget units before reading any
	// results back.
	outstanding := 0
	for outstanding < pipelineBudget {
		u, ok := units.Next()
		if !ok {
			break
		}
		if err := c.sendUnit(u); err != nil {
			return err
		}
		outstanding++
	}

	// Steady state: every further unit sent is paired with one result read,
	// keeping the in-flight count pinned at its primed value.
	for {
		u, ok := units.Next()
		if !ok {
			break
		}
		if err := c.sendUnit(u); err != nil {
			return err
		}
		ev, err := c.recvEvent(j.ID)
		if err != nil {
			return err
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return xerrors.Errorf("netclient: event sink gone: %w", ctx.Err())
		}
	}

	// Units are exhausted (or the iterator was cancelled); drain exactly the
	// results still outstanding from the last pipeline fill.
	for ; outstanding > 0; outstanding-- {
		ev, err := c.recvEvent(j.ID)
		if err != nil {
			return err
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return xerrors.Errorf("netclient: event sink gone: %w", ctx.Err())
		}
	}

	if err := c.enc.EncodeRequest(wire.NetworkWorkerRequest{Kind: wire.RequestDone}); err != nil {
		return err
	}
	return nil
}

func (c *Client) sendUnit(u job.WorkUnit) error {
	wu := wire.FromWorkUnit(u)
	return c.enc.EncodeRequest(wire.NetworkWorkerRequest{Kind: wire.RequestWorkUnit, WorkUnit: &wu})
}

func (c *Client) recvEvent(id job.ID) (job.RenderEvent, error) {
	wev, err := c.dec.DecodeEvent()
	if err != nil {
		return job.RenderEvent{}, err
	}
	return wev.ToRenderEvent(id)
}
