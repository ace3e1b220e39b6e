// Package netserver implements the node server (C5): it accepts connections
// from network worker clients, answers each with a WorkerInfo handshake, and
// then bridges the wire protocol onto a localworker.Worker exactly as if the
// client were the render manager itself — localworker.Worker's Send method
// takes a manager.UnitSource and an event channel, which is exactly the shape
// a connection's incoming work units and outgoing render events naturally
// take.
package netserver

import (
	"context"
	"net"

	"github.com/google/uuid"
	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/localworker"
	"github.com/jtdaugherty/fluxgo/manager"
	"github.com/jtdaugherty/fluxgo/metrics"
	"github.com/jtdaugherty/fluxgo/wire"
	"github.com/sirupsen/logrus"
)

// Server accepts connections and bridges each to worker.
type Server struct {
	listener net.Listener
	worker   *localworker.Worker
	logger   *logrus.Entry
	metrics  *metrics.Metrics
}

// Config controls a Server.
type Config struct {
	// Worker renders every job dispatched over any accepted connection.
	Worker *localworker.Worker

	// Logger receives per-connection lifecycle diagnostics. Defaults to
	// logrus's standard logger.
	Logger *logrus.Entry

	// Metrics, if set, is updated with the currently connected remote worker
	// count as connections come and go.
	Metrics *metrics.Metrics
}

// Listen binds addr and returns a Server ready to Serve.
func Listen(addr string, cfg Config) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{listener: ln, worker: cfg.Worker, logger: cfg.Logger, metrics: cfg.Metrics}, nil
}

// Addr returns the server's bound address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.listener.Close() }

// Serve accepts connections until the listener is closed, handling each on
// its own goroutine. It always returns a non-nil error (mirroring net/http's
// Serve convention): the listener's closed-error once Close is called.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn answers the handshake, then bridges the connection's request
// stream onto a localworker.Worker and that worker's RenderEvents back onto
// the connection, one job at a time (a connection carries exactly one job
// between SetJob and Done).
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	logger := s.logger.WithFields(logrus.Fields{
		"peer":       conn.RemoteAddr(),
		"connection": uuid.New().String(),
	})
	logger.Info("netserver: accepted connection")

	if s.metrics != nil {
		s.metrics.ConnectedRemoteWorkers.Inc()
		defer s.metrics.ConnectedRemoteWorkers.Dec()
	}

	enc := wire.NewEncoder(conn)
	dec := wire.NewDecoder(conn)

	if err := enc.EncodeWorkerInfo(wire.WorkerInfo{NumThreads: uint64(s.worker.NumThreads())}); err != nil {
		logger.WithError(err).Error("netserver: failed to write WorkerInfo handshake")
		return
	}

	var (
		units    chan job.WorkUnit
		events   chan job.RenderEvent
		group    *manager.CompletionGroup
		writerWG chan struct{}
		jobID    job.ID
	)

	// jobCtx is cancelled the moment the writer goroutine can no longer drain
	// events (a wire write failed), so a worker blocked publishing a result
	// is released instead of wedged, rather than leaving finishJob's
	// group.Wait() below stuck forever on that worker's token.
	jobCtx, cancelJob := context.WithCancel(context.Background())

	// finishJob tears down any job in flight: close units so the worker's
	// iterator drains to exhaustion, wait for it to release its token, then
	// close events and join the writer. It runs on every exit from this
	// connection's read loop — not just an explicit Done — so a mid-job
	// disconnect (S6) never leaks the worker goroutine or its channels.
	// Idempotent: safe to call once explicitly and again via defer.
	finishJob := func() {
		if units == nil {
			return
		}
		close(units)
		group.Wait()
		close(events)
		<-writerWG
		units = nil
	}
	// Deferred in this order so cancelJob runs first (defers are LIFO):
	// jobCtx must already be cancelled before finishJob's group.Wait() blocks.
	defer finishJob()
	defer cancelJob()

	for {
		req, err := dec.DecodeRequest()
		if err != nil {
			logger.WithError(err).Error("netserver: connection read error")
			return
		}

		switch req.Kind {
		case wire.RequestSetJob:
			j := req.SetJob.ToJob()
			jobID = j.ID
			logger.WithField("job_id", j.ID).Info("netserver: received job")

			// Buffered generously: the original used an unbounded channel so a
			// connection's reader never blocks waiting for the worker to pull
			// units pipelined by the client.
			units = make(chan job.WorkUnit, 256)
			events = make(chan job.RenderEvent, 256)
			group = manager.NewCompletionGroup()
			tok := group.Add()

			s.worker.Send(jobCtx, j, manager.NewChannelSource(units), events, tok)

			writerWG = make(chan struct{})
			go func(jobID job.ID) {
				defer close(writerWG)
				for ev := range events {
					wev := wire.FromRenderEvent(ev)
					if err := enc.EncodeEvent(wev); err != nil {
						logger.WithField("job_id", jobID).WithError(err).Error("netserver: write error, abandoning connection")
						cancelJob()
						return
					}
				}
			}(j.ID)

		case wire.RequestWorkUnit:
			if units == nil {
				logger.Error("netserver: received WorkUnit before SetJob, ignoring")
				continue
			}
			units <- req.WorkUnit.ToWorkUnit(jobID)

		case wire.RequestDone:
			logger.Info("netserver: received Done, draining worker")
			finishJob()
			return

		default:
			logger.Errorf("netserver: unknown request kind %q", req.Kind)
			return
		}
	}
}
