// Command flux is the render driver: it loads a scene, builds a local and/or
// remote worker set, submits one job to a render manager and blocks until
// the image is finished (or until it is interrupted, in which case it
// requests cancellation). Argument parsing is deliberately minimal — a full
// CLI UX is out of scope, as in the node server (cmd/fluxnode).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/localworker"
	"github.com/jtdaugherty/fluxgo/manager"
	"github.com/jtdaugherty/fluxgo/metrics"
	"github.com/jtdaugherty/fluxgo/netclient"
	"github.com/jtdaugherty/fluxgo/scene"
	"github.com/jtdaugherty/fluxgo/sink"
	"github.com/jtdaugherty/fluxgo/workerpool"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	appName = "flux"
	appSha  = "populated-at-link-time"
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetFormatter(new(logrus.JSONFormatter))
	logger := rootLogger.WithFields(logrus.Fields{"app": appName, "sha": appSha, "host": host})

	if err := run(logger); err != nil {
		logger.WithError(err).Error("flux: shutting down due to error")
		_ = os.Stderr.Sync()
		os.Exit(1)
	}
}

func run(logger *logrus.Entry) error {
	var (
		scenePath   = flag.String("scene", "", "path to a JSON scene description (defaults to a built-in demo scene)")
		threads     = flag.Int("threads", runtime.NumCPU(), "number of local rendering threads")
		skipLocal   = flag.Bool("skip-local", false, "do not use this host as a worker")
		sampleRoot  = flag.Int("sample-root", 1, "per-axis sample count (samples per pixel is sample-root^2)")
		maxDepth    = flag.Int("depth", 5, "maximum trace depth")
		rowsPerUnit = flag.Int("rows", 50, "image rows per work unit")
		outputDir   = flag.String("output-dir", ".", "directory to write <scene_name>.ppm into")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics at http://ADDR/metrics")
		dialTimeout = flag.Duration("dial-timeout", 10*time.Second, "timeout for connecting to each -node")
	)
	var nodes nodeList
	flag.Var(&nodes, "node", "address of a flux-node process to render with (repeatable)")
	flag.Parse()

	if *skipLocal && len(nodes) == 0 {
		return fmt.Errorf("flux: no workers specified: pass -node or drop -skip-local")
	}

	sceneData, err := loadScene(*scenePath)
	if err != nil {
		return err
	}

	cfg := job.Configuration{SampleRoot: *sampleRoot, MaxTraceDepth: *maxDepth, RowsPerWorkUnit: *rowsPerUnit}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("flux: invalid job configuration: %w", err)
	}

	met := metrics.New()
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	workers, closers, err := buildWorkers(*threads, *skipLocal, nodes, *dialTimeout, logger)
	if err != nil {
		return err
	}
	defer closeAll(closers)

	events := make(chan job.RenderEvent, 64)
	sinkEvents, reportEvents := tee(events)

	s, err := sink.New(sink.Config{Events: sinkEvents, OutputDir: *outputDir, Logger: logger.WithField("component", "sink")})
	if err != nil {
		return err
	}
	go s.Run()

	reporter := sink.NewLogReporter(logger.WithField("component", "reporter"))
	go reporter.Run(reportEvents)

	mgr, err := manager.New(manager.Config{
		Workers: workers,
		Events:  events,
		Clock:   clock.WallClock,
		Logger:  logger.WithField("component", "manager"),
		Metrics: met,
	})
	if err != nil {
		return err
	}
	defer mgr.Stop()

	handle := mgr.ScheduleJob(sceneData, cfg)
	logger.WithField("job_id", handle.ID()).Info("flux: job submitted")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("flux: cancelling job")
			handle.Cancel()
		case <-done:
		}
	}()

	handle.Wait()
	close(done)

	logger.Info("flux: rendering finished")
	return nil
}

func loadScene(path string) (scene.Data, error) {
	if path == "" {
		return demoScene(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return scene.Data{}, fmt.Errorf("flux: open scene %s: %w", path, err)
	}
	defer f.Close()

	var data scene.Data
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return scene.Data{}, fmt.Errorf("flux: decode scene %s: %w", path, err)
	}
	if err := data.Validate(); err != nil {
		return scene.Data{}, fmt.Errorf("flux: invalid scene %s: %w", path, err)
	}
	return data, nil
}

// buildWorkers assembles the manager.WorkerHandle set: a local worker unless
// -skip-local was given, plus one netclient.Client per -node address. It
// returns the io.Closer set so the caller can tear down every remote
// connection on shutdown.
func buildWorkers(threads int, skipLocal bool, nodes nodeList, dialTimeout time.Duration, logger *logrus.Entry) ([]manager.WorkerHandle, []*netclient.Client, error) {
	var workers []manager.WorkerHandle
	var clients []*netclient.Client

	if !skipLocal {
		pool := workerpool.Configure(threads, logger.WithField("component", "workerpool"))
		workers = append(workers, localworker.New(localworker.Config{
			Pool:   pool,
			Logger: logger.WithField("component", "localworker"),
		}))
	}

	for _, addr := range nodes {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		c, err := netclient.Dial(ctx, clock.WallClock, addr, logger.WithField("component", "netclient"))
		cancel()
		if err != nil {
			closeAll(clients)
			return nil, nil, fmt.Errorf("flux: connecting to node %s: %w", addr, err)
		}
		logger.WithFields(logrus.Fields{"node": addr, "threads": c.NumThreads()}).Info("flux: connected to remote worker")
		workers = append(workers, c)
		clients = append(clients, c)
	}

	return workers, clients, nil
}

func closeAll(clients []*netclient.Client) {
	for _, c := range clients {
		_ = c.Close()
	}
}

// tee fans one RenderEvent stream out to two independent readers (the sink
// and the log reporter), so both can consume the same job without either
// blocking the other.
func tee(in <-chan job.RenderEvent) (<-chan job.RenderEvent, <-chan job.RenderEvent) {
	a := make(chan job.RenderEvent, 64)
	b := make(chan job.RenderEvent, 64)
	go func() {
		defer close(a)
		defer close(b)
		for ev := range in {
			a <- ev
			b <- ev
		}
	}()
	return a, b
}

func serveMetrics(addr string, logger *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.WithField("addr", addr).Info("flux: serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Error("flux: metrics server exited")
	}
}
