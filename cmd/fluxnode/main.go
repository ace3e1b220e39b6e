// Command fluxnode is the remote worker process: it listens for
// client connections, answers the WorkerInfo handshake and renders
// whatever jobs those connections send it on a local worker pool.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jtdaugherty/fluxgo/localworker"
	"github.com/jtdaugherty/fluxgo/metrics"
	"github.com/jtdaugherty/fluxgo/netserver"
	"github.com/jtdaugherty/fluxgo/wire"
	"github.com/jtdaugherty/fluxgo/workerpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	appName = "fluxnode"
	appSha  = "populated-at-link-time"
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetFormatter(new(logrus.JSONFormatter))
	logger := rootLogger.WithFields(logrus.Fields{"app": appName, "sha": appSha, "host": host})

	if err := run(logger); err != nil {
		logger.WithError(err).Error("fluxnode: shutting down due to error")
		_ = os.Stderr.Sync()
		os.Exit(1)
	}
}

func run(logger *logrus.Entry) error {
	var (
		listenAddr  = flag.String("listen", fmt.Sprintf(":%d", wire.DefaultPort), "address to listen on")
		threads     = flag.Int("threads", runtime.NumCPU(), "number of rendering threads")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics at http://ADDR/metrics")
	)
	flag.Parse()

	met := metrics.New()
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	pool := workerpool.Configure(*threads, logger.WithField("component", "workerpool"))
	worker := localworker.New(localworker.Config{
		Pool:   pool,
		Logger: logger.WithField("component", "localworker"),
	})

	srv, err := netserver.Listen(*listenAddr, netserver.Config{
		Worker:  worker,
		Logger:  logger.WithField("component", "netserver"),
		Metrics: met,
	})
	if err != nil {
		return fmt.Errorf("fluxnode: listen on %s: %w", *listenAddr, err)
	}

	logger.WithFields(logrus.Fields{"addr": srv.Addr(), "threads": pool.NumThreads()}).Info("fluxnode: listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Warn("fluxnode: shutting down")
		_ = srv.Close()
	}()

	if err := srv.Serve(); err != nil {
		logger.WithError(err).Info("fluxnode: listener closed")
	}
	return nil
}

func serveMetrics(addr string, logger *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.WithField("addr", addr).Info("fluxnode: serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Error("fluxnode: metrics server exited")
	}
}
