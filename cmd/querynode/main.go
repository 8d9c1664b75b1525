// Command querynode runs one query node process: it serves the RPC surface
// defined in internal/rpcpb forever, logging a brief quiesce window right
// after each indexInit.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lcj2021/mini-ivf-sub001/internal/obslog"
	"github.com/lcj2021/mini-ivf-sub001/internal/obsmetrics"
	"github.com/lcj2021/mini-ivf-sub001/internal/querynode"
	"github.com/lcj2021/mini-ivf-sub001/internal/rpctransport"
)

// uploadQuiesce is how long the node pauses after indexInit before it is
// ready for loadCodeBook, mirroring the reference node's brief
// stop/reconfigure-upload-directory/restart window. The query node's
// transport here carries the upload directory as part of every indexInit
// request rather than as a separate post-hoc reconfiguration step, so the
// quiesce is a pure delay in a background goroutine with no transport
// teardown: the server keeps accepting every RPC, loadCodeBook included,
// during the window. The coordinator waits the same interval after
// indexInit before it issues loadCodeBook.
const uploadQuiesce = 2 * time.Second

func main() {
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9091)")
	flag.Parse()

	obslog.Configure()
	log := obslog.Named("querynode")

	if flag.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "usage: querynode [-metrics-addr addr] <host> <port> <numThreads>")
		os.Exit(1)
	}

	host := flag.Arg(0)
	port, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid port")
	}
	numThreads, err := strconv.Atoi(flag.Arg(2))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid numThreads")
	}

	reg := prometheus.NewRegistry()
	metrics := obsmetrics.NewQueryNode(reg)

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg, log)
	}

	node := querynode.New(numThreads, log, metrics)
	node.SetOnIndexInit(func() {
		log.Info().Dur("quiesce", uploadQuiesce).Msg("indexInit complete, quiescing before loadCodeBook")
		time.Sleep(uploadQuiesce)
		log.Info().Msg("quiesce window elapsed, ready for loadCodeBook")
	})

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	srv, err := rpctransport.NewServer(addr, node, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start RPC server")
	}

	log.Info().Str("addr", addr).Int("numThreads", numThreads).Msg("query node serving")
	if err := srv.Serve(); err != nil {
		log.Fatal().Err(err).Msg("RPC server stopped unexpectedly")
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
