// Command globalnode runs the coordinator process: it loads an ini
// configuration file, drives indexInit/loadBalance across the query-node
// fleet, and optionally runs a recall@k benchmark over a held-out query
// set before exiting.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lcj2021/mini-ivf-sub001/internal/binaryio"
	"github.com/lcj2021/mini-ivf-sub001/internal/config"
	"github.com/lcj2021/mini-ivf-sub001/internal/coordinator"
	"github.com/lcj2021/mini-ivf-sub001/internal/ivfpq"
	"github.com/lcj2021/mini-ivf-sub001/internal/obslog"
	"github.com/lcj2021/mini-ivf-sub001/internal/obsmetrics"
)

func main() {
	recall := flag.Bool("recall", false, "run the query set and print recall@k, then exit")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	balanceMode := flag.String("balance", "normal", "balance mode: normal, bestfitsize, bestfitpop, bestfithybrid")
	flag.Parse()

	obslog.Configure()
	log := obslog.Named("globalnode")

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: globalnode [-recall] [-balance mode] [-metrics-addr addr] <config.ini>")
		os.Exit(1)
	}

	cfg, err := config.Load(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	mode, err := parseBalanceMode(*balanceMode)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid balance mode")
	}

	reg := prometheus.NewRegistry()
	metrics := obsmetrics.NewCoordinator(reg)

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg, log)
	}

	coord := coordinator.New(cfg.QueryNode.Nodes, cfg.Task.NumThreads, log, metrics)
	coord.SetGlobalCaches(cfg.Task.GlobalCaches)
	defer coord.Close()

	ivfCfg := ivfpq.Config{
		N:  uint64(cfg.Data.Nb),
		D:  uint64(cfg.Data.D),
		L:  uint64(cfg.Data.Nb),
		Kc: uint64(cfg.Data.NCentroids),
		Kp: 256,
		Mc: 1,
		Mp: uint64(cfg.Data.Mp),
		Dc: uint64(cfg.Data.D),
		Dp: uint64(cfg.Data.D) / uint64(cfg.Data.Mp),

		IndexPath: cfg.Data.IndexPath,
		DBPath:    cfg.Data.DBPath,
	}

	ctx := context.Background()

	log.Info().Msg("initializing index across the query-node fleet")
	if err := coord.IndexInit(ctx, ivfCfg); err != nil {
		log.Fatal().Err(err).Msg("indexInit failed")
	}

	if err := coord.LoadPostingListsSize(); err != nil {
		log.Fatal().Err(err).Msg("loadPostingListsSize failed")
	}

	log.Info().Str("mode", mode.String()).Msg("balancing clusters across the fleet")
	if err := coord.LoadBalance(ctx, mode); err != nil {
		log.Fatal().Err(err).Msg("loadBalance failed")
	}

	if *recall {
		if err := runRecall(ctx, log, coord, cfg); err != nil {
			log.Fatal().Err(err).Msg("recall benchmark failed")
		}
		return
	}

	log.Info().Msg("globalnode ready")
}

func parseBalanceMode(s string) (coordinator.BalanceMode, error) {
	switch s {
	case "normal", "Normal", "":
		return coordinator.Normal, nil
	case "bestfitsize", "BestFitSize":
		return coordinator.BestFitSize, nil
	case "bestfitpop", "BestFitPop":
		return coordinator.BestFitPop, nil
	case "bestfithybrid", "BestFitHybrid":
		return coordinator.BestFitHybrid, nil
	default:
		return coordinator.Normal, fmt.Errorf("unknown balance mode %q", s)
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

// runRecall loads query.fvecs and query_groundtruth.ivecs from the
// configured query path, runs them through the coordinator, and prints
// recall@k: the fraction of each query's ground-truth nearest neighbors
// that appear among its returned candidates, averaged across the query set.
func runRecall(ctx context.Context, log zerolog.Logger, coord *coordinator.Coordinator, cfg *config.Config) error {
	_, queries, err := binaryio.ReadFloat32Records(filepath.Join(cfg.Data.QueryPath, "query.fvecs"))
	if err != nil {
		return fmt.Errorf("read query.fvecs: %w", err)
	}
	_, groundTruth, err := binaryio.ReadUint32Records(filepath.Join(cfg.Data.QueryPath, "query_groundtruth.ivecs"))
	if err != nil {
		return fmt.Errorf("read query_groundtruth.ivecs: %w", err)
	}
	if len(groundTruth) != len(queries) {
		return fmt.Errorf("query.fvecs has %d queries, query_groundtruth.ivecs has %d", len(queries), len(groundTruth))
	}

	k := cfg.Task.K
	if cfg.Task.Nq > 0 && cfg.Task.Nq < len(queries) {
		queries = queries[:cfg.Task.Nq]
		groundTruth = groundTruth[:cfg.Task.Nq]
	}

	ids, _, err := coord.RunQueries(ctx, k, cfg.Task.Nprobe, queries)
	if err != nil {
		return fmt.Errorf("runQueries: %w", err)
	}

	var totalRecall float64
	for i, truth := range groundTruth {
		want := truth
		if k < len(want) {
			want = want[:k]
		}
		hit := 0
		got := map[uint32]struct{}{}
		for _, id := range ids[i] {
			got[id] = struct{}{}
		}
		for _, id := range want {
			if _, ok := got[id]; ok {
				hit++
			}
		}
		if len(want) > 0 {
			totalRecall += float64(hit) / float64(len(want))
		}
	}
	recall := totalRecall / float64(len(groundTruth))
	fmt.Printf("recall@%d = %.4f (%d queries)\n", k, recall, len(groundTruth))
	log.Info().Int("k", k).Float64("recall", recall).Int("queries", len(groundTruth)).Msg("recall benchmark complete")
	return nil
}
