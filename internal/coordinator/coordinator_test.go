package coordinator

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lcj2021/mini-ivf-sub001/internal/config"
	"github.com/lcj2021/mini-ivf-sub001/internal/ivfpq"
	"github.com/lcj2021/mini-ivf-sub001/internal/obslog"
	"github.com/lcj2021/mini-ivf-sub001/internal/obsmetrics"
	"github.com/lcj2021/mini-ivf-sub001/internal/quant"
	"github.com/lcj2021/mini-ivf-sub001/internal/querynode"
	"github.com/lcj2021/mini-ivf-sub001/internal/rpctransport"
	"github.com/lcj2021/mini-ivf-sub001/internal/types"
)

// buildFleetFixture writes a 4-cluster, 1-vector-per-cluster IVFPQ database
// to dir, with cluster centroids and PQ codes chosen so that each query
// lands exactly on its own cluster's single vector at distance zero.
func buildFleetFixture(t *testing.T, dir string) ivfpq.Config {
	t.Helper()
	cfg := ivfpq.Config{
		N: 4, D: 4, L: 4,
		Kc: 4, Kp: 256, Mc: 1, Mp: 2, Dc: 4, Dp: 2,
		IndexPath: dir, DBPath: dir,
	}
	ix, err := ivfpq.New(cfg)
	if err != nil {
		t.Fatalf("ivfpq.New: %v", err)
	}

	coarse, err := quant.New(4, 1, 4)
	if err != nil {
		t.Fatalf("quant.New coarse: %v", err)
	}
	if err := coarse.SetCentroids([][][]float32{
		{{0, 0, 0, 0}, {10, 10, 10, 10}, {20, 20, 20, 20}, {30, 30, 30, 30}},
	}); err != nil {
		t.Fatalf("SetCentroids coarse: %v", err)
	}

	product, err := quant.New(4, 2, 256)
	if err != nil {
		t.Fatalf("quant.New product: %v", err)
	}
	pc := make([][][]float32, 2)
	for m := range pc {
		pc[m] = make([][]float32, 256)
		for k := range pc[m] {
			pc[m][k] = []float32{float32(k), float32(k)}
		}
	}
	if err := product.SetCentroids(pc); err != nil {
		t.Fatalf("SetCentroids product: %v", err)
	}

	ix.SetCodeBook(coarse, product)
	vectors := [][]float32{
		{0, 0, 0, 0},
		{10, 10, 10, 10},
		{20, 20, 20, 20},
		{30, 30, 30, 30},
	}
	if err := ix.Populate(vectors, 1); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if err := ix.WriteCodeBook(); err != nil {
		t.Fatalf("WriteCodeBook: %v", err)
	}
	if err := ix.WriteIndex(); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	return cfg
}

// startFleet spins up n real query-node RPC servers on localhost, returning
// their endpoints and a teardown func.
func startFleet(t *testing.T, n int) ([]config.QueryNodeEndpoint, func()) {
	t.Helper()
	obslog.Configure()

	endpoints := make([]config.QueryNodeEndpoint, n)
	var servers []*rpctransport.Server
	for i := 0; i < n; i++ {
		reg := prometheus.NewRegistry()
		node := querynode.New(1, obslog.Named("fleet-test"), obsmetrics.NewQueryNode(reg))
		srv, err := rpctransport.NewServer("127.0.0.1:0", node, nil)
		if err != nil {
			t.Fatalf("NewServer: %v", err)
		}
		go srv.Serve()
		servers = append(servers, srv)

		host, portStr, err := net.SplitHostPort(srv.Addr().String())
		if err != nil {
			t.Fatalf("SplitHostPort: %v", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			t.Fatalf("Atoi port: %v", err)
		}
		endpoints[i] = config.QueryNodeEndpoint{Host: host, Port: port}
	}

	return endpoints, func() {
		for _, srv := range servers {
			srv.Stop(5 * time.Second)
		}
	}
}

func newTestCoordinator(t *testing.T, nodes []config.QueryNodeEndpoint) *Coordinator {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(nodes, 1, obslog.Named("coordinator-test"), obsmetrics.NewCoordinator(reg))
}

func TestIndexInitLoadBalanceRunQueriesRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping indexInit quiesce wait in short mode")
	}
	dir := t.TempDir()
	cfg := buildFleetFixture(t, dir)

	endpoints, teardown := startFleet(t, 2)
	defer teardown()

	c := newTestCoordinator(t, endpoints)
	defer c.Close()

	ctx := context.Background()
	if err := c.IndexInit(ctx, cfg); err != nil {
		t.Fatalf("IndexInit: %v", err)
	}
	if err := c.LoadPostingListsSize(); err != nil {
		t.Fatalf("LoadPostingListsSize: %v", err)
	}
	if err := c.LoadBalance(ctx, Normal); err != nil {
		t.Fatalf("LoadBalance: %v", err)
	}

	// Normal mode round-robins clusters onto the two nodes in id order.
	wantNode := []int{0, 1, 0, 1}
	for cid, want := range wantNode {
		a := c.Assignment(types.ClusterId(cid))
		got, ok := a.NodeIndex()
		if !ok || got != want {
			t.Fatalf("cluster %d assigned to %v, want node %d", cid, a, want)
		}
	}

	queries := [][]float32{
		{0, 0, 0, 0},
		{10, 10, 10, 10},
		{20, 20, 20, 20},
		{30, 30, 30, 30},
	}
	ids, dists, err := c.RunQueries(ctx, 1, 4, queries)
	if err != nil {
		t.Fatalf("RunQueries: %v", err)
	}
	for qi := range queries {
		if len(ids[qi]) != 1 || ids[qi][0] != types.VectorId(qi) {
			t.Fatalf("query %d ids = %v, want [%d]", qi, ids[qi], qi)
		}
		if dists[qi][0] != 0 {
			t.Fatalf("query %d dist = %v, want 0", qi, dists[qi][0])
		}
	}

	// Every query probed every cluster (w == kc), so each cluster's
	// popularity counter advances by exactly the number of queries, on top
	// of the one increment the Normal balance itself made per cluster.
	pop := c.Popularity()
	for cid, p := range pop {
		if p != uint64(len(queries))+1 {
			t.Fatalf("cluster %d popularity = %d, want %d", cid, p, len(queries)+1)
		}
	}
}

func TestClearHistoryResetsPopularity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping indexInit quiesce wait in short mode")
	}
	dir := t.TempDir()
	cfg := buildFleetFixture(t, dir)

	endpoints, teardown := startFleet(t, 2)
	defer teardown()

	c := newTestCoordinator(t, endpoints)
	defer c.Close()

	ctx := context.Background()
	if err := c.IndexInit(ctx, cfg); err != nil {
		t.Fatalf("IndexInit: %v", err)
	}
	if err := c.LoadPostingListsSize(); err != nil {
		t.Fatalf("LoadPostingListsSize: %v", err)
	}
	if err := c.LoadBalance(ctx, Normal); err != nil {
		t.Fatalf("first LoadBalance: %v", err)
	}
	first := make([]uint64, 4)
	for cid := range first {
		a := c.Assignment(types.ClusterId(cid))
		idx, _ := a.NodeIndex()
		first[cid] = uint64(idx)
	}

	// Normal mode itself bumps popularity while enumerating clusters; a
	// second call without clearing history changes nothing about the
	// assignment (round-robin from a fixed node count is deterministic),
	// but clearing first restores the popularity counters to a clean
	// baseline of exactly one increment per cluster.
	c.ClearHistory()
	if err := c.LoadBalance(ctx, Normal); err != nil {
		t.Fatalf("second LoadBalance: %v", err)
	}
	pop := c.Popularity()
	for cid, p := range pop {
		if p != 1 {
			t.Fatalf("cluster %d popularity after clear+rebalance = %d, want 1", cid, p)
		}
		a := c.Assignment(types.ClusterId(cid))
		idx, _ := a.NodeIndex()
		if uint64(idx) != first[cid] {
			t.Fatalf("cluster %d reassigned to node %d, want %d (same as first balance)", cid, idx, first[cid])
		}
	}
}

func TestRunQueriesDropsUnassignedClustersWithoutPanicking(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping indexInit quiesce wait in short mode")
	}
	dir := t.TempDir()
	cfg := buildFleetFixture(t, dir)

	endpoints, teardown := startFleet(t, 2)
	defer teardown()

	c := newTestCoordinator(t, endpoints)
	defer c.Close()

	ctx := context.Background()
	if err := c.IndexInit(ctx, cfg); err != nil {
		t.Fatalf("IndexInit: %v", err)
	}
	// Deliberately never call LoadBalance: every cluster is Unassigned.

	queries := [][]float32{{0, 0, 0, 0}}
	ids, dists, err := c.RunQueries(ctx, 1, 4, queries)
	if err != nil {
		t.Fatalf("RunQueries: %v", err)
	}
	if len(ids[0]) != 0 || len(dists[0]) != 0 {
		t.Fatalf("ids = %v dists = %v, want empty results with no assigned clusters", ids[0], dists[0])
	}
}
