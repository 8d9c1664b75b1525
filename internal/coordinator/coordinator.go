// Package coordinator implements the global node: the cluster→node
// assignment policy, the hot-cluster global cache, and the scatter/fan-out/
// merge query pipeline that fronts the query-node fleet.
package coordinator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lcj2021/mini-ivf-sub001/internal/config"
	"github.com/lcj2021/mini-ivf-sub001/internal/ivfpq"
	"github.com/lcj2021/mini-ivf-sub001/internal/obsmetrics"
	"github.com/lcj2021/mini-ivf-sub001/internal/rpcpb"
	"github.com/lcj2021/mini-ivf-sub001/internal/rpctransport"
	"github.com/lcj2021/mini-ivf-sub001/internal/types"
)

// BalanceMode selects the cluster→node assignment policy.
type BalanceMode int

const (
	Normal BalanceMode = iota
	BestFitSize
	BestFitPop
	BestFitHybrid
)

// parallelFor runs fn(i) for every i in [0,n) across at most workers
// goroutines, blocking until all calls complete. Mirrors the worker-pool
// idiom internal/ivfpq uses for this same shape of per-query work.
func parallelFor(n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

func (m BalanceMode) String() string {
	switch m {
	case Normal:
		return "Normal"
	case BestFitSize:
		return "BestFitSize"
	case BestFitPop:
		return "BestFitPop"
	case BestFitHybrid:
		return "BestFitHybrid"
	default:
		return "Unknown"
	}
}

// indexInitQuiesce is how long the coordinator waits after issuing
// indexInit to a node before issuing loadCodeBook, to outlast that node's
// post-indexInit quiesce window (§4.4/§4.5.1).
const indexInitQuiesce = 2 * time.Second

// remoteCallTimeout models an "infinite" remote-call timeout as a very
// large, but finite, context deadline: the intent is that a query completes
// or fails hard, never that the coordinator hangs forever.
const remoteCallTimeout = 24 * time.Hour

// Coordinator is the global node's RPC-driving state.
type Coordinator struct {
	numThreads   int
	globalCaches int

	log     zerolog.Logger
	metrics *obsmetrics.Coordinator

	mu      sync.RWMutex
	nodes   []config.QueryNodeEndpoint
	clients []*rpctransport.Client

	cfg      ivfpq.Config
	index    *ivfpq.Index
	lastMode BalanceMode

	bookMu          sync.RWMutex
	querybook       []types.Assignment
	postingListSize []uint64

	popularity []atomic.Uint64
}

// New constructs a coordinator bound to the given query-node fleet. Call
// IndexInit before any other method.
func New(nodes []config.QueryNodeEndpoint, numThreads int, log zerolog.Logger, metrics *obsmetrics.Coordinator) *Coordinator {
	if numThreads < 1 {
		numThreads = 1
	}
	return &Coordinator{
		numThreads: numThreads,
		log:        log,
		metrics:    metrics,
		nodes:      nodes,
	}
}

// recordQueryNodeError records one failed RPC against the i'th node, if
// metrics are configured.
func (c *Coordinator) recordQueryNodeError(i int) {
	if c.metrics == nil {
		return
	}
	c.mu.RLock()
	node := "unknown"
	if i >= 0 && i < len(c.nodes) {
		node = c.nodes[i].Address()
	}
	c.mu.RUnlock()
	c.metrics.RecordQueryNodeError(node)
}

// SetGlobalCaches sets the number of hot clusters pinned to the
// coordinator's local index. 0 disables the cache.
func (c *Coordinator) SetGlobalCaches(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globalCaches = n
}

// Close tears down every outbound connection to the query-node fleet.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, cl := range c.clients {
		if cl == nil {
			continue
		}
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// IndexInit constructs the coordinator's local index and, in parallel,
// drives indexInit+loadCodeBook on every query node (§4.5.1).
func (c *Coordinator) IndexInit(ctx context.Context, cfg ivfpq.Config) error {
	index, err := ivfpq.New(cfg)
	if err != nil {
		return fmt.Errorf("coordinator: indexInit: %w", err)
	}

	c.mu.Lock()
	c.cfg = cfg
	c.index = index
	clients := make([]*rpctransport.Client, len(c.nodes))
	for i, n := range c.nodes {
		cl, err := rpctransport.Dial(n.Address())
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("coordinator: dial node %d (%s): %w", i, n.Address(), err)
		}
		clients[i] = cl
	}
	c.clients = clients
	nodes := append([]config.QueryNodeEndpoint(nil), c.nodes...)
	c.mu.Unlock()

	req := &rpcpb.IndexInitRequest{
		N: cfg.N, D: cfg.D, L: cfg.L,
		Kc: cfg.Kc, Kp: cfg.Kp, Mc: cfg.Mc, Mp: cfg.Mp,
		Dc: cfg.Dc, Dp: cfg.Dp,
		IndexPath: cfg.IndexPath, DBPath: cfg.DBPath,
	}

	errs := make([]error, len(nodes)+1)
	var wg sync.WaitGroup
	wg.Add(len(nodes) + 1)
	for i := range nodes {
		go func(i int) {
			defer wg.Done()
			cl := clients[i]
			callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
			defer cancel()
			if err := cl.Acquire(callCtx); err != nil {
				errs[i] = fmt.Errorf("node %d: acquire: %w", i, err)
				return
			}
			if _, err := cl.IndexInit(callCtx, req); err != nil {
				errs[i] = fmt.Errorf("node %d: indexInit: %w", i, err)
				c.recordQueryNodeError(i)
				return
			}
			// The node observes a quiesce window after indexInit; wait it
			// out before continuing.
			time.Sleep(indexInitQuiesce)
			if err := cl.Acquire(callCtx); err != nil {
				errs[i] = fmt.Errorf("node %d: acquire: %w", i, err)
				return
			}
			if _, err := cl.LoadCodeBook(callCtx, &rpcpb.Empty{}); err != nil {
				errs[i] = fmt.Errorf("node %d: loadCodeBook: %w", i, err)
				c.recordQueryNodeError(i)
			}
		}(i)
	}
	go func() {
		defer wg.Done()
		if err := index.LoadCodeBook(); err != nil {
			errs[len(nodes)] = fmt.Errorf("local: loadCodeBook: %w", err)
		}
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("coordinator: indexInit: %w", err)
		}
	}

	c.bookMu.Lock()
	c.querybook = make([]types.Assignment, cfg.Kc)
	for i := range c.querybook {
		c.querybook[i] = types.Unassigned()
	}
	c.popularity = make([]atomic.Uint64, cfg.Kc)
	c.bookMu.Unlock()

	c.log.Info().Int("nodes", len(nodes)).Uint64("kc", cfg.Kc).Msg("index initialized")
	return nil
}

// LoadPostingListsSize reads posting_lists_lens.ulvecs; required before the
// first LoadBalance call.
func (c *Coordinator) LoadPostingListsSize() error {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	sizes, err := ivfpq.ReadPostingListSizes(cfg.DBPath, int(cfg.Kc))
	if err != nil {
		return fmt.Errorf("coordinator: loadPostingListsSize: %w", err)
	}
	c.bookMu.Lock()
	c.postingListSize = sizes
	c.bookMu.Unlock()
	return nil
}

// ClearHistory zeroes the popularity counters.
func (c *Coordinator) ClearHistory() {
	c.bookMu.Lock()
	defer c.bookMu.Unlock()
	for i := range c.popularity {
		c.popularity[i].Store(0)
	}
	c.log.Info().Msg("popularity history cleared")
}

// Popularity reports the current per-cluster popularity counters, for
// diagnostics and testing.
func (c *Coordinator) Popularity() []uint64 {
	c.bookMu.RLock()
	defer c.bookMu.RUnlock()
	out := make([]uint64, len(c.popularity))
	for i := range out {
		out[i] = c.popularity[i].Load()
	}
	return out
}

// Assignment reports the current assignment of a cluster, for diagnostics
// and testing.
func (c *Coordinator) Assignment(cid types.ClusterId) types.Assignment {
	c.bookMu.RLock()
	defer c.bookMu.RUnlock()
	if int(cid) >= len(c.querybook) {
		return types.Unassigned()
	}
	return c.querybook[cid]
}

// LoadBalance recomputes the cluster→node assignment under mode, pins the
// globalCaches hottest clusters (by the sort order the mode left behind) to
// the coordinator's local cache, then drives loadSegments on every node and
// loads the cache locally (§4.5.2).
func (c *Coordinator) LoadBalance(ctx context.Context, mode BalanceMode) error {
	c.mu.RLock()
	nodes := append([]config.QueryNodeEndpoint(nil), c.nodes...)
	clients := append([]*rpctransport.Client(nil), c.clients...)
	globalCaches := c.globalCaches
	cfg := c.cfg
	index := c.index
	c.mu.RUnlock()

	if len(nodes) == 0 {
		return fmt.Errorf("coordinator: loadBalance: no query nodes configured")
	}

	c.bookMu.RLock()
	kc := len(c.querybook)
	sizes := append([]uint64(nil), c.postingListSize...)
	popularity := make([]uint64, len(c.popularity))
	for i := range popularity {
		popularity[i] = c.popularity[i].Load()
	}
	c.bookMu.RUnlock()

	querybook := make([]types.Assignment, kc)
	for i := range querybook {
		querybook[i] = types.Unassigned()
	}
	books := make([][]types.ClusterId, len(nodes))
	scores := make([]uint64, len(nodes))

	sortedClusterIds := make([]int, kc)
	for i := range sortedClusterIds {
		sortedClusterIds[i] = i
	}

	minNode := func() int {
		best := 0
		for i := 1; i < len(scores); i++ {
			if scores[i] < scores[best] {
				best = i
			}
		}
		return best
	}

	switch mode {
	case Normal:
		// Normal mode counts every enumerated cluster as one probe: its
		// popularity is bumped here even though no query has touched it.
		// This mirrors the reference coordinator and biases later
		// popularity-based balances.
		j := 0
		for i := 0; i < kc; i++ {
			querybook[i] = types.AssignedNode(j)
			books[j] = append(books[j], types.ClusterId(i))
			popularity[i]++
			j = (j + 1) % len(nodes)
		}
	case BestFitSize:
		sort.Slice(sortedClusterIds, func(a, b int) bool {
			return sizes[sortedClusterIds[a]] > sizes[sortedClusterIds[b]]
		})
		for _, id := range sortedClusterIds {
			j := minNode()
			querybook[id] = types.AssignedNode(j)
			books[j] = append(books[j], types.ClusterId(id))
			scores[j] += sizes[id]
		}
	case BestFitPop:
		sort.Slice(sortedClusterIds, func(a, b int) bool {
			return popularity[sortedClusterIds[a]] > popularity[sortedClusterIds[b]]
		})
		for _, id := range sortedClusterIds {
			j := minNode()
			querybook[id] = types.AssignedNode(j)
			books[j] = append(books[j], types.ClusterId(id))
			scores[j] += popularity[id]
		}
	case BestFitHybrid:
		product := make([]uint64, kc)
		for i := range product {
			product[i] = popularity[i] * sizes[i]
		}
		sort.Slice(sortedClusterIds, func(a, b int) bool {
			return product[sortedClusterIds[a]] > product[sortedClusterIds[b]]
		})
		for _, id := range sortedClusterIds {
			j := minNode()
			querybook[id] = types.AssignedNode(j)
			books[j] = append(books[j], types.ClusterId(id))
			scores[j] += product[id]
		}
	default:
		return fmt.Errorf("coordinator: loadBalance: unknown balance mode %v", mode)
	}

	// Global-cache pinning reuses sortedClusterIds exactly as the mode left
	// it (not reset to identity order) and partially sorts it by descending
	// popularity to pick the hottest globalCaches clusters. A cluster may
	// already sit in some node's books[] from the switch above; it is not
	// removed from there, so it can be both loaded on a node and pinned to
	// the cache simultaneously. This mirrors the reference coordinator.
	var bookGlobal []types.ClusterId
	if globalCaches > 0 {
		n := globalCaches
		if n > kc {
			n = kc
		}
		sort.Slice(sortedClusterIds, func(a, b int) bool {
			return popularity[sortedClusterIds[a]] > popularity[sortedClusterIds[b]]
		})
		for _, id := range sortedClusterIds[:n] {
			querybook[id] = types.AssignedGlobalCache()
			bookGlobal = append(bookGlobal, types.ClusterId(id))
		}
	}

	c.bookMu.Lock()
	c.querybook = querybook
	for i, p := range popularity {
		c.popularity[i].Store(p)
	}
	c.bookMu.Unlock()

	c.mu.Lock()
	c.lastMode = mode
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordLoadBalance(mode.String())
	}

	errs := make([]error, len(nodes)+1)
	var wg sync.WaitGroup
	wg.Add(len(nodes) + 1)
	for i := range nodes {
		go func(i int) {
			defer wg.Done()
			clusters := make([]uint32, len(books[i]))
			copy(clusters, books[i])
			callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
			defer cancel()
			if err := clients[i].Acquire(callCtx); err != nil {
				errs[i] = fmt.Errorf("node %d: acquire: %w", i, err)
				return
			}
			if _, err := clients[i].LoadSegments(callCtx, &rpcpb.LoadSegmentsRequest{Clusters: clusters}); err != nil {
				errs[i] = fmt.Errorf("node %d: loadSegments: %w", i, err)
				c.recordQueryNodeError(i)
			}
		}(i)
	}
	go func() {
		defer wg.Done()
		if err := index.LoadFromBook(bookGlobal, cfg.DBPath); err != nil {
			errs[len(nodes)] = fmt.Errorf("local cache: loadFromBook: %w", err)
		}
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("coordinator: loadBalance: %w", err)
		}
	}

	c.log.Info().Str("mode", mode.String()).Int("globalCaches", len(bookGlobal)).Msg("load balanced")
	return nil
}

// RunQueries runs a coarse probe locally, scatters the resulting cluster
// lists across the node fleet and the global cache, fans the asymmetric
// scan out to each destination, and merges the per-query candidates into
// the final top-k (§4.5.3).
func (c *Coordinator) RunQueries(ctx context.Context, k, w int, queries [][]float32) ([][]types.VectorId, [][]float32, error) {
	start := time.Now()

	c.mu.RLock()
	nodes := append([]config.QueryNodeEndpoint(nil), c.nodes...)
	clients := append([]*rpctransport.Client(nil), c.clients...)
	index := c.index
	numThreads := c.numThreads
	dim := c.cfg.D
	c.mu.RUnlock()

	if index == nil {
		return nil, nil, fmt.Errorf("coordinator: runQueries: index not initialized")
	}
	for qi, q := range queries {
		if uint64(len(q)) != dim {
			return nil, nil, fmt.Errorf("coordinator: runQueries: query %d has dim %d, want %d", qi, len(q), dim)
		}
	}

	topW, err := index.TopWID(queries, w, numThreads)
	if err != nil {
		return nil, nil, fmt.Errorf("coordinator: runQueries: top-w probe: %w", err)
	}

	c.bookMu.RLock()
	querybook := append([]types.Assignment(nil), c.querybook...)
	popularity := c.popularity
	c.bookMu.RUnlock()

	perNodeProbe := make([][][]types.ClusterId, len(nodes))
	for i := range perNodeProbe {
		perNodeProbe[i] = make([][]types.ClusterId, len(queries))
	}
	globalProbe := make([][]types.ClusterId, len(queries))

	for qi, clusters := range topW {
		for _, cid := range clusters {
			if int(cid) < len(popularity) {
				popularity[cid].Add(1)
			}
			if int(cid) >= len(querybook) {
				continue
			}
			a := querybook[cid]
			switch {
			case a.IsGlobalCache():
				globalProbe[qi] = append(globalProbe[qi], cid)
				if c.metrics != nil {
					c.metrics.RecordGlobalCacheHit()
				}
			default:
				if idx, ok := a.NodeIndex(); ok {
					perNodeProbe[idx][qi] = append(perNodeProbe[idx][qi], cid)
					if c.metrics != nil {
						c.metrics.RecordGlobalCacheMiss()
					}
				}
				// Unassigned clusters are silently dropped: no node owns
				// them yet, so they contribute no candidates this round.
			}
		}
	}

	type partial struct {
		ids   [][]types.VectorId
		dists [][]float32
		err   error
	}
	results := make([]partial, len(nodes)+1)

	var wg sync.WaitGroup
	wg.Add(len(nodes) + 1)
	for i := range nodes {
		go func(i int) {
			defer wg.Done()
			req := &rpcpb.RunQueriesRequest{K: uint64(k), Queries: queries, ProbeLists: clusterIdsToWire(perNodeProbe[i])}
			callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
			defer cancel()
			if err := clients[i].Acquire(callCtx); err != nil {
				results[i].err = fmt.Errorf("node %d: acquire: %w", i, err)
				return
			}
			resp, err := clients[i].RunQueries(callCtx, req)
			if err != nil {
				results[i].err = fmt.Errorf("node %d: runQueries: %w", i, err)
				c.recordQueryNodeError(i)
				return
			}
			ids := make([][]types.VectorId, len(resp.Ids))
			for qi, row := range resp.Ids {
				r := make([]types.VectorId, len(row))
				copy(r, row)
				ids[qi] = r
			}
			results[i].ids = ids
			results[i].dists = resp.Dists
		}(i)
	}
	go func() {
		defer wg.Done()
		ids, dists, err := index.TopKID(k, queries, globalProbe, numThreads)
		if err != nil {
			results[len(nodes)].err = fmt.Errorf("local cache: runQueries: %w", err)
			return
		}
		results[len(nodes)].ids = ids
		results[len(nodes)].dists = dists
	}()
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return nil, nil, fmt.Errorf("coordinator: runQueries: %w", r.err)
		}
	}

	outIds := make([][]types.VectorId, len(queries))
	outDists := make([][]float32, len(queries))
	parallelFor(len(queries), numThreads, func(qi int) {
		var ids []types.VectorId
		var dists []float32
		for _, r := range results {
			if qi < len(r.ids) {
				ids = append(ids, r.ids[qi]...)
				dists = append(dists, r.dists[qi]...)
			}
		}
		order := make([]int, len(ids))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
		n := k
		if n > len(order) {
			n = len(order)
		}
		resIds := make([]types.VectorId, n)
		resDists := make([]float32, n)
		for i := 0; i < n; i++ {
			resIds[i] = ids[order[i]]
			resDists[i] = dists[order[i]]
		}
		outIds[qi] = resIds
		outDists[qi] = resDists
	})

	if c.metrics != nil {
		c.mu.RLock()
		mode := c.lastMode
		c.mu.RUnlock()
		numResults := 0
		for _, row := range outIds {
			numResults += len(row)
		}
		c.metrics.RecordQuery(mode.String(), time.Since(start), len(queries), w, numResults)
	}
	return outIds, outDists, nil
}

// uploadChunkSize bounds how much of a segment file is buffered in memory
// per client-streamed chunk during UploadSegmentFile.
const uploadChunkSize = 64 * 1024

// UploadSegmentFile streams one cluster's pqcode_<cid>.ui8vecs segment file
// to the node at nodeIdx over the client-streaming UploadSegment RPC, then
// commits it into place with AddFile (§4.5.5). Progress is logged as a
// percentage of the file size after each chunk.
func (c *Coordinator) UploadSegmentFile(ctx context.Context, nodeIdx int, cid types.ClusterId) error {
	c.mu.RLock()
	cfg := c.cfg
	var client *rpctransport.Client
	if nodeIdx >= 0 && nodeIdx < len(c.clients) {
		client = c.clients[nodeIdx]
	}
	c.mu.RUnlock()

	if uint64(cid) >= cfg.Kc {
		return fmt.Errorf("coordinator: uploadSegmentFile: cluster %d out of range [0,%d)", cid, cfg.Kc)
	}
	if client == nil {
		return fmt.Errorf("coordinator: uploadSegmentFile: no such node index %d", nodeIdx)
	}

	fileName := fmt.Sprintf("pqcode_%d.ui8vecs", cid)
	path := filepath.Join(cfg.DBPath, fileName)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("coordinator: uploadSegmentFile: open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("coordinator: uploadSegmentFile: stat %s: %w", path, err)
	}
	size := info.Size()

	uploadID, err := newUploadID()
	if err != nil {
		return fmt.Errorf("coordinator: uploadSegmentFile: generate upload id: %w", err)
	}

	if err := client.Acquire(ctx); err != nil {
		return fmt.Errorf("coordinator: uploadSegmentFile: acquire: %w", err)
	}

	stream, err := client.UploadSegment(ctx)
	if err != nil {
		c.recordQueryNodeError(nodeIdx)
		return fmt.Errorf("coordinator: uploadSegmentFile: open stream: %w", err)
	}

	buf := make([]byte, uploadChunkSize)
	var sent int64
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if err := stream.Send(&rpcpb.UploadSegmentChunk{UploadID: uploadID, Chunk: chunk}); err != nil {
				return fmt.Errorf("coordinator: uploadSegmentFile: send chunk: %w", err)
			}
			sent += int64(n)
			if size > 0 {
				c.log.Info().Int("node", nodeIdx).Uint32("cluster", cid).Float64("percent", 100*float64(sent)/float64(size)).Msg("segment upload progress")
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("coordinator: uploadSegmentFile: read %s: %w", path, readErr)
		}
	}

	resp, err := stream.CloseAndRecv()
	if err != nil {
		c.recordQueryNodeError(nodeIdx)
		return fmt.Errorf("coordinator: uploadSegmentFile: close stream: %w", err)
	}

	if err := client.Acquire(ctx); err != nil {
		return fmt.Errorf("coordinator: uploadSegmentFile: acquire: %w", err)
	}
	if _, err := client.AddFile(ctx, &rpcpb.AddFileRequest{UploadID: uploadID, FileName: fileName}); err != nil {
		c.recordQueryNodeError(nodeIdx)
		return fmt.Errorf("coordinator: uploadSegmentFile: addFile: %w", err)
	}

	c.log.Info().Int("node", nodeIdx).Uint32("cluster", cid).Int64("bytes", resp.BytesReceived).Msg("segment file uploaded")
	return nil
}

// newUploadID generates a short random identifier for one upload session.
// No uuid library appears anywhere in the retrieved corpus, so this uses
// crypto/rand directly rather than reaching for an unneeded dependency.
func newUploadID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func clusterIdsToWire(rows [][]types.ClusterId) [][]uint32 {
	out := make([][]uint32, len(rows))
	for i, row := range rows {
		r := make([]uint32, len(row))
		copy(r, row)
		out[i] = r
	}
	return out
}
