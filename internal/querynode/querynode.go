// Package querynode implements the RPC-facing state machine hosted by the
// query node process: indexInit must precede loadCodeBook and
// loadSegments, after which runQueries may be served against whatever
// clusters are currently resident.
package querynode

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lcj2021/mini-ivf-sub001/internal/ivfpq"
	"github.com/lcj2021/mini-ivf-sub001/internal/obsmetrics"
	"github.com/lcj2021/mini-ivf-sub001/internal/rpcpb"
	"github.com/lcj2021/mini-ivf-sub001/internal/types"
)

// Node is the query node's RPC-facing state, implementing
// rpcpb.QueryNodeServer.
type Node struct {
	numThreads int
	log        zerolog.Logger
	metrics    *obsmetrics.QueryNode

	mu     sync.RWMutex
	index  *ivfpq.Index
	dbPath string

	// onIndexInit, if set, is invoked in its own goroutine immediately
	// after indexInit returns to the coordinator. cmd/querynode uses this
	// hook for a timed, logged quiesce delay; the transport is not
	// restarted and RPCs are still served while it runs. indexInit itself
	// never blocks on it.
	onIndexInit func()

	uploads uploadTracker
}

// New constructs a Node with no index until indexInit is called.
func New(numThreads int, log zerolog.Logger, metrics *obsmetrics.QueryNode) *Node {
	if numThreads < 1 {
		numThreads = 1
	}
	return &Node{
		numThreads: numThreads,
		log:        log,
		metrics:    metrics,
		uploads:    newUploadTracker(),
	}
}

// SetOnIndexInit installs the post-indexInit hook. Must be called before
// the node starts serving RPCs.
func (n *Node) SetOnIndexInit(fn func()) {
	n.onIndexInit = fn
}

func (n *Node) IndexInit(ctx context.Context, req *rpcpb.IndexInitRequest) (*rpcpb.Empty, error) {
	cfg := ivfpq.Config{
		N: req.N, D: req.D, L: req.L,
		Kc: req.Kc, Kp: req.Kp, Mc: req.Mc, Mp: req.Mp,
		Dc: req.Dc, Dp: req.Dp,
		IndexPath: req.IndexPath, DBPath: req.DBPath,
	}
	ix, err := ivfpq.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("querynode: indexInit: %w", err)
	}

	n.mu.Lock()
	n.index = ix
	n.dbPath = req.DBPath
	n.mu.Unlock()

	n.log.Info().Uint64("kc", req.Kc).Uint64("d", req.D).Msg("index initialized")
	n.metrics.IndexInitTotal.Inc()

	if n.onIndexInit != nil {
		go n.onIndexInit()
	}
	return &rpcpb.Empty{}, nil
}

func (n *Node) LoadCodeBook(ctx context.Context, _ *rpcpb.Empty) (*rpcpb.Empty, error) {
	ix, err := n.currentIndex()
	if err != nil {
		return nil, err
	}
	if err := ix.LoadCodeBook(); err != nil {
		return nil, fmt.Errorf("querynode: loadCodeBook: %w", err)
	}
	return &rpcpb.Empty{}, nil
}

func (n *Node) LoadSegments(ctx context.Context, req *rpcpb.LoadSegmentsRequest) (*rpcpb.Empty, error) {
	ix, err := n.currentIndex()
	if err != nil {
		return nil, err
	}
	clusters := make([]types.ClusterId, len(req.Clusters))
	for i, c := range req.Clusters {
		clusters[i] = types.ClusterId(c)
	}

	n.mu.RLock()
	dbPath := n.dbPath
	n.mu.RUnlock()

	if err := ix.LoadFromBook(clusters, dbPath); err != nil {
		return nil, fmt.Errorf("querynode: loadSegments: %w", err)
	}
	n.metrics.LoadSegmentsTotal.Inc()
	stats := ix.Stats()
	n.metrics.ClustersResident.Set(float64(len(clusters)))
	n.metrics.ResidentVectors.Set(float64(stats.ResidentVectors))
	n.metrics.MemoryBytes.Set(float64(stats.MemoryBytes))
	n.log.Info().Int("clusters", len(clusters)).Msg("segments loaded")
	return &rpcpb.Empty{}, nil
}

func (n *Node) RunQueries(ctx context.Context, req *rpcpb.RunQueriesRequest) (*rpcpb.RunQueriesResponse, error) {
	ix, err := n.currentIndex()
	if err != nil {
		return nil, err
	}
	d := int(ix.Config().D)
	for qi, q := range req.Queries {
		if len(q) != d {
			return nil, fmt.Errorf("querynode: runQueries: query %d has dim %d, want %d", qi, len(q), d)
		}
	}
	probeLists := make([][]types.ClusterId, len(req.ProbeLists))
	for i, pl := range req.ProbeLists {
		row := make([]types.ClusterId, len(pl))
		for j, c := range pl {
			row[j] = types.ClusterId(c)
		}
		probeLists[i] = row
	}

	start := time.Now()
	ids, dists, err := ix.TopKID(int(req.K), req.Queries, probeLists, n.numThreads)
	n.metrics.RunQueriesDuration.Observe(time.Since(start).Seconds())
	n.metrics.RunQueriesTotal.Inc()
	if err != nil {
		return nil, fmt.Errorf("querynode: runQueries: %w", err)
	}

	respIds := make([][]uint32, len(ids))
	for i, row := range ids {
		r := make([]uint32, len(row))
		for j, id := range row {
			r[j] = uint32(id)
		}
		respIds[i] = r
	}
	return &rpcpb.RunQueriesResponse{Ids: respIds, Dists: dists}, nil
}

func (n *Node) AddFile(ctx context.Context, req *rpcpb.AddFileRequest) (*rpcpb.Empty, error) {
	n.mu.RLock()
	dbPath := n.dbPath
	n.mu.RUnlock()
	if dbPath == "" {
		return nil, fmt.Errorf("querynode: addFile: index not initialized")
	}

	tmpPath, ok := n.uploads.take(req.UploadID)
	if !ok {
		return nil, fmt.Errorf("querynode: addFile: unknown upload id %q", req.UploadID)
	}
	finalPath := filepath.Join(dbPath, req.FileName)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, fmt.Errorf("querynode: addFile: rename %s -> %s: %w", tmpPath, finalPath, err)
	}
	n.log.Info().Str("file", req.FileName).Msg("segment file committed")
	return &rpcpb.Empty{}, nil
}

func (n *Node) UploadSegment(stream rpcpb.QueryNode_UploadSegmentServer) error {
	n.mu.RLock()
	dbPath := n.dbPath
	n.mu.RUnlock()
	if dbPath == "" {
		return fmt.Errorf("querynode: uploadSegment: index not initialized")
	}

	var f *os.File
	var uploadID string
	var total int64

	finish := func() error {
		if f == nil {
			return stream.SendAndClose(&rpcpb.UploadSegmentResponse{BytesReceived: 0})
		}
		if err := f.Close(); err != nil {
			return err
		}
		return stream.SendAndClose(&rpcpb.UploadSegmentResponse{BytesReceived: total})
	}

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			return finish()
		}
		if err != nil {
			if f != nil {
				f.Close()
			}
			return fmt.Errorf("querynode: uploadSegment: recv: %w", err)
		}

		if f == nil {
			uploadID = chunk.UploadID
			tmp, err := os.CreateTemp(dbPath, "upload-*.tmp")
			if err != nil {
				return fmt.Errorf("querynode: uploadSegment: create temp file: %w", err)
			}
			f = tmp
			n.uploads.register(uploadID, tmp.Name())
		}

		if _, err := f.Write(chunk.Chunk); err != nil {
			f.Close()
			return fmt.Errorf("querynode: uploadSegment: write: %w", err)
		}
		total += int64(len(chunk.Chunk))
	}
}

func (n *Node) currentIndex() (*ivfpq.Index, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.index == nil {
		return nil, fmt.Errorf("querynode: index not initialized, call indexInit first")
	}
	return n.index, nil
}

// uploadTracker maps an in-flight upload id to the temp file path it is
// being written to, so a later addFile RPC can find and rename it.
type uploadTracker struct {
	mu    sync.Mutex
	paths map[string]string
}

func newUploadTracker() uploadTracker {
	return uploadTracker{paths: make(map[string]string)}
}

func (t *uploadTracker) register(id, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths[id] = path
}

func (t *uploadTracker) take(id string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	path, ok := t.paths[id]
	if ok {
		delete(t.paths, id)
	}
	return path, ok
}
