package querynode

import (
	"context"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"

	"github.com/lcj2021/mini-ivf-sub001/internal/ivfpq"
	"github.com/lcj2021/mini-ivf-sub001/internal/obslog"
	"github.com/lcj2021/mini-ivf-sub001/internal/obsmetrics"
	"github.com/lcj2021/mini-ivf-sub001/internal/quant"
	"github.com/lcj2021/mini-ivf-sub001/internal/rpcpb"
)

func buildFixtureDB(t *testing.T, dir string) ivfpq.Config {
	t.Helper()
	cfg := ivfpq.Config{
		N: 4, D: 4, L: 4,
		Kc: 2, Kp: 256, Mc: 1, Mp: 2, Dc: 4, Dp: 2,
		IndexPath: dir, DBPath: dir,
	}
	ix, err := ivfpq.New(cfg)
	if err != nil {
		t.Fatalf("ivfpq.New: %v", err)
	}

	coarse, err := quant.New(4, 1, 2)
	if err != nil {
		t.Fatalf("quant.New coarse: %v", err)
	}
	if err := coarse.SetCentroids([][][]float32{
		{{0.5, 0.5, 0.5, 0.5}, {9.5, 9.5, 9.5, 9.5}},
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
		{1, 1, 1, 1},
		{9, 9, 9, 9},
		{10, 10, 10, 10},
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

func newTestNode() *Node {
	obslog.Configure()
	reg := prometheus.NewRegistry()
	return New(1, obslog.Named("querynode-test"), obsmetrics.NewQueryNode(reg))
}

func TestIndexInitLoadCodeBookLoadSegmentsRunQueries(t *testing.T) {
	dir := t.TempDir()
	cfg := buildFixtureDB(t, dir)

	n := newTestNode()
	ctx := context.Background()

	if _, err := n.IndexInit(ctx, &rpcpb.IndexInitRequest{
		N: cfg.N, D: cfg.D, L: cfg.L,
		Kc: cfg.Kc, Kp: cfg.Kp, Mc: cfg.Mc, Mp: cfg.Mp,
		Dc: cfg.Dc, Dp: cfg.Dp,
		IndexPath: cfg.IndexPath, DBPath: cfg.DBPath,
	}); err != nil {
		t.Fatalf("IndexInit: %v", err)
	}

	if _, err := n.LoadCodeBook(ctx, &rpcpb.Empty{}); err != nil {
		t.Fatalf("LoadCodeBook: %v", err)
	}

	if _, err := n.LoadSegments(ctx, &rpcpb.LoadSegmentsRequest{Clusters: []uint32{0, 1}}); err != nil {
		t.Fatalf("LoadSegments: %v", err)
	}

	resp, err := n.RunQueries(ctx, &rpcpb.RunQueriesRequest{
		K:          1,
		Queries:    [][]float32{{0, 0, 0, 0}},
		ProbeLists: [][]uint32{{0}},
	})
	if err != nil {
		t.Fatalf("RunQueries: %v", err)
	}
	if len(resp.Ids) != 1 || len(resp.Ids[0]) != 1 || resp.Ids[0][0] != 0 {
		t.Fatalf("RunQueries ids = %v, want [[0]]", resp.Ids)
	}
	if resp.Dists[0][0] != 0 {
		t.Fatalf("RunQueries dist = %v, want 0", resp.Dists[0][0])
	}
}

func TestRunQueriesBeforeIndexInitFails(t *testing.T) {
	n := newTestNode()
	if _, err := n.RunQueries(context.Background(), &rpcpb.RunQueriesRequest{}); err == nil {
		t.Fatal("expected error when index not initialized")
	}
}

func TestUploadSegmentThenAddFileCommitsFile(t *testing.T) {
	dir := t.TempDir()
	cfg := buildFixtureDB(t, dir)

	n := newTestNode()
	ctx := context.Background()
	if _, err := n.IndexInit(ctx, &rpcpb.IndexInitRequest{
		Kc: cfg.Kc, D: cfg.D, Mp: cfg.Mp, Kp: cfg.Kp, Mc: cfg.Mc,
		Dc: cfg.Dc, Dp: cfg.Dp, IndexPath: cfg.IndexPath, DBPath: cfg.DBPath,
	}); err != nil {
		t.Fatalf("IndexInit: %v", err)
	}

	stream := &fakeUploadStream{chunks: []*rpcpb.UploadSegmentChunk{
		{UploadID: "abc", Chunk: []byte("hello")},
		{UploadID: "abc", Chunk: []byte(" world")},
	}}
	if err := n.UploadSegment(stream); err != nil {
		t.Fatalf("UploadSegment: %v", err)
	}
	if stream.resp.BytesReceived != int64(len("hello world")) {
		t.Fatalf("BytesReceived = %d, want %d", stream.resp.BytesReceived, len("hello world"))
	}

	if _, err := n.AddFile(ctx, &rpcpb.AddFileRequest{UploadID: "abc", FileName: "pqcode_9.ui8vecs"}); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
}

// fakeUploadStream implements rpcpb.QueryNode_UploadSegmentServer without a
// real network connection, for exercising Node.UploadSegment directly. The
// embedded grpc.ServerStream is left nil: Node.UploadSegment only ever
// calls Recv/SendAndClose, both overridden below.
type fakeUploadStream struct {
	grpc.ServerStream
	chunks []*rpcpb.UploadSegmentChunk
	idx    int
	resp   *rpcpb.UploadSegmentResponse
}

func (s *fakeUploadStream) Recv() (*rpcpb.UploadSegmentChunk, error) {
	if s.idx >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.idx]
	s.idx++
	return c, nil
}

func (s *fakeUploadStream) SendAndClose(resp *rpcpb.UploadSegmentResponse) error {
	s.resp = resp
	return nil
}
