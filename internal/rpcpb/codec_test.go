package rpcpb

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type fakeQueryNode struct {
	received []byte
}

func (f *fakeQueryNode) IndexInit(ctx context.Context, req *IndexInitRequest) (*Empty, error) {
	if req.Kc == 0 {
		return nil, errors.New("kc must be positive")
	}
	return &Empty{}, nil
}

func (f *fakeQueryNode) LoadCodeBook(ctx context.Context, req *Empty) (*Empty, error) {
	return &Empty{}, nil
}

func (f *fakeQueryNode) LoadSegments(ctx context.Context, req *LoadSegmentsRequest) (*Empty, error) {
	return &Empty{}, nil
}

func (f *fakeQueryNode) RunQueries(ctx context.Context, req *RunQueriesRequest) (*RunQueriesResponse, error) {
	ids := make([][]uint32, len(req.Queries))
	dists := make([][]float32, len(req.Queries))
	for i := range req.Queries {
		ids[i] = []uint32{uint32(i)}
		dists[i] = []float32{0}
	}
	return &RunQueriesResponse{Ids: ids, Dists: dists}, nil
}

func (f *fakeQueryNode) AddFile(ctx context.Context, req *AddFileRequest) (*Empty, error) {
	return &Empty{}, nil
}

func (f *fakeQueryNode) UploadSegment(stream QueryNode_UploadSegmentServer) error {
	var total int64
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			return stream.SendAndClose(&UploadSegmentResponse{BytesReceived: total})
		}
		if err != nil {
			return err
		}
		f.received = append(f.received, chunk.Chunk...)
		total += int64(len(chunk.Chunk))
	}
}

func dialer(lis *bufconn.Listener) func(context.Context, string) (net.Conn, error) {
	return func(ctx context.Context, s string) (net.Conn, error) {
		return lis.Dial()
	}
}

func newTestServerAndClient(t *testing.T, impl QueryNodeServer) (QueryNodeClient, func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterQueryNodeServer(srv, impl)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient(
		"passthrough:///bufconn",
		grpc.WithContextDialer(dialer(lis)),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName())),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	client := NewQueryNodeClient(conn)
	return client, func() {
		conn.Close()
		srv.Stop()
	}
}

func TestUnaryRPCRoundTrip(t *testing.T) {
	impl := &fakeQueryNode{}
	client, closeFn := newTestServerAndClient(t, impl)
	defer closeFn()

	ctx := context.Background()
	if _, err := client.IndexInit(ctx, &IndexInitRequest{Kc: 4, D: 8, Mp: 2}); err != nil {
		t.Fatalf("IndexInit: %v", err)
	}
	resp, err := client.RunQueries(ctx, &RunQueriesRequest{K: 1, Queries: [][]float32{{1, 2}, {3, 4}}})
	if err != nil {
		t.Fatalf("RunQueries: %v", err)
	}
	if len(resp.Ids) != 2 || resp.Ids[0][0] != 0 || resp.Ids[1][0] != 1 {
		t.Fatalf("unexpected RunQueries response: %+v", resp)
	}
}

func TestIndexInitPropagatesError(t *testing.T) {
	impl := &fakeQueryNode{}
	client, closeFn := newTestServerAndClient(t, impl)
	defer closeFn()

	if _, err := client.IndexInit(context.Background(), &IndexInitRequest{Kc: 0}); err == nil {
		t.Fatal("expected error for Kc=0")
	}
}

func TestUploadSegmentStreamsChunks(t *testing.T) {
	impl := &fakeQueryNode{}
	client, closeFn := newTestServerAndClient(t, impl)
	defer closeFn()

	stream, err := client.UploadSegment(context.Background())
	if err != nil {
		t.Fatalf("UploadSegment: %v", err)
	}
	payload := [][]byte{[]byte("hello, "), []byte("world")}
	for _, chunk := range payload {
		if err := stream.Send(&UploadSegmentChunk{UploadID: "u1", Chunk: chunk}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	resp, err := stream.CloseAndRecv()
	if err != nil {
		t.Fatalf("CloseAndRecv: %v", err)
	}
	if resp.BytesReceived != int64(len("hello, world")) {
		t.Fatalf("BytesReceived = %d, want %d", resp.BytesReceived, len("hello, world"))
	}
	if string(impl.received) != "hello, world" {
		t.Fatalf("received = %q, want %q", impl.received, "hello, world")
	}
}
