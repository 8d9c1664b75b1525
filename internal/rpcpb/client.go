package rpcpb

import (
	"context"

	"google.golang.org/grpc"
)

// QueryNodeClient is the coordinator-side handle to one query node
// connection.
type QueryNodeClient interface {
	IndexInit(ctx context.Context, req *IndexInitRequest, opts ...grpc.CallOption) (*Empty, error)
	LoadCodeBook(ctx context.Context, req *Empty, opts ...grpc.CallOption) (*Empty, error)
	LoadSegments(ctx context.Context, req *LoadSegmentsRequest, opts ...grpc.CallOption) (*Empty, error)
	RunQueries(ctx context.Context, req *RunQueriesRequest, opts ...grpc.CallOption) (*RunQueriesResponse, error)
	UploadSegment(ctx context.Context, opts ...grpc.CallOption) (QueryNode_UploadSegmentClient, error)
	AddFile(ctx context.Context, req *AddFileRequest, opts ...grpc.CallOption) (*Empty, error)
}

// QueryNode_UploadSegmentClient is the client-side handle for the
// uploadSegment client-streaming RPC.
type QueryNode_UploadSegmentClient interface {
	Send(*UploadSegmentChunk) error
	CloseAndRecv() (*UploadSegmentResponse, error)
	grpc.ClientStream
}

type queryNodeClient struct {
	cc *grpc.ClientConn
}

// NewQueryNodeClient wraps cc (already dialed with the gob codec configured
// via DialOptions) in the QueryNodeClient interface.
func NewQueryNodeClient(cc *grpc.ClientConn) QueryNodeClient {
	return &queryNodeClient{cc: cc}
}

func (c *queryNodeClient) IndexInit(ctx context.Context, req *IndexInitRequest, opts ...grpc.CallOption) (*Empty, error) {
	resp := new(Empty)
	if err := c.cc.Invoke(ctx, ServiceName+"/IndexInit", req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *queryNodeClient) LoadCodeBook(ctx context.Context, req *Empty, opts ...grpc.CallOption) (*Empty, error) {
	resp := new(Empty)
	if err := c.cc.Invoke(ctx, ServiceName+"/LoadCodeBook", req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *queryNodeClient) LoadSegments(ctx context.Context, req *LoadSegmentsRequest, opts ...grpc.CallOption) (*Empty, error) {
	resp := new(Empty)
	if err := c.cc.Invoke(ctx, ServiceName+"/LoadSegments", req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *queryNodeClient) RunQueries(ctx context.Context, req *RunQueriesRequest, opts ...grpc.CallOption) (*RunQueriesResponse, error) {
	resp := new(RunQueriesResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/RunQueries", req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *queryNodeClient) AddFile(ctx context.Context, req *AddFileRequest, opts ...grpc.CallOption) (*Empty, error) {
	resp := new(Empty)
	if err := c.cc.Invoke(ctx, ServiceName+"/AddFile", req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *queryNodeClient) UploadSegment(ctx context.Context, opts ...grpc.CallOption) (QueryNode_UploadSegmentClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], ServiceName+"/UploadSegment", opts...)
	if err != nil {
		return nil, err
	}
	return &queryNodeUploadSegmentClient{stream}, nil
}

type queryNodeUploadSegmentClient struct {
	grpc.ClientStream
}

func (c *queryNodeUploadSegmentClient) Send(chunk *UploadSegmentChunk) error {
	return c.ClientStream.SendMsg(chunk)
}

func (c *queryNodeUploadSegmentClient) CloseAndRecv() (*UploadSegmentResponse, error) {
	if err := c.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	resp := new(UploadSegmentResponse)
	if err := c.ClientStream.RecvMsg(resp); err != nil {
		return nil, err
	}
	return resp, nil
}
