package rpcpb

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name, matching the
// convention protoc-gen-go-grpc would have produced for a "miniivf"
// package's "QueryNode" service.
const ServiceName = "miniivf.QueryNode"

// QueryNodeServer is implemented by internal/querynode's RPC-facing type.
type QueryNodeServer interface {
	IndexInit(context.Context, *IndexInitRequest) (*Empty, error)
	LoadCodeBook(context.Context, *Empty) (*Empty, error)
	LoadSegments(context.Context, *LoadSegmentsRequest) (*Empty, error)
	RunQueries(context.Context, *RunQueriesRequest) (*RunQueriesResponse, error)
	UploadSegment(QueryNode_UploadSegmentServer) error
	AddFile(context.Context, *AddFileRequest) (*Empty, error)
}

// QueryNode_UploadSegmentServer is the server-side handle for the
// client-streaming uploadSegment RPC.
type QueryNode_UploadSegmentServer interface {
	Recv() (*UploadSegmentChunk, error)
	SendAndClose(*UploadSegmentResponse) error
	grpc.ServerStream
}

type queryNodeUploadSegmentServer struct {
	grpc.ServerStream
}

func (s *queryNodeUploadSegmentServer) Recv() (*UploadSegmentChunk, error) {
	m := new(UploadSegmentChunk)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *queryNodeUploadSegmentServer) SendAndClose(resp *UploadSegmentResponse) error {
	return s.ServerStream.SendMsg(resp)
}

func indexInitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(IndexInitRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryNodeServer).IndexInit(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/IndexInit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueryNodeServer).IndexInit(ctx, req.(*IndexInitRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func loadCodeBookHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(Empty)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryNodeServer).LoadCodeBook(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/LoadCodeBook"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueryNodeServer).LoadCodeBook(ctx, req.(*Empty))
	}
	return interceptor(ctx, req, info, handler)
}

func loadSegmentsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(LoadSegmentsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryNodeServer).LoadSegments(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/LoadSegments"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueryNodeServer).LoadSegments(ctx, req.(*LoadSegmentsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func runQueriesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RunQueriesRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryNodeServer).RunQueries(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/RunQueries"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueryNodeServer).RunQueries(ctx, req.(*RunQueriesRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func addFileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(AddFileRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryNodeServer).AddFile(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/AddFile"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueryNodeServer).AddFile(ctx, req.(*AddFileRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func uploadSegmentHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(QueryNodeServer).UploadSegment(&queryNodeUploadSegmentServer{stream})
}

// ServiceDesc is the hand-authored equivalent of what protoc-gen-go-grpc
// would emit for a service with five unary methods and one
// client-streaming method.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueryNodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IndexInit", Handler: indexInitHandler},
		{MethodName: "LoadCodeBook", Handler: loadCodeBookHandler},
		{MethodName: "LoadSegments", Handler: loadSegmentsHandler},
		{MethodName: "RunQueries", Handler: runQueriesHandler},
		{MethodName: "AddFile", Handler: addFileHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "UploadSegment",
			Handler:       uploadSegmentHandler,
			ClientStreams: true,
		},
	},
	Metadata: "internal/rpcpb/service.go",
}

// RegisterQueryNodeServer registers srv with s, matching the signature
// protoc-gen-go-grpc generates.
func RegisterQueryNodeServer(s grpc.ServiceRegistrar, srv QueryNodeServer) {
	s.RegisterService(&ServiceDesc, srv)
}
