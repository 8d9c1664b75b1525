// Package rpcpb defines the wire messages and service contract exchanged
// between the coordinator and the query node fleet. No .proto toolchain is
// available in this environment, so the messages are plain Go structs
// carried over gRPC with a gob Codec (see codec.go) instead of the protobuf
// wire format, and the service methods are wired through a hand-authored
// grpc.ServiceDesc (see service.go) instead of protoc-gen-go-grpc output.
package rpcpb

// Empty is the payload for RPCs that carry no meaningful request or
// response data.
type Empty struct{}

// IndexInitRequest mirrors the reference coordinator's IVFPQConfig
// broadcast to a query node: dataset shape plus the two directories the
// node should read its codebook and segments from.
type IndexInitRequest struct {
	N, D, L        uint64
	Kc, Kp         uint64
	Mc, Mp         uint64
	Dc, Dp         uint64
	IndexPath      string
	DBPath         string
}

// LoadSegmentsRequest carries the subset of cluster ids a query node should
// have resident after this call returns; any cluster not listed here is
// evicted.
type LoadSegmentsRequest struct {
	Clusters []uint32
}

// RunQueriesRequest carries a query batch and, per query, the coarse
// cluster ids the coordinator has assigned to this node for that query.
type RunQueriesRequest struct {
	K          uint64
	Queries    [][]float32
	ProbeLists [][]uint32
}

// RunQueriesResponse carries, per query, the resulting vector ids and their
// asymmetric squared-L2 distances, already sorted ascending by distance.
type RunQueriesResponse struct {
	Ids   [][]uint32
	Dists [][]float32
}

// UploadSegmentChunk is one frame of the uploadSegment client-streaming
// RPC: an upload id shared across all chunks of one transfer, and a slice
// of file bytes. An empty Chunk with a non-empty UploadID never occurs; the
// stream simply closes after the last chunk.
type UploadSegmentChunk struct {
	UploadID string
	Chunk    []byte
}

// UploadSegmentResponse is returned once the client closes the upload
// stream.
type UploadSegmentResponse struct {
	BytesReceived int64
}

// AddFileRequest asks the node to rename the file received under UploadID
// to FileName inside its db directory, completing the two-step upload
// handshake modeled on the reference's upload-then-rename protocol.
type AddFileRequest struct {
	UploadID string
	FileName string
}
