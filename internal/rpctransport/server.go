// Package rpctransport wires the gRPC transport shared by the query node
// (server side) and the coordinator (client side): keepalive parameters,
// optional TLS, reflection, and the gob content-subtype selection that
// internal/rpcpb's codec requires.
package rpctransport

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/lcj2021/mini-ivf-sub001/internal/rpcpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// maxMessageSize is the largest value grpc's size type can carry; runQueries
// batches are not application-fragmented, so the transport is opened up to
// this ceiling rather than the library's much smaller default.
const maxMessageSize = math.MaxInt32

// TLSConfig optionally enables TLS on the server; a zero value disables it.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// Server wraps a grpc.Server bound to a query node's listen address, with
// graceful shutdown and uptime tracking in the style of the teacher's
// gRPC server wrapper.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	startTime  time.Time

	mu         sync.Mutex
	isShutdown bool
}

// NewServer constructs (but does not start) a gRPC server registered with
// impl, listening on addr. TLS is enabled when tlsCfg is non-nil.
func NewServer(addr string, impl rpcpb.QueryNodeServer, tlsCfg *TLSConfig) (*Server, error) {
	var opts []grpc.ServerOption

	if tlsCfg != nil {
		cert, err := tls.LoadX509KeyPair(tlsCfg.CertFile, tlsCfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("rpctransport: load TLS certificates: %w", err)
		}
		creds := credentials.NewTLS(&tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		opts = append(opts, grpc.Creds(creds))
	}

	opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{
		MaxConnectionIdle: 30 * time.Minute,
		Time:              30 * time.Second,
		Timeout:           10 * time.Second,
	}))
	opts = append(opts, grpc.MaxRecvMsgSize(maxMessageSize), grpc.MaxSendMsgSize(maxMessageSize))

	grpcServer := grpc.NewServer(opts...)
	rpcpb.RegisterQueryNodeServer(grpcServer, impl)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpctransport: listen on %s: %w", addr, err)
	}

	return &Server{
		grpcServer: grpcServer,
		listener:   lis,
		startTime:  time.Now(),
	}, nil
}

// Serve blocks, accepting connections until Stop is called.
func (s *Server) Serve() error {
	return s.grpcServer.Serve(s.listener)
}

// Addr returns the bound address, useful when addr was ":0".
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Uptime returns how long the server has been accepting connections.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Stop gracefully shuts the server down, falling back to a hard stop if
// shutdownTimeout elapses first.
func (s *Server) Stop(shutdownTimeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isShutdown {
		return
	}
	s.isShutdown = true

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}
