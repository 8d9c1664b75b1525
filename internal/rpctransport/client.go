package rpctransport

import (
	"context"
	"fmt"

	"github.com/lcj2021/mini-ivf-sub001/internal/rpcpb"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is one coordinator-side connection to a query node. Every outbound
// call is preceded by Acquire, which consults a rate limiter. The limiter
// is created with an unlimited rate, so it admits every call at once; it
// does not bound how many RPCs are in flight against a node, and it never
// retries anything.
type Client struct {
	rpcpb.QueryNodeClient
	conn    *grpc.ClientConn
	limiter *rate.Limiter
}

// DefaultMaxConcurrentCalls is the burst size the limiter is created with.
// Because the limiter's rate is unlimited, the burst is not enforced and
// puts no cap on the RPCs in flight against one query node.
const DefaultMaxConcurrentCalls = 32

// Dial connects to a query node at addr using the gob codec and an
// insecure transport (the reference protocol has no transport security;
// TLS is opt-in on the server side only, matching §6's scope).
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(rpcpb.CodecName()),
			grpc.MaxCallRecvMsgSize(maxMessageSize),
			grpc.MaxCallSendMsgSize(maxMessageSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("rpctransport: dial %s: %w", addr, err)
	}
	return &Client{
		QueryNodeClient: rpcpb.NewQueryNodeClient(conn),
		conn:            conn,
		limiter:         rate.NewLimiter(rate.Inf, DefaultMaxConcurrentCalls),
	}, nil
}

// Acquire admits one more RPC to this node. The coordinator calls it
// immediately before issuing each call. It returns ctx's error if ctx is
// already done and otherwise returns at once: with an unlimited rate no
// call is delayed and concurrent calls are not counted.
func (c *Client) Acquire(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
