// Package client talks to a warpfront server. Proxy wraps the calls in
// non-blocking, rate-limited request slots for use from a frame loop, and
// Mirror keeps a local copy of the game in step with the server's log.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/warpfront/warpfront-server-go/internal/server"
	"github.com/warpfront/warpfront-server-go/internal/wire"
)

const maxResponseBody = 64 << 20

// Transport performs one call and decodes the reply payload into resp.
type Transport interface {
	Call(ctx context.Context, op server.Operation, token string, req, resp wire.Message) error
	Close() error
}

// StatusError is a call the server answered with a failure status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// StatusOf returns the failure status carried by err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

func decodeReply(resp *wire.Response, out wire.Message) error {
	if !resp.OK() {
		return &StatusError{Status: resp.Status, Message: resp.Error}
	}
	if out == nil {
		return nil
	}
	return wire.Unmarshal(resp.Payload, out)
}

// HTTPTransport posts envelopes to the HTTP routes.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport builds a transport whose requests are bounded only by
// the context passed to Call.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (t *HTTPTransport) Call(ctx context.Context, op server.Operation, token string, req, resp wire.Message) error {
	body, err := wire.EncodeRequest(token, req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+op.Path(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	var reply wire.Response
	if err := wire.Unpack(data, &reply); err != nil {
		return &StatusError{Status: httpResp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return decodeReply(&reply, resp)
}

func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// GRPCTransport invokes the hand-registered gRPC methods.
type GRPCTransport struct {
	conn *grpc.ClientConn
}

// NewGRPCTransport dials target. Extra options are appended after the
// defaults (insecure credentials and the frame codec).
func NewGRPCTransport(target string, opts ...grpc.DialOption) (*GRPCTransport, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(server.FrameCodec{})),
	}, opts...)
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial game service failed: %w", err)
	}
	return &GRPCTransport{conn: conn}, nil
}

func (t *GRPCTransport) Call(ctx context.Context, op server.Operation, token string, req, resp wire.Message) error {
	body, err := wire.EncodeRequest(token, req)
	if err != nil {
		return err
	}
	out := new(server.Frame)
	if err := t.conn.Invoke(ctx, server.FullMethod(op), &server.Frame{Data: body}, out); err != nil {
		if st, ok := status.FromError(err); ok {
			return &StatusError{Status: server.StatusForCode(st.Code()), Message: st.Message()}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	var reply wire.Response
	if err := wire.Unpack(out.Data, &reply); err != nil {
		return err
	}
	return decodeReply(&reply, resp)
}

func (t *GRPCTransport) Close() error {
	return t.conn.Close()
}
