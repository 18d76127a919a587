package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/warpfront/warpfront-server-go/internal/wire"
)

// ServiceName is the fully qualified gRPC service.
const ServiceName = "warpfront.v1.Game"

const requestIDMetadata = "x-request-id"

var grpcMethodNames = map[Operation]string{
	OpLogin:      "Login",
	OpCreateGame: "CreateGame",
	OpJoinGame:   "JoinGame",
	OpJoinUser:   "JoinByUsername",
	OpState:      "GetState",
	OpActions:    "GetActions",
	OpPerform:    "PerformAction",
	OpChanges:    "GetChanges",
}

// FullMethod returns the gRPC method path of an operation.
func FullMethod(op Operation) string {
	return "/" + ServiceName + "/" + grpcMethodNames[op]
}

// Frame carries one packed wire envelope through gRPC.
type Frame struct {
	Data []byte
}

// FrameCodec moves Frames without any protobuf reflection; the payload is
// already encoded by package wire.
type FrameCodec struct{}

func (FrameCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*Frame)
	if !ok {
		return nil, fmt.Errorf("frame codec: unexpected type %T", v)
	}
	return f.Data, nil
}

func (FrameCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*Frame)
	if !ok {
		return fmt.Errorf("frame codec: unexpected type %T", v)
	}
	f.Data = append([]byte(nil), data...)
	return nil
}

func (FrameCodec) Name() string {
	return "warpfront-frame"
}

// GameServer is implemented by Service.
type GameServer interface {
	Handle(ctx context.Context, op Operation, req *wire.Request) *wire.Response
}

// ServiceDesc describes the game service without generated stubs.
func ServiceDesc() *grpc.ServiceDesc {
	methods := make([]grpc.MethodDesc, 0, len(Operations))
	for _, op := range Operations {
		methods = append(methods, grpc.MethodDesc{
			MethodName: grpcMethodNames[op],
			Handler:    methodHandler(op),
		})
	}
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*GameServer)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "warpfront/v1/game.proto",
	}
}

func methodHandler(op Operation) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Frame)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := func(ctx context.Context, req any) (any, error) {
			return serveFrame(ctx, srv.(GameServer), op, req.(*Frame))
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(op)}
		return interceptor(ctx, in, info, call)
	}
}

// serveFrame answers with a Frame on success. Failed calls become gRPC
// status errors so generic tooling sees the right code.
func serveFrame(ctx context.Context, srv GameServer, op Operation, in *Frame) (*Frame, error) {
	var req wire.Request
	if err := wire.Unpack(in.Data, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp := srv.Handle(ctx, op, &req)
	if !resp.OK() {
		return nil, status.Error(CodeFor(resp.Status), resp.Error)
	}
	data, err := wire.Pack(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &Frame{Data: data}, nil
}

// CodeFor maps a wire status to a gRPC code.
func CodeFor(s int) codes.Code {
	switch s {
	case wire.StatusOK:
		return codes.OK
	case wire.StatusBadRequest:
		return codes.InvalidArgument
	case wire.StatusUnauthorized:
		return codes.Unauthenticated
	case wire.StatusNotFound:
		return codes.NotFound
	case wire.StatusConflict:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// StatusForCode is the inverse of CodeFor.
func StatusForCode(c codes.Code) int {
	switch c {
	case codes.OK:
		return wire.StatusOK
	case codes.InvalidArgument:
		return wire.StatusBadRequest
	case codes.Unauthenticated:
		return wire.StatusUnauthorized
	case codes.NotFound:
		return wire.StatusNotFound
	case codes.ResourceExhausted:
		return wire.StatusConflict
	default:
		return wire.StatusInternal
	}
}

// NewGRPCServer builds a gRPC server with the game service registered.
func NewGRPCServer(svc GameServer, logger *zap.Logger, maxConcurrentStreams int) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(FrameCodec{}),
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	if maxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(maxConcurrentStreams)))
	}
	s := grpc.NewServer(opts...)
	s.RegisterService(ServiceDesc(), svc)
	return s
}

// RecoveryInterceptor converts handler panics into Internal errors.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				logger.Error("panic recovered",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.String("stack", string(buf[:n])),
				)
				err = status.Errorf(codes.Internal, "internal error: %v", r)
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor attaches a request id and logs each call.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(requestIDMetadata); len(values) > 0 {
				id = values[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		ctx = context.WithValue(ctx, requestIDCtxKey, id)

		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if p, ok := peer.FromContext(ctx); ok {
			fields = append(fields, zap.String("peer", p.Addr.String()))
		}
		logger.Debug("grpc request", fields...)
		return resp, err
	}
}
