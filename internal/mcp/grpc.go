// ABOUTME: gRPC binding for the dispatcher using a hand-written service descriptor.
// ABOUTME: Requests and responses travel as JSON inside google.protobuf.BytesValue.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPCServiceName is the fully-qualified gRPC service name.
const GRPCServiceName = "coven.mcp.v1.Dispatcher"

// GRPCProcessMethod is the full method name of the unary Process call.
const GRPCProcessMethod = "/" + GRPCServiceName + "/Process"

// grpcSessionKey is SessionHeader as gRPC metadata (always lowercase).
var grpcSessionKey = strings.ToLower(SessionHeader)

// ProcessServer is the server API of the gRPC Dispatcher service.
type ProcessServer interface {
	Process(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// ServiceDesc describes the Dispatcher service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: GRPCServiceName,
	HandlerType: (*ProcessServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Process",
			Handler:    processHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coven/mcp/v1/dispatcher.proto",
}

func processHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProcessServer).Process(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GRPCProcessMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProcessServer).Process(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterGRPC registers the dispatcher on a gRPC server.
func RegisterGRPC(s grpc.ServiceRegistrar, d *Dispatcher, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.RegisterService(&ServiceDesc, &grpcService{
		dispatcher: d,
		logger:     logger.With("component", "mcp-grpc"),
	})
}

type grpcService struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func (s *grpcService) Process(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req *Request
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid JSON-RPC request: %v", err)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	rc := &grpcContext{ctx: ctx, md: md, logger: s.logger}

	resp, err := s.dispatcher.Process(rc, req)
	if err != nil {
		if errors.Is(err, ErrMalformedRequest) {
			return nil, status.Error(codes.InvalidArgument, "Malformed request")
		}
		return nil, status.Errorf(codes.Internal, "process: %v", err)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "marshal response: %v", err)
	}
	return wrapperspb.Bytes(data), nil
}

// grpcContext adapts incoming metadata and response headers to RequestContext.
type grpcContext struct {
	ctx    context.Context
	md     metadata.MD
	logger *slog.Logger
}

func (c *grpcContext) Context() context.Context { return c.ctx }

func (c *grpcContext) Header(key string) string {
	if vals := c.md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (c *grpcContext) SetHeader(key, value string) {
	if err := grpc.SetHeader(c.ctx, metadata.Pairs(strings.ToLower(key), value)); err != nil {
		c.logger.Warn("failed to set gRPC header", "key", key, "error", err)
	}
}

// GRPCClient calls a remote dispatcher over gRPC.
type GRPCClient struct {
	conn grpc.ClientConnInterface
}

// NewGRPCClient wraps an established connection.
func NewGRPCClient(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// Call sends one request. sessionID, when non-empty, is sent as the session
// header; the returned string is the session id the server echoed, if any.
func (c *GRPCClient) Call(ctx context.Context, req *Request, sessionID string) (*Response, string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}

	if sessionID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, grpcSessionKey, sessionID)
	}

	var header metadata.MD
	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, GRPCProcessMethod, wrapperspb.Bytes(data), out, grpc.Header(&header)); err != nil {
		return nil, "", err
	}

	var resp Response
	if err := json.Unmarshal(out.GetValue(), &resp); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}

	var echoed string
	if vals := header.Get(grpcSessionKey); len(vals) > 0 {
		echoed = vals[0]
	}
	return &resp, echoed, nil
}
