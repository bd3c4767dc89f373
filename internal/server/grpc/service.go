package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Full method names of the Synthesizer service.
const (
	ServiceName              = "voicemagic.v1.Synthesizer"
	SynthesizeFullMethodName = "/" + ServiceName + "/Synthesize"
	ListVoicesFullMethodName = "/" + ServiceName + "/ListVoices"
)

// Response header keys set by Synthesize.
const (
	HeaderArtifactID  = "x-artifact-id"
	HeaderVoiceID     = "x-voice-id"
	HeaderContentType = "x-content-type"
)

// SynthesizerServer is the server API for the Synthesizer service. Messages
// are protobuf well-known types so no generated code is needed.
//
// Synthesize takes a Struct with the string fields text, voice, rate, volume
// and pitch and returns the MP3 bytes. ListVoices returns a list of structs
// with name, id, locale and gender.
type SynthesizerServer interface {
	Synthesize(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	ListVoices(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

// RegisterSynthesizerServer registers srv on s.
func RegisterSynthesizerServer(s grpc.ServiceRegistrar, srv SynthesizerServer) {
	s.RegisterService(&synthesizerServiceDesc, srv)
}

func synthesizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SynthesizerServer).Synthesize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SynthesizeFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SynthesizerServer).Synthesize(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listVoicesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SynthesizerServer).ListVoices(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListVoicesFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SynthesizerServer).ListVoices(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var synthesizerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SynthesizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Synthesize", Handler: synthesizeHandler},
		{MethodName: "ListVoices", Handler: listVoicesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voicemagic/v1/synthesizer.proto",
}

// Client calls the Synthesizer service over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a new Client instance.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Synthesize calls Synthesizer/Synthesize.
func (c *Client) Synthesize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, SynthesizeFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVoices calls Synthesizer/ListVoices.
func (c *Client) ListVoices(ctx context.Context, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, ListVoicesFullMethodName, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
