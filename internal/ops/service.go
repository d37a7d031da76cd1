// Package ops exposes operator RPCs over gRPC using well-known message types,
// so no generated code is needed.
package ops

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"leasing-site-api/internal/middleware"
	"leasing-site-api/internal/model"
	"leasing-site-api/internal/store"
)

const (
	ServiceName    = "leasing.ops.v1.OpsService"
	StatsMethod    = "/" + ServiceName + "/Stats"
	SetAdminMethod = "/" + ServiceName + "/SetAdmin"
)

type Store interface {
	OpsStats(ctx context.Context) (*model.OpsStats, error)
	ProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	SetAdminByEmail(ctx context.Context, email string, admin bool) (*model.Profile, error)
}

type OpsServer interface {
	Stats(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	SetAdmin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type Server struct {
	store Store
	log   *zap.Logger
}

func NewServer(st Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: st, log: log}
}

func (s *Server) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.store.OpsStats(ctx)
	if err != nil {
		s.log.Error("ops stats", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	byStatus := make(map[string]any, len(st.BookingsStatus))
	for k, v := range st.BookingsStatus {
		byStatus[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"profiles":           st.Profiles,
		"admins":             st.Admins,
		"events_last_24h":    st.EventsLast24h,
		"bookings_by_status": byStatus,
	})
}

// SetAdmin grants or revokes the admin flag: {"email": "...", "is_admin": true}.
func (s *Server) SetAdmin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	email := strings.TrimSpace(fields["email"].GetStringValue())
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, status.Error(codes.InvalidArgument, "valid email required")
	}
	flag, ok := fields["is_admin"].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "is_admin must be a bool")
	}
	if !flag.BoolValue {
		if err := s.guardSelfRevoke(ctx, email); err != nil {
			return nil, err
		}
	}

	p, err := s.store.SetAdminByEmail(ctx, email, flag.BoolValue)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "no such user")
	}
	if err != nil {
		s.log.Error("set admin", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	s.log.Info("admin flag changed", zap.String("user_id", p.ID), zap.Bool("is_admin", p.IsAdmin))
	return structpb.NewStruct(map[string]any{
		"id":       p.ID,
		"email":    p.Email,
		"is_admin": p.IsAdmin,
	})
}

// guardSelfRevoke keeps the calling admin from demoting themselves.
func (s *Server) guardSelfRevoke(ctx context.Context, email string) error {
	caller := middleware.UserIDFrom(ctx)
	if caller == "" {
		return nil
	}
	target, err := s.store.ProfileByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, "no such user")
	case err != nil:
		s.log.Error("load profile", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	case target.ID == caller:
		return status.Error(codes.FailedPrecondition, "cannot revoke your own admin role")
	}
	return nil
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OpsServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StatsMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OpsServer).Stats(ctx, req.(*emptypb.Empty))
	})
}

func setAdminHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OpsServer).SetAdmin(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SetAdminMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OpsServer).SetAdmin(ctx, req.(*structpb.Struct))
	})
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OpsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Stats", Handler: statsHandler},
		{MethodName: "SetAdmin", Handler: setAdminHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "leasing/ops/v1/ops.proto",
}

func RegisterOpsServer(s grpc.ServiceRegistrar, srv OpsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the ops service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Stats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, StatsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetAdmin(ctx context.Context, email string, admin bool, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"email": email, "is_admin": admin})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SetAdminMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
