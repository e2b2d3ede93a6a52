package grpc

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"user-query-service/internal/usecase/user"
	apperrors "user-query-service/pkg/errors"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "userquery.v1.UserQueryService"

// QueryService is the server API of the user query service.
type QueryService interface {
	CreateUser(context.Context, *structpb.Struct) (*wrapperspb.Int64Value, error)
	GetUser(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	FirstNamesReverseSorted(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	SortByAgeDescThenNameAsc(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	DistinctPrivileges(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	FirstUpdateUserOlderThan(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	GroupByPrivilegeCount(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AverageAge(context.Context, *emptypb.Empty) (*wrapperspb.DoubleValue, error)
	MostFrequentLastName(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	FilterUsers(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	ConvertUsers(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	GroupByPrivilege(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CountByLastName(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes UserQueryService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueryService)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateUser", QueryService.CreateUser),
		unary("GetUser", QueryService.GetUser),
		unary("FirstNamesReverseSorted", QueryService.FirstNamesReverseSorted),
		unary("SortByAgeDescThenNameAsc", QueryService.SortByAgeDescThenNameAsc),
		unary("DistinctPrivileges", QueryService.DistinctPrivileges),
		unary("FirstUpdateUserOlderThan", QueryService.FirstUpdateUserOlderThan),
		unary("GroupByPrivilegeCount", QueryService.GroupByPrivilegeCount),
		unary("AverageAge", QueryService.AverageAge),
		unary("MostFrequentLastName", QueryService.MostFrequentLastName),
		unary("FilterUsers", QueryService.FilterUsers),
		unary("ConvertUsers", QueryService.ConvertUsers),
		unary("GroupByPrivilege", QueryService.GroupByPrivilege),
		unary("CountByLastName", QueryService.CountByLastName),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "userquery/v1/user_query.proto",
}

// FullMethod returns the full RPC name of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds the method descriptor of a unary RPC from a QueryService method expression.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](method string, call func(QueryService, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(QueryService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(QueryService), ctx, req.(PReq))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Register registers srv on s under ServiceDesc.
func Register(s grpc.ServiceRegistrar, srv QueryService) {
	s.RegisterService(&ServiceDesc, srv)
}

// QueryServiceServer implements the gRPC user query service
type QueryServiceServer struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewQueryServiceServer creates a new gRPC user query service server
func NewQueryServiceServer(uc user.Usecase, log *zap.Logger) *QueryServiceServer {
	return &QueryServiceServer{uc: uc, log: log}
}

var _ QueryService = (*QueryServiceServer)(nil)

// fail logs err and converts it to a gRPC status.
func (s *QueryServiceServer) fail(method string, err error) error {
	s.log.Warn("gRPC request failed", zap.String("method", method), zap.Error(err))
	return apperrors.ToGRPC(err)
}

// CreateUser handles gRPC CreateUser request
func (s *QueryServiceServer) CreateUser(ctx context.Context, req *structpb.Struct) (*wrapperspb.Int64Value, error) {
	in, err := createRequestFromStruct(req)
	if err != nil {
		return nil, s.fail("CreateUser", err)
	}

	resp, err := s.uc.CreateUser(ctx, in)
	if err != nil {
		return nil, s.fail("CreateUser", err)
	}
	return wrapperspb.Int64(resp.ID), nil
}

// GetUser handles gRPC GetUser request
func (s *QueryServiceServer) GetUser(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	resp, err := s.uc.GetUser(ctx, user.GetUserRequest{ID: req.GetValue()})
	if err != nil {
		return nil, s.fail("GetUser", err)
	}

	out := userToStruct(resp.User)
	out.Fields["id"] = structpb.NewNumberValue(float64(resp.ID))
	return out, nil
}

// FirstNamesReverseSorted handles gRPC FirstNamesReverseSorted request
func (s *QueryServiceServer) FirstNamesReverseSorted(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	names, err := s.uc.FirstNamesReverseSorted(ctx)
	if err != nil {
		return nil, s.fail("FirstNamesReverseSorted", err)
	}
	return stringList(names), nil
}

// SortByAgeDescThenNameAsc handles gRPC SortByAgeDescThenNameAsc request
func (s *QueryServiceServer) SortByAgeDescThenNameAsc(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	users, err := s.uc.SortByAgeDescThenNameAsc(ctx)
	if err != nil {
		return nil, s.fail("SortByAgeDescThenNameAsc", err)
	}
	return userList(users), nil
}

// DistinctPrivileges handles gRPC DistinctPrivileges request
func (s *QueryServiceServer) DistinctPrivileges(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	privileges, err := s.uc.DistinctPrivileges(ctx)
	if err != nil {
		return nil, s.fail("DistinctPrivileges", err)
	}
	return stringList(privileges), nil
}

// FirstUpdateUserOlderThan handles gRPC FirstUpdateUserOlderThan request
func (s *QueryServiceServer) FirstUpdateUserOlderThan(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	u, err := s.uc.FirstUpdateUserOlderThan(ctx, int(req.GetValue()))
	if err != nil {
		return nil, s.fail("FirstUpdateUserOlderThan", err)
	}
	if u == nil {
		return nil, status.Errorf(codes.NotFound, "no user with UPDATE privilege older than %d", req.GetValue())
	}
	return userToStruct(*u), nil
}

// GroupByPrivilegeCount handles gRPC GroupByPrivilegeCount request
func (s *QueryServiceServer) GroupByPrivilegeCount(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	groups, err := s.uc.GroupByPrivilegeCount(ctx)
	if err != nil {
		return nil, s.fail("GroupByPrivilegeCount", err)
	}

	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(groups))}
	for n, users := range groups {
		out.Fields[strconv.Itoa(n)] = structpb.NewListValue(userList(users))
	}
	return out, nil
}

// AverageAge handles gRPC AverageAge request
func (s *QueryServiceServer) AverageAge(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.DoubleValue, error) {
	resp, err := s.uc.AverageAge(ctx)
	if err != nil {
		return nil, s.fail("AverageAge", err)
	}
	if !resp.Found {
		return nil, status.Error(codes.NotFound, "roster is empty")
	}
	return wrapperspb.Double(resp.Average), nil
}

// MostFrequentLastName handles gRPC MostFrequentLastName request
func (s *QueryServiceServer) MostFrequentLastName(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	resp, err := s.uc.MostFrequentLastName(ctx)
	if err != nil {
		return nil, s.fail("MostFrequentLastName", err)
	}
	if !resp.Found {
		return nil, status.Error(codes.NotFound, "no unique most frequent last name")
	}
	return wrapperspb.String(resp.LastName), nil
}

// FilterUsers handles gRPC FilterUsers request
func (s *QueryServiceServer) FilterUsers(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	in, err := filterRequestFromStruct(req)
	if err != nil {
		return nil, s.fail("FilterUsers", err)
	}

	users, err := s.uc.FilterUsers(ctx, in)
	if err != nil {
		return nil, s.fail("FilterUsers", err)
	}
	return userList(users), nil
}

// ConvertUsers handles gRPC ConvertUsers request
func (s *QueryServiceServer) ConvertUsers(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	delimiter, err := stringField(fields, "delimiter")
	if err != nil {
		return nil, s.fail("ConvertUsers", err)
	}
	format, err := stringField(fields, "format")
	if err != nil {
		return nil, s.fail("ConvertUsers", err)
	}

	out, err := s.uc.ConvertUsers(ctx, user.ConvertRequest{Delimiter: delimiter, Format: format})
	if err != nil {
		return nil, s.fail("ConvertUsers", err)
	}
	return wrapperspb.String(out), nil
}

// GroupByPrivilege handles gRPC GroupByPrivilege request
func (s *QueryServiceServer) GroupByPrivilege(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	groups, err := s.uc.GroupByPrivilege(ctx)
	if err != nil {
		return nil, s.fail("GroupByPrivilege", err)
	}

	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(groups))}
	for p, users := range groups {
		out.Fields[p] = structpb.NewListValue(userList(users))
	}
	return out, nil
}

// CountByLastName handles gRPC CountByLastName request
func (s *QueryServiceServer) CountByLastName(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	counts, err := s.uc.CountByLastName(ctx)
	if err != nil {
		return nil, s.fail("CountByLastName", err)
	}

	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(counts))}
	for name, n := range counts {
		out.Fields[name] = structpb.NewNumberValue(float64(n))
	}
	return out, nil
}
