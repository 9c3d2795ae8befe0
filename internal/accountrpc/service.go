// Package accountrpc is the gRPC contract of the account service. Requests
// and responses travel as google.protobuf.Struct values holding the JSON
// form of the message types in messages.go, so no generated code is needed.
package accountrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "gatekeeper.AccountService"

const (
	MethodPing            = "Ping"
	MethodRegister        = "Register"
	MethodLogin           = "Login"
	MethodLogout          = "Logout"
	MethodCurrentIdentity = "CurrentIdentity"
	MethodUpdateProfile   = "UpdateProfile"
	MethodGetAccountView  = "GetAccountView"
	MethodAvatarUploadURL = "AvatarUploadURL"
	MethodAvatarURL       = "AvatarURL"
	MethodAdminCreate     = "AdminCreate"
	MethodGetAccount      = "GetAccount"
	MethodUpdateAccount   = "UpdateAccount"
	MethodSave            = "Save"
	MethodDeleteAccount   = "DeleteAccount"
	MethodListAccounts    = "ListAccounts"
)

// FullMethod returns the gRPC full method name, e.g.
// "/gatekeeper.AccountService/Login".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// AccountServiceServer is implemented by the server transport.
type AccountServiceServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CurrentIdentity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccountView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AvatarUploadURL(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AvatarURL(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AdminCreate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Save(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAccounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(AccountServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AccountServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AccountServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes AccountService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, AccountServiceServer.Ping),
		unary(MethodRegister, AccountServiceServer.Register),
		unary(MethodLogin, AccountServiceServer.Login),
		unary(MethodLogout, AccountServiceServer.Logout),
		unary(MethodCurrentIdentity, AccountServiceServer.CurrentIdentity),
		unary(MethodUpdateProfile, AccountServiceServer.UpdateProfile),
		unary(MethodGetAccountView, AccountServiceServer.GetAccountView),
		unary(MethodAvatarUploadURL, AccountServiceServer.AvatarUploadURL),
		unary(MethodAvatarURL, AccountServiceServer.AvatarURL),
		unary(MethodAdminCreate, AccountServiceServer.AdminCreate),
		unary(MethodGetAccount, AccountServiceServer.GetAccount),
		unary(MethodUpdateAccount, AccountServiceServer.UpdateAccount),
		unary(MethodSave, AccountServiceServer.Save),
		unary(MethodDeleteAccount, AccountServiceServer.DeleteAccount),
		unary(MethodListAccounts, AccountServiceServer.ListAccounts),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gatekeeper/account_service",
}

func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// AccountServiceClient calls AccountService methods by name. Use Encode and
// Decode to move between message types and Struct values.
type AccountServiceClient interface {
	Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type accountServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAccountServiceClient(cc grpc.ClientConnInterface) AccountServiceClient {
	return &accountServiceClient{cc: cc}
}

func (c *accountServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
