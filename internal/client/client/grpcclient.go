package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gatekeeper/internal/accountrpc"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      accountrpc.AccountServiceClient

	mu           sync.RWMutex
	sessionToken string
}

func withSessionToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.SessionTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionToken
}

func (s *GRPCClient) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionToken = token
}

// sessionTokenInterceptor attaches the session token. A session the server
// no longer recognises is forgotten.
func (s *GRPCClient) sessionTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	token := s.token()
	if token != "" {
		ctx = withSessionToken(ctx, token)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if token != "" && status.Code(err) == codes.Unauthenticated {
		s.setToken("")
	}

	return err
}

// NewGRPCClient connects to endpointURL. Extra dial options are appended
// after the defaults.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.sessionTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = accountrpc.NewAccountServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// LoggedIn reports whether a session token is held.
func (s *GRPCClient) LoggedIn() bool {
	return s.token() != ""
}

func (s *GRPCClient) call(ctx context.Context, method string, in, out any) error {
	req, err := accountrpc.Encode(in)
	if err != nil {
		return err
	}

	resp, err := s.client.Call(ctx, method, req)
	if err != nil {
		return s.mapError(err)
	}

	if out == nil {
		return nil
	}
	return accountrpc.Decode(resp, out)
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp accountrpc.PingResponse
	if err := s.call(ctx, accountrpc.MethodPing, accountrpc.Empty{}, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, handle, credential, confirm string) (int64, error) {
	var resp accountrpc.IDResponse
	err := s.call(ctx, accountrpc.MethodRegister,
		accountrpc.RegisterRequest{Handle: handle, Credential: credential, Confirm: confirm}, &resp)
	return resp.ID, err
}

func (s *GRPCClient) Login(ctx context.Context, handle, credential string) (*accountrpc.Account, error) {
	var resp accountrpc.LoginResponse
	if err := s.call(ctx, accountrpc.MethodLogin, accountrpc.LoginRequest{Handle: handle, Credential: credential}, &resp); err != nil {
		return nil, err
	}
	s.setToken(resp.Token)
	return resp.Account, nil
}

// Logout ends the session on the server and forgets the token even when
// the server call fails.
func (s *GRPCClient) Logout(ctx context.Context) error {
	defer s.setToken("")
	return s.call(ctx, accountrpc.MethodLogout, accountrpc.Empty{}, nil)
}

func (s *GRPCClient) CurrentIdentity(ctx context.Context) (*accountrpc.Account, error) {
	var resp accountrpc.Account
	if err := s.call(ctx, accountrpc.MethodCurrentIdentity, accountrpc.Empty{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) UpdateProfile(ctx context.Context, req accountrpc.ProfileRequest) error {
	return s.call(ctx, accountrpc.MethodUpdateProfile, req, nil)
}

func (s *GRPCClient) AvatarUploadURL(ctx context.Context) (string, string, error) {
	var resp accountrpc.AvatarUploadResponse
	if err := s.call(ctx, accountrpc.MethodAvatarUploadURL, accountrpc.Empty{}, &resp); err != nil {
		return "", "", err
	}
	return resp.Key, resp.URL, nil
}

func (s *GRPCClient) AvatarURL(ctx context.Context, id int64) (string, error) {
	var resp accountrpc.URLResponse
	if err := s.call(ctx, accountrpc.MethodAvatarURL, accountrpc.IDRequest{ID: id}, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (s *GRPCClient) ListAccounts(ctx context.Context, req accountrpc.ListRequest) (*accountrpc.Page, error) {
	var resp accountrpc.Page
	if err := s.call(ctx, accountrpc.MethodListAccounts, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) DeleteAccount(ctx context.Context, id int64) error {
	return s.call(ctx, accountrpc.MethodDeleteAccount, accountrpc.IDRequest{ID: id}, nil)
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrForbidden
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
