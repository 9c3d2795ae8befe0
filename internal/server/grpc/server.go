// Package grpc exposes the identity service over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/accountrpc"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"google.golang.org/grpc"
)

// IdentityGate is the part of services.IdentityService the transport uses.
type IdentityGate interface {
	Register(ctx context.Context, handle, credential, confirm string) (int64, error)
	Login(ctx context.Context, handle, credential, sessionID string) (*models.AccountView, error)
	Logout(ctx context.Context, sessionID string) (bool, error)
	CurrentIdentity(ctx context.Context, sessionID string) (*models.Account, error)
	Authorize(ctx context.Context, sessionID string, required models.Role) (*models.Account, error)
	Delete(ctx context.Context, id int64) error
	UpdateProfile(ctx context.Context, sessionID string, upd models.ProfileUpdate) error
	UpdateAccount(ctx context.Context, upd models.AccountUpdate) error
	AdminCreate(ctx context.Context, n models.NewAccount) (int64, error)
	Save(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context, filter models.AccountFilter, pageNo, pageSize int) (*models.Page, error)
}

// AvatarStore presigns avatar object URLs.
type AvatarStore interface {
	UploadURL(ctx context.Context, accountID int64) (string, string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

// RequestObserver records per-call metrics.
type RequestObserver interface {
	ObserveRequest(method, code string, d time.Duration)
}

type GRPCServer struct {
	address    string
	identity   IdentityGate
	avatars    AvatarStore
	observer   RequestObserver
	logger     logging.Logger
	jwtSecret  []byte
	sessionTTL time.Duration
}

func NewGRPCServer(a string, l logging.Logger, identity IdentityGate, avatars AvatarStore, observer RequestObserver,
	secretKey string, sessionTTL time.Duration) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		identity:   identity,
		avatars:    avatars,
		observer:   observer,
		jwtSecret:  []byte(secretKey),
		sessionTTL: sessionTTL,
	}
}

// NewServer builds a grpc.Server with the interceptor chain and the account
// service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.requestInterceptor, s.sessionInterceptor, s.adminInterceptor))
	srv := grpc.NewServer(opts...)
	accountrpc.RegisterAccountServiceServer(srv, s)
	return srv
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
