package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/accountrpc"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/oklog/ulid/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	sessionIDKey ctxKey = "sessionID"
	requestIDKey ctxKey = "requestID"
	accountKey   ctxKey = "account"
)

// Methods callable without a session.
var publicMethods = map[string]struct{}{
	accountrpc.FullMethod(accountrpc.MethodPing):           {},
	accountrpc.FullMethod(accountrpc.MethodRegister):       {},
	accountrpc.FullMethod(accountrpc.MethodLogin):          {},
	accountrpc.FullMethod(accountrpc.MethodGetAccountView): {},
	accountrpc.FullMethod(accountrpc.MethodAvatarURL):      {},
}

// Methods reserved for the admin role.
var adminMethods = map[string]struct{}{
	accountrpc.FullMethod(accountrpc.MethodAdminCreate):   {},
	accountrpc.FullMethod(accountrpc.MethodGetAccount):    {},
	accountrpc.FullMethod(accountrpc.MethodUpdateAccount): {},
	accountrpc.FullMethod(accountrpc.MethodSave):          {},
	accountrpc.FullMethod(accountrpc.MethodDeleteAccount): {},
	accountrpc.FullMethod(accountrpc.MethodListAccounts):  {},
}

func sessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// adminFromContext returns the account resolved by adminInterceptor.
func adminFromContext(ctx context.Context) *models.Account {
	v, _ := ctx.Value(accountKey).(*models.Account)
	return v
}

func incomingValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// requestInterceptor tags the call with a ULID request id, echoes it in the
// response header, logs the outcome and records metrics.
func (s *GRPCServer) requestInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	requestID := ulid.Make().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, requestID))

	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	code := status.Code(err)
	if s.observer != nil {
		s.observer.ObserveRequest(info.FullMethod, code.String(), elapsed)
	}

	args := []any{"method", info.FullMethod, "request_id", requestID, "code", code.String(), "duration", elapsed}
	switch code {
	case codes.OK:
		s.logger.Debug(ctx, "request", args...)
	case codes.Internal, codes.Unavailable:
		s.logger.Error(ctx, "request failed", append(args, "error", err)...)
	default:
		s.logger.Info(ctx, "request rejected", append(args, "error", err)...)
	}

	return resp, err
}

// sessionInterceptor resolves the session token into a session id. Public
// methods tolerate a missing or unusable token; Login then starts a new
// session.
func (s *GRPCServer) sessionInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	_, public := publicMethods[info.FullMethod]

	token := incomingValue(ctx, common.SessionTokenHeaderName)
	if token == "" {
		if public {
			return handler(ctx, req)
		}
		return nil, status.Error(codes.Unauthenticated, "missing session token")
	}

	sessionID, err := auth.GetSessionIDFromToken(token, s.jwtSecret)
	if err != nil {
		if public {
			return handler(ctx, req)
		}
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return handler(context.WithValue(ctx, sessionIDKey, sessionID), req)
}

// adminInterceptor requires the admin role on admin methods.
func (s *GRPCServer) adminInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if _, ok := adminMethods[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	admin, err := s.identity.Authorize(ctx, sessionIDFromContext(ctx), models.RoleAdmin)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return handler(context.WithValue(ctx, accountKey, admin), req)
}
