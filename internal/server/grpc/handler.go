package grpc

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/accountrpc"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func viewMessage(v *models.AccountView) *accountrpc.Account {
	return &accountrpc.Account{
		ID:          v.ID,
		Handle:      v.Handle,
		DisplayName: v.DisplayName,
		AvatarRef:   v.AvatarRef,
		ProfileText: v.ProfileText,
		Role:        string(v.Role),
		CreatedAt:   v.CreatedAt,
	}
}

// fullMessage includes the bookkeeping fields shown to administrators.
func fullMessage(a *models.Account) *accountrpc.Account {
	m := viewMessage(a.View())
	m.SoftDeleted = a.SoftDeleted
	updated, edited := a.UpdatedAt, a.EditedAt
	m.UpdatedAt, m.EditedAt = &updated, &edited
	return m
}

func parseRole(s string) (models.Role, error) {
	if s == "" {
		return "", nil
	}
	r, err := models.ParseRole(s)
	if err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return r, nil
}

func (s *GRPCServer) decode(in *structpb.Struct, v any) error {
	if err := accountrpc.Decode(in, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func (s *GRPCServer) reply(ctx context.Context, v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out, err := accountrpc.Encode(v)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return out, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.reply(ctx, &accountrpc.PingResponse{Status: "ok"}, nil)
}

func (s *GRPCServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.RegisterRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	id, err := s.identity.Register(ctx, req.Handle, req.Credential, req.Confirm)
	return s.reply(ctx, &accountrpc.IDResponse{ID: id}, err)
}

// Login binds the account to the caller's session, or to a new one when the
// caller has none, and returns the session token both in the body and in the
// response header.
func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.LoginRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}

	sessionID := sessionIDFromContext(ctx)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	view, err := s.identity.Login(ctx, req.Handle, req.Credential, sessionID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	token, err := auth.GenerateToken(sessionID, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(common.SessionTokenHeaderName, token)); err != nil {
		s.logger.Debug(ctx, "failed to set session header", "error", err)
	}

	return s.reply(ctx, &accountrpc.LoginResponse{Token: token, Account: viewMessage(view)}, nil)
}

func (s *GRPCServer) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	ok, err := s.identity.Logout(ctx, sessionIDFromContext(ctx))
	return s.reply(ctx, &accountrpc.OKResponse{OK: ok}, err)
}

func (s *GRPCServer) CurrentIdentity(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	a, err := s.identity.CurrentIdentity(ctx, sessionIDFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.reply(ctx, viewMessage(a.View()), nil)
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.ProfileRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	err := s.identity.UpdateProfile(ctx, sessionIDFromContext(ctx), models.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarRef:   req.AvatarRef,
		ProfileText: req.ProfileText,
	})
	return s.reply(ctx, &accountrpc.OKResponse{OK: err == nil}, err)
}

// GetAccountView returns the public projection of a live account.
func (s *GRPCServer) GetAccountView(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.IDRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	a, err := s.identity.GetAccount(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.reply(ctx, viewMessage(a.View()), nil)
}

// AvatarUploadURL presigns an upload for the caller and records the new
// object key as the caller's avatar.
func (s *GRPCServer) AvatarUploadURL(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sessionID := sessionIDFromContext(ctx)
	a, err := s.identity.CurrentIdentity(ctx, sessionID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	key, url, err := s.avatars.UploadURL(ctx, a.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	err = s.identity.UpdateProfile(ctx, sessionID, models.ProfileUpdate{AvatarRef: &key})
	return s.reply(ctx, &accountrpc.AvatarUploadResponse{Key: key, URL: url}, err)
}

func (s *GRPCServer) AvatarURL(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.IDRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	a, err := s.identity.GetAccount(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if a.AvatarRef == "" {
		return nil, status.Error(codes.NotFound, "account has no avatar")
	}
	url, err := s.avatars.DownloadURL(ctx, a.AvatarRef)
	return s.reply(ctx, &accountrpc.URLResponse{URL: url}, err)
}

func (s *GRPCServer) AdminCreate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.NewAccountRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	id, err := s.identity.AdminCreate(ctx, models.NewAccount{
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		AvatarRef:   req.AvatarRef,
		ProfileText: req.ProfileText,
		Role:        role,
	})
	return s.reply(ctx, &accountrpc.IDResponse{ID: id}, err)
}

func (s *GRPCServer) GetAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.IDRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	a, err := s.identity.GetAccount(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.reply(ctx, fullMessage(a), nil)
}

func (s *GRPCServer) UpdateAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.UpdateAccountRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}

	upd := models.AccountUpdate{
		ID:          req.ID,
		DisplayName: req.DisplayName,
		AvatarRef:   req.AvatarRef,
		ProfileText: req.ProfileText,
	}
	if req.Role != nil {
		role, err := models.ParseRole(*req.Role)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		upd.Role = &role
	}

	err := s.identity.UpdateAccount(ctx, upd)
	return s.reply(ctx, &accountrpc.OKResponse{OK: err == nil}, err)
}

func (s *GRPCServer) Save(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.SaveRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	err = s.identity.Save(ctx, &models.Account{
		ID:          req.ID,
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		AvatarRef:   req.AvatarRef,
		ProfileText: req.ProfileText,
		Role:        role,
	})
	return s.reply(ctx, &accountrpc.OKResponse{OK: err == nil}, err)
}

func (s *GRPCServer) DeleteAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.IDRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	err := s.identity.Delete(ctx, req.ID)
	if err == nil {
		if admin := adminFromContext(ctx); admin != nil {
			s.logger.Info(ctx, "account deleted", "id", req.ID, "by", admin.ID)
		}
	}
	return s.reply(ctx, &accountrpc.OKResponse{OK: err == nil}, err)
}

func (s *GRPCServer) ListAccounts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req accountrpc.ListRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}

	page, err := s.identity.ListAccounts(ctx, models.AccountFilter{
		ID:          req.ID,
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		ProfileText: req.ProfileText,
		Role:        role,
	}, req.PageNo, req.PageSize)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := &accountrpc.Page{
		PageNo:     page.PageNo,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Records:    make([]*accountrpc.Account, 0, len(page.Records)),
	}
	for _, v := range page.Records {
		out.Records = append(out.Records, viewMessage(v))
	}
	return s.reply(ctx, out, nil)
}
