package grpc

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/accountrpc"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type counterIDs struct{ n int64 }

func (c *counterIDs) Next() (int64, error) {
	c.n++
	return 2_000_000_000 + c.n, nil
}

type avatarStub struct{}

func (avatarStub) UploadURL(_ context.Context, id int64) (string, string, error) {
	key := fmt.Sprintf("avatars/%d/k", id)
	return key, "https://s3.local/put/" + key, nil
}

func (avatarStub) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://s3.local/get/" + key, nil
}

type harness struct {
	client   accountrpc.AccountServiceClient
	identity *services.IdentityService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{CredentialSalt: "salt", DefaultCredential: "12345678"}
	identity := services.NewIdentityService(accounts.NewMemoryRepository(), sessions.NewMemoryStore(time.Hour), &counterIDs{}, cfg, nil)

	s := NewGRPCServer("bufnet", logging.Nop{}, identity, avatarStub{}, &observerStub{}, "secret", time.Hour)

	lis := bufconn.Listen(1 << 20)
	srv := s.NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &harness{client: accountrpc.NewAccountServiceClient(conn), identity: identity}
}

func (h *harness) call(t *testing.T, token, method string, in, out any) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.SessionTokenHeaderName, token)
	}

	req, err := accountrpc.Encode(in)
	require.NoError(t, err)
	resp, err := h.client.Call(ctx, method, req)
	if err != nil {
		return err
	}
	if out != nil {
		require.NoError(t, accountrpc.Decode(resp, out))
	}
	return nil
}

func (h *harness) login(t *testing.T, handle, credential string) string {
	t.Helper()
	var header metadata.MD
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := accountrpc.Encode(accountrpc.LoginRequest{Handle: handle, Credential: credential})
	require.NoError(t, err)
	resp, err := h.client.Call(ctx, accountrpc.MethodLogin, req, grpc.Header(&header))
	require.NoError(t, err)

	var out accountrpc.LoginResponse
	require.NoError(t, accountrpc.Decode(resp, &out))
	require.NotEmpty(t, out.Token)
	assert.Equal(t, []string{out.Token}, header.Get(common.SessionTokenHeaderName))
	assert.Len(t, header.Get(common.RequestIDHeaderName), 1)
	assert.Equal(t, handle, out.Account.Handle)
	return out.Token
}

func TestHandlers_UserFlow(t *testing.T) {
	h := newHarness(t)

	var pong accountrpc.PingResponse
	require.NoError(t, h.call(t, "", accountrpc.MethodPing, accountrpc.Empty{}, &pong))
	assert.Equal(t, "ok", pong.Status)

	var reg accountrpc.IDResponse
	require.NoError(t, h.call(t, "", accountrpc.MethodRegister,
		accountrpc.RegisterRequest{Handle: "alice1", Credential: "password1", Confirm: "password1"}, &reg))
	assert.Equal(t, int64(2_000_000_001), reg.ID)

	err := h.call(t, "", accountrpc.MethodRegister,
		accountrpc.RegisterRequest{Handle: "alice1", Credential: "password1", Confirm: "password1"}, nil)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	err = h.call(t, "", accountrpc.MethodRegister,
		accountrpc.RegisterRequest{Handle: "al", Credential: "password1", Confirm: "password1"}, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = h.call(t, "", accountrpc.MethodLogin, accountrpc.LoginRequest{Handle: "alice1", Credential: "wrongpass"}, nil)
	assert.Equal(t, codes.NotFound, status.Code(err))

	token := h.login(t, "alice1", "password1")

	var me accountrpc.Account
	require.NoError(t, h.call(t, token, accountrpc.MethodCurrentIdentity, accountrpc.Empty{}, &me))
	assert.Equal(t, reg.ID, me.ID)
	assert.Equal(t, "user", me.Role)

	name := "Alice"
	var ok accountrpc.OKResponse
	require.NoError(t, h.call(t, token, accountrpc.MethodUpdateProfile, accountrpc.ProfileRequest{DisplayName: &name}, &ok))
	assert.True(t, ok.OK)

	var public accountrpc.Account
	require.NoError(t, h.call(t, "", accountrpc.MethodGetAccountView, accountrpc.IDRequest{ID: reg.ID}, &public))
	assert.Equal(t, "Alice", public.DisplayName)
	assert.Nil(t, public.UpdatedAt)

	err = h.call(t, "", accountrpc.MethodAvatarURL, accountrpc.IDRequest{ID: reg.ID}, nil)
	assert.Equal(t, codes.NotFound, status.Code(err))

	var upload accountrpc.AvatarUploadResponse
	require.NoError(t, h.call(t, token, accountrpc.MethodAvatarUploadURL, accountrpc.Empty{}, &upload))
	assert.Equal(t, fmt.Sprintf("avatars/%d/k", reg.ID), upload.Key)

	var url accountrpc.URLResponse
	require.NoError(t, h.call(t, "", accountrpc.MethodAvatarURL, accountrpc.IDRequest{ID: reg.ID}, &url))
	assert.Equal(t, "https://s3.local/get/"+upload.Key, url.URL)

	err = h.call(t, token, accountrpc.MethodListAccounts, accountrpc.ListRequest{}, nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	require.NoError(t, h.call(t, token, accountrpc.MethodLogout, accountrpc.Empty{}, &ok))
	assert.True(t, ok.OK)

	err = h.call(t, token, accountrpc.MethodCurrentIdentity, accountrpc.Empty{}, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = h.call(t, "", accountrpc.MethodLogout, accountrpc.Empty{}, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHandlers_AdminFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, created, err := h.identity.EnsureAdmin(ctx, "admin", "secretpassword")
	require.NoError(t, err)
	require.True(t, created)

	admin := h.login(t, "admin", "secretpassword")

	var created1 accountrpc.IDResponse
	require.NoError(t, h.call(t, admin, accountrpc.MethodAdminCreate,
		accountrpc.NewAccountRequest{Handle: "bobby1", DisplayName: "Bob"}, &created1))

	err = h.call(t, admin, accountrpc.MethodAdminCreate, accountrpc.NewAccountRequest{Handle: "carol1", Role: "root"}, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	// default credential
	bob := h.login(t, "bobby1", "12345678")
	assert.NotEmpty(t, bob)

	var full accountrpc.Account
	require.NoError(t, h.call(t, admin, accountrpc.MethodGetAccount, accountrpc.IDRequest{ID: created1.ID}, &full))
	assert.Equal(t, "Bob", full.DisplayName)
	assert.NotNil(t, full.UpdatedAt)
	assert.NotNil(t, full.EditedAt)

	role := "admin"
	var ok accountrpc.OKResponse
	require.NoError(t, h.call(t, admin, accountrpc.MethodUpdateAccount, accountrpc.UpdateAccountRequest{ID: created1.ID, Role: &role}, &ok))

	require.NoError(t, h.call(t, admin, accountrpc.MethodSave, accountrpc.SaveRequest{ID: created1.ID, ProfileText: "hello"}, &ok))

	var page accountrpc.Page
	require.NoError(t, h.call(t, admin, accountrpc.MethodListAccounts, accountrpc.ListRequest{Role: "admin"}, &page))
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.PageNo)
	assert.Equal(t, 10, page.PageSize)
	require.Len(t, page.Records, 2)

	require.NoError(t, h.call(t, admin, accountrpc.MethodDeleteAccount, accountrpc.IDRequest{ID: created1.ID}, &ok))
	assert.True(t, ok.OK)

	err = h.call(t, "", accountrpc.MethodGetAccountView, accountrpc.IDRequest{ID: created1.ID}, nil)
	assert.Equal(t, codes.NotFound, status.Code(err))

	// the deleted account's session no longer resolves
	err = h.call(t, bob, accountrpc.MethodCurrentIdentity, accountrpc.Empty{}, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHandlers_LoginReusesCallerSession(t *testing.T) {
	h := newHarness(t)

	var reg accountrpc.IDResponse
	require.NoError(t, h.call(t, "", accountrpc.MethodRegister,
		accountrpc.RegisterRequest{Handle: "dave01", Credential: "password1", Confirm: "password1"}, &reg))

	first := h.login(t, "dave01", "password1")

	var out accountrpc.LoginResponse
	require.NoError(t, h.call(t, first, accountrpc.MethodLogin, accountrpc.LoginRequest{Handle: "dave01", Credential: "password1"}, &out))

	firstID, err := auth.GetSessionIDFromToken(first, []byte("secret"))
	require.NoError(t, err)
	secondID, err := auth.GetSessionIDFromToken(out.Token, []byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID)
}
