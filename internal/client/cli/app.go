package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/accountrpc"
	"github.com/dmitrijs2005/gatekeeper/internal/client/client"
	"github.com/dmitrijs2005/gatekeeper/internal/client/config"
)

type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// API is the server surface the CLI uses. *client.GRPCClient implements it.
type API interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, handle, credential, confirm string) (int64, error)
	Login(ctx context.Context, handle, credential string) (*accountrpc.Account, error)
	Logout(ctx context.Context) error
	CurrentIdentity(ctx context.Context) (*accountrpc.Account, error)
	UpdateProfile(ctx context.Context, req accountrpc.ProfileRequest) error
	AvatarUploadURL(ctx context.Context) (string, string, error)
	ListAccounts(ctx context.Context, req accountrpc.ListRequest) (*accountrpc.Page, error)
	DeleteAccount(ctx context.Context, id int64) error
	Close() error
}

type App struct {
	config  *config.Config
	api     API
	reader  *bufio.Reader
	out     io.Writer
	account *accountrpc.Account
	mode    atomic.Value
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}

	return newApp(c, apiClient, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api API, in io.Reader, out io.Writer) *App {
	a := &App{config: c, api: api, reader: bufio.NewReader(in), out: out}
	a.mode.Store(ModeOnline)
	return a
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

// withTimeout bounds a single server call.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) setMode(mode Mode) {
	if prev := a.mode.Swap(mode); prev != mode {
		a.printf("Switched to %s mode", mode)
	}
}

func (a *App) getMode() Mode {
	return a.mode.Load().(Mode)
}

func (a *App) isLoggedIn() bool {
	return a.account != nil
}

func (a *App) getStatus() string {
	s := string(a.getMode())
	if a.account != nil {
		s = a.account.Handle + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

// StartOnlineStatusWatcher pings the server every interval until ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.api.Ping(pctx)
			cancel()
			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Run starts the status watcher and the REPL and returns when the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.api.Close()

	a.printf("Welcome to Gatekeeper CLI (type 'help' for commands)")

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
