package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gatekeeper/internal/client/client"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

func (a *App) Register(ctx context.Context) error {
	handle, err := GetSimpleText(a.reader, "Enter handle", a.out)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}

	credential, err := GetPassword("Enter credential", a.out)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}
	defer common.WipeByteArray(credential)

	confirm, err := GetPassword("Repeat credential", a.out)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}
	defer common.WipeByteArray(confirm)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	id, err := a.api.Register(ctx, handle, string(credential), string(confirm))
	if err != nil {
		a.printf("Registration failed: %v", err)
		return err
	}

	a.printf("Registered account %d, you can login now", id)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	handle, err := GetSimpleText(a.reader, "Enter handle", a.out)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}

	credential, err := GetPassword("Enter credential", a.out)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}
	defer common.WipeByteArray(credential)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	account, err := a.api.Login(ctx, handle, string(credential))
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			a.printf("Login unsuccessful: wrong handle or credential")
		} else {
			a.printf("Login unsuccessful: %v", err)
		}
		return err
	}

	a.account = account
	a.printf("Login successful, welcome %s", account.Handle)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	err := a.api.Logout(ctx)
	a.account = nil
	if err != nil && !errors.Is(err, client.ErrUnauthorized) {
		a.printf("Logout failed: %v", err)
		return err
	}

	a.printf("Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	account, err := a.api.CurrentIdentity(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.account = nil
			a.printf("Not logged in")
		} else {
			a.printf("error: %v", err)
		}
		return err
	}

	a.account = account
	a.printf("%d %s (%s)", account.ID, account.Handle, account.Role)
	if account.DisplayName != "" {
		a.printf("  name:    %s", account.DisplayName)
	}
	if account.ProfileText != "" {
		a.printf("  profile: %s", account.ProfileText)
	}
	if account.AvatarRef != "" {
		a.printf("  avatar:  %s", account.AvatarRef)
	}
	a.printf("  since:   %s", account.CreatedAt.Format("2006-01-02 15:04"))
	return nil
}
