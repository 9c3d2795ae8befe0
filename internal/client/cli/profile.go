package cli

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/accountrpc"
	"github.com/dmitrijs2005/gatekeeper/internal/filex"
	"github.com/dmitrijs2005/gatekeeper/internal/netx"
)

const maxAvatarSize = 5 << 20

// uploadFn is a test seam for netx.UploadToS3PresignedURL.
var uploadFn = netx.UploadToS3PresignedURL

// Profile asks for a new display name and profile text. Empty answers keep
// the current values.
func (a *App) Profile(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Display name (empty to keep)", a.out)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}
	text, err := GetSimpleText(a.reader, "Profile text (empty to keep)", a.out)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}

	req := accountrpc.ProfileRequest{}
	if name != "" {
		req.DisplayName = &name
	}
	if text != "" {
		req.ProfileText = &text
	}
	if req.DisplayName == nil && req.ProfileText == nil {
		a.printf("Nothing to update")
		return nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.api.UpdateProfile(ctx, req); err != nil {
		a.printf("Update failed: %v", err)
		return err
	}

	a.printf("Profile updated")
	return nil
}

// Avatar uploads the image at path through a presigned URL.
func (a *App) Avatar(ctx context.Context, path string) error {
	data, contentType, err := filex.ReadLimited(path, maxAvatarSize)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	key, url, err := a.api.AvatarUploadURL(ctx)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}

	if err := uploadFn(ctx, url, data, contentType); err != nil {
		a.printf("Upload failed: %v", err)
		return err
	}

	a.printf("Avatar uploaded (%s, %d bytes) as %s", contentType, len(data), key)
	return nil
}
