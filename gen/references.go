package gen

import (
	"context"
	"fmt"

	"AvatarElite/holder"
	"AvatarElite/lib/sl"
	"AvatarElite/storage"
)

// FileFetcher downloads the bytes behind a stored image reference. The
// bot implements it over the Telegram file API.
type FileFetcher interface {
	Fetch(ctx context.Context, fileId string) ([]byte, error)
}

// ResolveAspectRatio picks the output ratio: an explicit setting wins,
// otherwise the first session image dictates it, otherwise square.
// Avatar images never participate here.
func ResolveAspectRatio(setting string, sessionImages []holder.ReferenceImage) string {
	if setting != holder.RatioAuto {
		return setting
	}
	if len(sessionImages) > 0 {
		img := sessionImages[0]
		return fmt.Sprintf("%d:%d", img.Width, img.Height)
	}
	return "1:1"
}

// buildReferenceSet assembles the conditioning images for one request:
// session references first (the first one drives auto ratio), then the
// avatar set fetched fresh when enabled. Avatar downloads that fail are
// skipped, not fatal.
func (o *Orchestrator) buildReferenceSet(ctx context.Context, userId int64, sessionRefs []holder.ReferenceImage, account *storage.Account) [][]byte {
	refs := make([][]byte, 0, len(sessionRefs))
	for _, img := range sessionRefs {
		refs = append(refs, img.Bytes)
	}

	if account == nil || !account.AvatarEnabled || len(account.AvatarImages) == 0 {
		return refs
	}

	o.notifier.Notify(userId, fmt.Sprintf("👤 Adding %d avatar reference(s)...", len(account.AvatarImages)))
	for _, fileId := range account.AvatarImages {
		data, err := o.files.Fetch(ctx, fileId)
		if err != nil {
			o.log.Warn("fetching avatar image", sl.User(userId), sl.Err(err))
			continue
		}
		refs = append(refs, data)
	}
	return refs
}
