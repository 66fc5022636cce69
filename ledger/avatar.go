package ledger

import (
	"fmt"
	"log/slog"

	"AvatarElite/lib/sl"
	"AvatarElite/storage"
)

// AppendAvatarImage adds one image reference to the user's avatar set and
// returns the new count. The capacity check runs inside the serialized
// critical section, after any in-flight mutation for the same user, so it
// always sees the latest count.
func (l *Ledger) AppendAvatarImage(userId int64, fileId string) (int, error) {
	if l.store == nil {
		return 0, ErrNoStorage
	}

	count := 0
	err := l.queue.Do(userId, func() error {
		images, err := l.store.GetAvatarImages(userId)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if len(images) >= storage.MaxAvatarImages {
			return storage.ErrCapacityExceeded
		}

		images = append(images, fileId)
		if err := l.store.SetAvatarImages(userId, images); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		count = len(images)
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.log.With(
		sl.User(userId),
		slog.Int("count", count),
	).Info("avatar image saved")
	return count, nil
}

// ClearAvatarImages drops the user's whole avatar set.
func (l *Ledger) ClearAvatarImages(userId int64) error {
	if l.store == nil {
		return ErrNoStorage
	}
	return l.queue.Do(userId, func() error {
		return l.store.SetAvatarImages(userId, []string{})
	})
}

// SetAvatarEnabled toggles whether the avatar set rides along on every
// generation request.
func (l *Ledger) SetAvatarEnabled(userId int64, enabled bool) error {
	if l.store == nil {
		return ErrNoStorage
	}
	return l.queue.Do(userId, func() error {
		return l.store.SetAvatarEnabled(userId, enabled)
	})
}
