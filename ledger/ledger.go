package ledger

import (
	"errors"
	"fmt"
	"log/slog"

	"AvatarElite/lib/sl"
	"AvatarElite/queue"
	"AvatarElite/storage"
)

// LowBalanceThreshold is the remaining balance below which the user is
// warned right after a successful consume.
const LowBalanceThreshold = 5

// failOpenRemaining is reported when no storage is configured, high
// enough to never trigger the low-balance warning.
const failOpenRemaining = 999

var (
	ErrNoStorage        = errors.New("no account storage configured")
	ErrStoreUnavailable = errors.New("account storage unavailable")
)

// InsufficientCreditsError reports a failed consume with the balance left
// untouched.
type InsufficientCreditsError struct {
	Need int
	Have int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Need, e.Have)
}

// Ledger owns every mutation of a user's durable record. All writes for
// the same user are serialized through a keyed queue so concurrent
// requests can never double-spend a balance or lose an avatar append.
//
// A ledger built with a nil store fails open: every consume succeeds.
// This is an explicit exception to the fail-closed rule, only for
// degraded deployments with no database at all.
type Ledger struct {
	store storage.AccountStorage
	queue *queue.Keyed
	log   *slog.Logger
}

func New(store storage.AccountStorage, log *slog.Logger) *Ledger {
	return &Ledger{
		store: store,
		queue: queue.NewKeyed(),
		log:   log.With(sl.Module("ledger")),
	}
}

// Account returns the user's durable record, creating it with defaults on
// first contact. Without storage it returns an unpersisted default account.
func (l *Ledger) Account(userId int64) (*storage.Account, error) {
	if l.store == nil {
		return storage.NewAccount(userId), nil
	}
	return l.store.GetOrCreate(userId)
}

// Consume atomically checks and decrements the balance. On success it
// returns the new balance; on failure the balance is untouched and the
// old balance (or 0 when the store misbehaved) is returned alongside the
// error.
func (l *Ledger) Consume(userId int64, amount int) (int, error) {
	if l.store == nil {
		l.log.Warn("no account storage, failing open for consume", sl.User(userId))
		return failOpenRemaining, nil
	}

	remaining := 0
	err := l.queue.Do(userId, func() error {
		credits, err := l.store.GetCredits(userId)
		if err != nil {
			l.log.Error("fetching balance", sl.User(userId), sl.Err(err))
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		if credits < amount {
			remaining = credits
			return &InsufficientCreditsError{Need: amount, Have: credits}
		}

		if err := l.store.SetCredits(userId, credits-amount); err != nil {
			l.log.Error("updating balance", sl.User(userId), sl.Err(err))
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		remaining = credits - amount
		return nil
	})
	if err != nil {
		return remaining, err
	}

	l.log.With(
		sl.User(userId),
		slog.Int("amount", amount),
		slog.Int("remaining", remaining),
	).Info("credits consumed")
	return remaining, nil
}

// Add increments the balance unconditionally, used on completed payments.
func (l *Ledger) Add(userId int64, amount int) error {
	if l.store == nil {
		l.log.Warn("no account storage, dropping credit add", sl.User(userId))
		return nil
	}

	return l.queue.Do(userId, func() error {
		acc, err := l.store.GetOrCreate(userId)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if err := l.store.SetCredits(userId, acc.Credits+amount); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		l.log.With(
			sl.User(userId),
			slog.Int("amount", amount),
			slog.Int("balance", acc.Credits+amount),
		).Info("credits added")
		return nil
	})
}
