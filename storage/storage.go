package storage

import (
	"errors"
	"time"
)

const (
	// StartingCredits is granted when an account is created on first contact.
	StartingCredits = 15
	// MaxAvatarImages caps the durable avatar reference set.
	MaxAvatarImages = 15
)

var ErrCapacityExceeded = errors.New("avatar image limit reached")

// Account is the durable per-user record: credit balance, avatar reference
// set and the flag that attaches the avatar set to every generation.
type Account struct {
	UserId        int64     `bson:"user_id"`
	Credits       int       `bson:"credits"`
	AvatarImages  []string  `bson:"avatar_images"`
	AvatarEnabled bool      `bson:"avatar_enabled"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// NewAccount returns an account with default starting state.
func NewAccount(userId int64) *Account {
	now := time.Now()
	return &Account{
		UserId:       userId,
		Credits:      StartingCredits,
		AvatarImages: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

type AccountStorage interface {
	// GetOrCreate returns the account for a user, creating it with
	// defaults on first contact.
	GetOrCreate(userId int64) (*Account, error)
	GetCredits(userId int64) (int, error)
	SetCredits(userId int64, credits int) error
	GetAvatarImages(userId int64) ([]string, error)
	SetAvatarImages(userId int64, images []string) error
	SetAvatarEnabled(userId int64, enabled bool) error
	Close() error
}
