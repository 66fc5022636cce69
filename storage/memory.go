package storage

import (
	"fmt"
	"sync"
	"time"
)

// MemoryStorage keeps accounts in a process-local map. Used for local runs
// and as the fallback when MongoDB is unreachable.
type MemoryStorage struct {
	accounts map[int64]*Account
	mutex    sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		accounts: make(map[int64]*Account),
	}
}

func (m *MemoryStorage) GetOrCreate(userId int64) (*Account, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	acc, ok := m.accounts[userId]
	if !ok {
		acc = NewAccount(userId)
		m.accounts[userId] = acc
	}
	return copyAccount(acc), nil
}

func (m *MemoryStorage) GetCredits(userId int64) (int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	acc, ok := m.accounts[userId]
	if !ok {
		return 0, fmt.Errorf("account %d not found", userId)
	}
	return acc.Credits, nil
}

func (m *MemoryStorage) SetCredits(userId int64, credits int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	acc, ok := m.accounts[userId]
	if !ok {
		return fmt.Errorf("account %d not found", userId)
	}
	acc.Credits = credits
	acc.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStorage) GetAvatarImages(userId int64) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	acc, ok := m.accounts[userId]
	if !ok {
		return []string{}, nil
	}
	images := make([]string, len(acc.AvatarImages))
	copy(images, acc.AvatarImages)
	return images, nil
}

func (m *MemoryStorage) SetAvatarImages(userId int64, images []string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	acc, ok := m.accounts[userId]
	if !ok {
		return fmt.Errorf("account %d not found", userId)
	}
	acc.AvatarImages = make([]string, len(images))
	copy(acc.AvatarImages, images)
	acc.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStorage) SetAvatarEnabled(userId int64, enabled bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	acc, ok := m.accounts[userId]
	if !ok {
		return fmt.Errorf("account %d not found", userId)
	}
	acc.AvatarEnabled = enabled
	acc.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

// copyAccount returns a copy to prevent external mutation
func copyAccount(acc *Account) *Account {
	cc := *acc
	cc.AvatarImages = make([]string, len(acc.AvatarImages))
	copy(cc.AvatarImages, acc.AvatarImages)
	return &cc
}
