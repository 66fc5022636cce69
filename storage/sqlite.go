package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    user_id INTEGER PRIMARY KEY,
    credits INTEGER NOT NULL,
    avatar_images TEXT NOT NULL DEFAULT '[]',
    avatar_enabled INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStorage keeps accounts in a local SQLite file. Meant for
// single-node deployments where running MongoDB is not worth it.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) GetOrCreate(userId int64) (*Account, error) {
	acc, err := s.get(userId)
	if err != nil {
		return nil, err
	}
	if acc != nil {
		return acc, nil
	}

	fresh := NewAccount(userId)
	_, err = s.db.Exec(
		`INSERT INTO accounts (user_id, credits, avatar_images, avatar_enabled, created_at, updated_at)
		 VALUES (?, ?, '[]', 0, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		fresh.UserId, fresh.Credits, fresh.CreatedAt, fresh.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	acc, err = s.get(userId)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("account %d missing after insert", userId)
	}
	return acc, nil
}

func (s *SQLiteStorage) get(userId int64) (*Account, error) {
	row := s.db.QueryRow(
		`SELECT user_id, credits, avatar_images, avatar_enabled, created_at, updated_at
		 FROM accounts WHERE user_id = ?`, userId)

	acc := &Account{}
	var imagesJSON string
	err := row.Scan(&acc.UserId, &acc.Credits, &imagesJSON, &acc.AvatarEnabled, &acc.CreatedAt, &acc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	if err := json.Unmarshal([]byte(imagesJSON), &acc.AvatarImages); err != nil {
		return nil, fmt.Errorf("decoding avatar images: %w", err)
	}
	if acc.AvatarImages == nil {
		acc.AvatarImages = []string{}
	}
	return acc, nil
}

func (s *SQLiteStorage) GetCredits(userId int64) (int, error) {
	var credits int
	err := s.db.QueryRow(`SELECT credits FROM accounts WHERE user_id = ?`, userId).Scan(&credits)
	if err != nil {
		return 0, fmt.Errorf("reading credits: %w", err)
	}
	return credits, nil
}

func (s *SQLiteStorage) SetCredits(userId int64, credits int) error {
	return s.update(userId, `UPDATE accounts SET credits = ?, updated_at = ? WHERE user_id = ?`,
		credits, time.Now(), userId)
}

func (s *SQLiteStorage) GetAvatarImages(userId int64) ([]string, error) {
	acc, err := s.get(userId)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return []string{}, nil
	}
	return acc.AvatarImages, nil
}

func (s *SQLiteStorage) SetAvatarImages(userId int64, images []string) error {
	encoded, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("encoding avatar images: %w", err)
	}
	return s.update(userId, `UPDATE accounts SET avatar_images = ?, updated_at = ? WHERE user_id = ?`,
		string(encoded), time.Now(), userId)
}

func (s *SQLiteStorage) SetAvatarEnabled(userId int64, enabled bool) error {
	return s.update(userId, `UPDATE accounts SET avatar_enabled = ?, updated_at = ? WHERE user_id = ?`,
		enabled, time.Now(), userId)
}

func (s *SQLiteStorage) update(userId int64, query string, args ...interface{}) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %d not found", userId)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
