// Package userfile implements the UserRepository on a single JSON file that
// maps username to record, the format the desktop simulator used. The whole
// store is loaded into memory on open and rewritten atomically (temp file +
// rename) on every mutation, so a crash never leaves a partially written
// file. Safe for concurrent use within one process; concurrent writers from
// multiple processes are not supported and would need external locking.
package userfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shoplytics/shoplytics/internal/apperrors"
	"github.com/shoplytics/shoplytics/internal/domain/entity"
	"github.com/shoplytics/shoplytics/internal/domain/repository"
	"github.com/shoplytics/shoplytics/internal/validation"
)

type storedUser struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store keeps the full user mapping in memory and persists it to path.
type Store struct {
	mu    sync.RWMutex
	path  string
	users map[string]storedUser
}

// NewStore opens the store at path. A missing file initializes an empty
// store; an unreadable or structurally invalid file is a database error, not
// silently discarded data.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, users: map[string]storedUser{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.NewDatabaseError("I/O error while loading the user store.", err)
	}
	var users map[string]storedUser
	if err := json.Unmarshal(data, &users); err != nil {
		return apperrors.NewDatabaseError("Failed to decode the user store file.", err)
	}
	if err := validateUsers(users); err != nil {
		return err
	}
	s.users = users
	return nil
}

// validateUsers rejects records with missing fields or malformed emails so a
// hand-edited or truncated file is caught at startup.
func validateUsers(users map[string]storedUser) error {
	for username, u := range users {
		if u.Email == "" || u.PasswordHash == "" {
			return apperrors.NewDatabaseError(
				fmt.Sprintf("Missing fields for user '%s'.", username), nil)
		}
		if !validation.ValidateEmail(u.Email) {
			return apperrors.NewDatabaseError(
				fmt.Sprintf("Invalid email format for user '%s': %s", username, u.Email), nil)
		}
	}
	return nil
}

// saveLocked rewrites the backing file from the in-memory map. Callers hold
// the write lock. JSON object keys marshal in sorted order, which keeps the
// output byte-stable for the same content.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.users, "", "    ")
	if err != nil {
		return apperrors.NewDatabaseError("Failed to encode the user store.", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewDatabaseError("Failed to create the user store directory.", err)
	}
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return apperrors.NewDatabaseError("Failed to create a temporary store file.", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return apperrors.NewDatabaseError("Failed to write the user store.", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.NewDatabaseError("Failed to write the user store.", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.NewDatabaseError("Failed to replace the user store file.", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) findByEmailLocked(email string) (string, bool) {
	email = normalizeEmail(email)
	for username, u := range s.users {
		if normalizeEmail(u.Email) == email {
			return username, true
		}
	}
	return "", false
}

// Create appends a new record and persists the whole store. Duplicate
// username or email aborts with a field-tagged validation error before
// anything is written.
func (s *Store) Create(u *entity.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Username]; ok {
		return apperrors.NewValidationErrorMsg("username", u.Username,
			fmt.Sprintf("Username '%s' already exists.", u.Username))
	}
	email := normalizeEmail(u.Email)
	if _, ok := s.findByEmailLocked(email); ok {
		return apperrors.NewValidationErrorMsg("email", email,
			fmt.Sprintf("Email '%s' already exists.", email))
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = email
	s.users[u.Username] = storedUser{
		Email:        email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	if err := s.saveLocked(); err != nil {
		delete(s.users, u.Username)
		return err
	}
	return nil
}

func (s *Store) GetByUsername(username string) (*entity.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, apperrors.NewUsernameNotFoundError(username)
	}
	return &entity.UserRecord{
		Username:     username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}, nil
}

func (s *Store) GetByEmail(email string) (*entity.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username, ok := s.findByEmailLocked(email)
	if !ok {
		return nil, apperrors.NewUserNotFoundError(normalizeEmail(email))
	}
	u := s.users[username]
	return &entity.UserRecord{
		Username:     username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}, nil
}

func (s *Store) ExistsUsername(username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok, nil
}

func (s *Store) ExistsEmail(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.findByEmailLocked(email)
	return ok, nil
}

// UpdatePassword replaces the stored hash for username and persists.
func (s *Store) UpdatePassword(username, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return apperrors.NewUsernameNotFoundError(username)
	}
	prev := u
	u.PasswordHash = newHash
	s.users[username] = u
	if err := s.saveLocked(); err != nil {
		s.users[username] = prev
		return err
	}
	return nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

var _ repository.UserRepository = (*Store)(nil)
