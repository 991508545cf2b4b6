// Package session keeps the last signed-in identity in user-agent scoped
// storage, so a page can be rendered for the right user before the session
// is confirmed remotely.
package session

import (
	"encoding/json"

	"storefront/internal/models"
)

const authUserKey = "authUser"

// Storage is durable key/value storage scoped to one user agent.
type Storage interface {
	SetItem(key, value string) error
	GetItem(key string) (string, bool)
	RemoveItem(key string) error
}

type Store struct {
	storage Storage
}

func New(storage Storage) *Store {
	return &Store{storage: storage}
}

func (s *Store) Save(id models.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.storage.SetItem(authUserKey, string(raw))
}

// Load reports absence for a missing, unreadable or uid-less record.
func (s *Store) Load() (models.Identity, bool) {
	raw, ok := s.storage.GetItem(authUserKey)
	if !ok {
		return models.Identity{}, false
	}
	var id models.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || id.UID == "" {
		return models.Identity{}, false
	}
	return id, true
}

func (s *Store) Clear() error {
	return s.storage.RemoveItem(authUserKey)
}
