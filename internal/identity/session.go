package identity

import (
	"context"
	"errors"

	"storefront/internal/models"
	"storefront/internal/remote"
)

// StartSession records id as signed in under sid. Every watcher of sid is
// notified.
func (s *Service) StartSession(ctx context.Context, sid string, id models.Identity, p Persistence) error {
	data, err := remote.Encode(sessionRecord{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Persistence: p,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, sessionsCollection, sid, data); err != nil {
		return networkError(err)
	}
	return nil
}

// EndSession signs sid out. Ending a session that does not exist is not an
// error.
func (s *Service) EndSession(ctx context.Context, sid string) error {
	if err := s.docs.Delete(ctx, sessionsCollection, sid); err != nil {
		return networkError(err)
	}
	return nil
}

// Current returns the identity signed in under sid.
func (s *Service) Current(ctx context.Context, sid string) (models.Identity, bool, error) {
	if sid == "" {
		return models.Identity{}, false, nil
	}
	doc, err := s.docs.Get(ctx, sessionsCollection, sid)
	if errors.Is(err, remote.ErrNotFound) {
		return models.Identity{}, false, nil
	}
	if err != nil {
		return models.Identity{}, false, networkError(err)
	}
	id, ok := sessionIdentity(doc)
	return id, ok, nil
}

// Watch calls fn once with the current identity of sid (nil when signed out)
// and again after every sign-in or sign-out under sid.
func (s *Service) Watch(ctx context.Context, sid string, fn func(*models.Identity)) (remote.Unsubscribe, error) {
	return s.docs.WatchDocument(ctx, sessionsCollection, sid, func(doc *remote.Document) {
		if id, ok := sessionIdentity(doc); ok {
			fn(&id)
			return
		}
		fn(nil)
	})
}

func sessionIdentity(doc *remote.Document) (models.Identity, bool) {
	if doc == nil {
		return models.Identity{}, false
	}
	var rec sessionRecord
	if err := remote.Decode(doc.Data, &rec); err != nil || rec.UID == "" {
		return models.Identity{}, false
	}
	return models.Identity{UID: rec.UID, Email: rec.Email, DisplayName: rec.DisplayName}, true
}
