// Package auth decides who may issue commands. The owner is configured and
// always authorized; sudo users and channels are granted through the store's
// allow-list and survive restarts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pagewatch/internal/storage"
)

// ErrUnauthorized is returned when a command requires privileges the
// requester does not hold.
var ErrUnauthorized = errors.New("unauthorized")

// Service answers authorization queries and manages the allow-list.
type Service struct {
	store   *storage.Store
	ownerID int64
	log     *zap.Logger
}

func NewService(store *storage.Store, ownerID int64, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		ownerID: ownerID,
		log:     log,
	}
}

// IsOwner reports whether id is the configured owner.
func (s *Service) IsOwner(id int64) bool {
	return id == s.ownerID
}

// IsAuthorized reports whether id may use the bot. Store read failures
// deny access rather than granting it.
func (s *Service) IsAuthorized(id int64) bool {
	if id == s.ownerID {
		return true
	}

	for _, kind := range []storage.AllowKind{storage.AllowSudo, storage.AllowChannel} {
		allowed, err := s.store.IsAllowed(kind, id)
		if err != nil {
			s.log.Error("allow-list lookup failed",
				zap.String("kind", string(kind)),
				zap.Int64("id", id),
				zap.Error(err))
			return false
		}
		if allowed {
			return true
		}
	}
	return false
}

// AddSudo grants id sudo access. Only the owner may call this.
func (s *Service) AddSudo(requester, id int64) error {
	return s.grant(requester, storage.AllowSudo, id)
}

// RemoveSudo revokes sudo access from id. Only the owner may call this.
func (s *Service) RemoveSudo(requester, id int64) error {
	return s.revoke(requester, storage.AllowSudo, id)
}

// AuthorizeChannel allows commands from the given chat. Only the owner may
// call this.
func (s *Service) AuthorizeChannel(requester, chatID int64) error {
	return s.grant(requester, storage.AllowChannel, chatID)
}

// RevokeChannel removes a chat from the allow-list. Only the owner may
// call this.
func (s *Service) RevokeChannel(requester, chatID int64) error {
	return s.revoke(requester, storage.AllowChannel, chatID)
}

func (s *Service) grant(requester int64, kind storage.AllowKind, id int64) error {
	if requester != s.ownerID {
		return ErrUnauthorized
	}

	entry := &storage.AllowEntry{
		Kind:    kind,
		ID:      id,
		AddedAt: time.Now(),
	}
	if err := s.store.SaveAllow(entry); err != nil {
		return fmt.Errorf("granting %s access to %d: %w", kind, id, err)
	}

	s.log.Info("access granted", zap.String("kind", string(kind)), zap.Int64("id", id))
	return nil
}

func (s *Service) revoke(requester int64, kind storage.AllowKind, id int64) error {
	if requester != s.ownerID {
		return ErrUnauthorized
	}

	if err := s.store.DeleteAllow(kind, id); err != nil {
		return fmt.Errorf("revoking %s access from %d: %w", kind, id, err)
	}

	s.log.Info("access revoked", zap.String("kind", string(kind)), zap.Int64("id", id))
	return nil
}
