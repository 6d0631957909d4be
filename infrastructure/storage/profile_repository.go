//go:generate go run go.uber.org/mock/mockgen -source=profile_repository.go -destination=../../mocks/mock_profile_repository.go -package=mocks
package storage

import (
	"context"
	"group-chat/domain/chat"
	"group-chat/errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

type IProfileRepository interface {
	GetProfile(ctx context.Context, userID chat.UserID) (chat.Profile, error)
	UpsertProfile(ctx context.Context, profile chat.Profile) (chat.Profile, error)
}

type ProfileRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewProfileRepository(db *badger.DB, log *slog.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, log: log}
}

func (p *ProfileRepository) GetProfile(ctx context.Context, userID chat.UserID) (chat.Profile, error) {
	if err := ctx.Err(); err != nil {
		return chat.Profile{}, unavailable(err)
	}
	var profile chat.Profile
	err := p.db.View(func(txn *badger.Txn) error {
		var err error
		profile, err = getProfile(txn, userID)
		return err
	})
	return profile, unavailable(err)
}

// UpsertProfile keeps the original creation time when the profile already exists.
func (p *ProfileRepository) UpsertProfile(ctx context.Context, profile chat.Profile) (chat.Profile, error) {
	if err := ctx.Err(); err != nil {
		return chat.Profile{}, unavailable(err)
	}
	err := p.db.Update(func(txn *badger.Txn) error {
		existing, err := getProfile(txn, profile.UserID)
		switch {
		case err == nil:
			profile.CreatedAt = existing.CreatedAt
		case !errors.Is(err, errors.ErrNotFound):
			return err
		}
		return txn.Set(profileKey(profile.UserID), encodeProfile(profile))
	})
	return profile, unavailable(err)
}

func getProfile(txn *badger.Txn, userID chat.UserID) (chat.Profile, error) {
	item, err := txn.Get(profileKey(userID))
	if err != nil {
		return chat.Profile{}, notFound(err)
	}
	var profile chat.Profile
	err = item.Value(func(val []byte) error {
		profile, err = decodeProfile(val)
		return err
	})
	return profile, err
}
