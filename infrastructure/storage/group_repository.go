//go:generate go run go.uber.org/mock/mockgen -source=group_repository.go -destination=../../mocks/mock_group_repository.go -package=mocks
package storage

import (
	"context"
	"group-chat/domain/chat"
	"group-chat/errors"
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

type IGroupRepository interface {
	GetGroup(ctx context.Context, id chat.GroupID) (chat.Group, error)
	GetMembership(ctx context.Context, groupID chat.GroupID, userID chat.UserID) (chat.Membership, error)
	ListGroupsForUser(ctx context.Context, userID chat.UserID) ([]chat.Group, error)
	CountGroupsForUser(ctx context.Context, userID chat.UserID) (int, error)
}

type GroupRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewGroupRepository(db *badger.DB, log *slog.Logger) *GroupRepository {
	return &GroupRepository{db: db, log: log}
}

func (r *GroupRepository) GetGroup(ctx context.Context, id chat.GroupID) (chat.Group, error) {
	var group chat.Group
	err := r.view(ctx, func(txn *badger.Txn) error {
		g, err := getGroup(txn, id)
		group = g
		return err
	})
	return group, unavailable(err)
}

// GetMembership returns errors.ErrNotFound when either the group or the membership is missing.
func (r *GroupRepository) GetMembership(ctx context.Context, groupID chat.GroupID, userID chat.UserID) (chat.Membership, error) {
	var membership chat.Membership
	err := r.view(ctx, func(txn *badger.Txn) error {
		if _, err := getGroup(txn, groupID); err != nil {
			return err
		}
		item, err := txn.Get(memberKey(groupID, userID))
		if err != nil {
			return notFound(err)
		}
		return item.Value(func(val []byte) error {
			membership, err = decodeMembership(val)
			return err
		})
	})
	return membership, unavailable(err)
}

// ListGroupsForUser walks the by-user index and returns the groups newest first.
func (r *GroupRepository) ListGroupsForUser(ctx context.Context, userID chat.UserID) ([]chat.Group, error) {
	var groups []chat.Group
	err := r.view(ctx, func(txn *badger.Txn) error {
		prefix := memberByUserScan(userID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var membership chat.Membership
			err := it.Item().Value(func(val []byte) error {
				var err error
				membership, err = decodeMembership(val)
				return err
			})
			if err != nil {
				return err
			}
			group, err := getGroup(txn, membership.GroupID)
			if errors.Is(err, errors.ErrNotFound) {
				r.log.Warn("Dangling membership index entry", "user", userID, "group", membership.GroupID)
				continue
			}
			if err != nil {
				return err
			}
			groups = append(groups, group)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})
	return groups, nil
}

func (r *GroupRepository) CountGroupsForUser(ctx context.Context, userID chat.UserID) (int, error) {
	var count int
	err := r.view(ctx, func(txn *badger.Txn) error {
		count = countKeys(txn, memberByUserScan(userID))
		return nil
	})
	return count, unavailable(err)
}

func (r *GroupRepository) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.View(fn)
}

func getGroup(txn *badger.Txn, id chat.GroupID) (chat.Group, error) {
	item, err := txn.Get(groupKey(id))
	if err != nil {
		return chat.Group{}, notFound(err)
	}
	var group chat.Group
	err = item.Value(func(val []byte) error {
		group, err = decodeGroup(val)
		return err
	})
	return group, err
}

func notFound(err error) error {
	if err == badger.ErrKeyNotFound {
		return errors.ErrNotFound
	}
	return err
}

// countKeys iterates keys only, values are never loaded.
func countKeys(txn *badger.Txn, prefix []byte) int {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()
	count := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}
	return count
}
