//go:generate go run go.uber.org/mock/mockgen -source=unit_of_work.go -destination=../../mocks/mock_unit_of_work.go -package=mocks
package storage

import (
	"context"
	"group-chat/domain/chat"

	"github.com/dgraph-io/badger/v4"
)

// Tx is the set of writes allowed inside one atomic unit.
type Tx interface {
	InsertGroup(group chat.Group) error
	InsertMembership(membership chat.Membership) error
}

type IUnitOfWork interface {
	// Update runs fn in a single read-write transaction.
	// Nothing written through tx is visible unless fn returns nil and the commit succeeds.
	Update(ctx context.Context, fn func(tx Tx) error) error
}

type UnitOfWork struct {
	db *badger.DB
}

func NewUnitOfWork(db *badger.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		return fn(badgerTx{txn: txn})
	})
}

type badgerTx struct {
	txn *badger.Txn
}

func (t badgerTx) InsertGroup(group chat.Group) error {
	return t.txn.Set(groupKey(group.ID), encodeGroup(group))
}

// InsertMembership writes the membership and its by-user index entry.
func (t badgerTx) InsertMembership(membership chat.Membership) error {
	value := encodeMembership(membership)
	if err := t.txn.Set(memberKey(membership.GroupID, membership.UserID), value); err != nil {
		return err
	}
	return t.txn.Set(memberByUserKey(membership.UserID, membership.GroupID), value)
}
