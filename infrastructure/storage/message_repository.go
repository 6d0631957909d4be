//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"context"
	"fmt"
	"group-chat/domain/chat"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(ctx context.Context, message chat.Message) error
	LastMessageAt(ctx context.Context, groupID chat.GroupID) (time.Time, error)
	Recent(ctx context.Context, groupID chat.GroupID, limit int) ([]chat.Message, error)
	Since(ctx context.Context, groupID chat.GroupID, cursor chat.Cursor, limit int) ([]chat.Message, error)
	CountBySender(ctx context.Context, senderID chat.UserID) (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// StoreMessage persists the message and its per-sender index entry in one transaction.
func (m *MessageRepository) StoreMessage(ctx context.Context, message chat.Message) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	key := messageKey(message.GroupID, message.CreatedAt, message.ID)
	err := m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, EncodeMessage(message)); err != nil {
			return err
		}
		if message.SenderID == nil {
			return nil
		}
		return txn.Set(messageBySenderKey(*message.SenderID, message.CreatedAt, message.ID), key)
	})
	return unavailable(err)
}

// LastMessageAt returns the timestamp of the most recent message of the group,
// or the zero time when the group has none.
func (m *MessageRepository) LastMessageAt(ctx context.Context, groupID chat.GroupID) (time.Time, error) {
	messages, err := m.Recent(ctx, groupID, 1)
	if err != nil || len(messages) == 0 {
		return time.Time{}, err
	}
	return messages[0].CreatedAt, nil
}

// Recent returns the last limit messages of the group in ascending order.
// Keys are scanned backwards from the end of the group's prefix, inside one read transaction.
func (m *MessageRepository) Recent(ctx context.Context, groupID chat.GroupID, limit int) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	var messages []chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messageScan(groupID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchSize = limit
		it := txn.NewIterator(options)
		defer it.Close()

		// 0xFF sorts after any timestamp digit, so the seek lands on the newest key
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			message, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return lo.Reverse(messages), nil
}

// Since returns up to limit messages strictly after the cursor, in ascending order.
func (m *MessageRepository) Since(ctx context.Context, groupID chat.GroupID, cursor chat.Cursor, limit int) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	var messages []chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messageScan(groupID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seekKey := prefix
		if !cursor.IsZero() {
			seekKey = messageKey(groupID, cursor.At, cursor.ID)
		}
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			message, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			if !cursor.IsZero() && !cursor.Before(message.Cursor()) {
				continue
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return messages, nil
}

func (m *MessageRepository) CountBySender(ctx context.Context, senderID chat.UserID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}
	var count int
	err := m.db.View(func(txn *badger.Txn) error {
		count = countKeys(txn, messageBySenderScan(senderID))
		return nil
	})
	return count, unavailable(err)
}

func decodeItem(item *badger.Item) (chat.Message, error) {
	var message chat.Message
	err := item.Value(func(val []byte) error {
		var err error
		message, err = DecodeMessage(val)
		return err
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("key %s: %w", item.Key(), err)
	}
	return message, nil
}
