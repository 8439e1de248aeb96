//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"chat-gateway/domain"
	"chat-gateway/errors"
)

type IMessageRepository interface {
	Append(room domain.RoomName, sender domain.Identity, content string) (domain.Message, error)
	Recent(room domain.RoomName, k int) ([]domain.Message, error)
	History(room domain.RoomName, limit int) ([]domain.Message, error)
}

// seqBandwidth is the badger Sequence lease size. Releasing an unused
// lease leaves gaps in the id space, never reuse.
const seqBandwidth = 128

// MessageRepository is the append-only message log on BadgerDB.
//
// The key is formatted as "msg:{room}:{id_padded}" so that:
//  1. Per-room prefix scans return messages in append order with no
//     sorting (20-digit zero padding keeps lexicographic order).
//  2. The id comes from a single process-wide atomic sequence, so ids
//     are globally monotonic even under concurrent writers.
type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger

	mu     sync.Mutex
	lastAt time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:msg"), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

// Close releases the id sequence lease.
func (r *MessageRepository) Close() error {
	return r.seq.Release()
}

// diskMessage is the stored projection of a Message.
type diskMessage struct {
	ID       uint64    `json:"id"`
	Room     string    `json:"room"`
	SenderID string    `json:"sender_id"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	Lang     string    `json:"lang,omitempty"`
	At       time.Time `json:"at"`
}

func messageKey(room domain.RoomName, id uint64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%020d", room, id))
}

func roomPrefix(room domain.RoomName) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

// Append assigns the next global id and a non-decreasing timestamp,
// writes the message durably and returns it complete. Id and timestamp
// are taken under the same lock so id order and (timestamp, id) order
// always agree, which keeps reads stably ordered under concurrent
// writers. The message is visible to readers only after this returns.
func (r *MessageRepository) Append(room domain.RoomName, sender domain.Identity, content string) (domain.Message, error) {
	r.mu.Lock()
	n, err := r.seq.Next()
	if err != nil {
		r.mu.Unlock()
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	at := time.Now().UTC()
	if at.Before(r.lastAt) {
		at = r.lastAt
	}
	r.lastAt = at
	r.mu.Unlock()

	msg := domain.Message{
		ID:             n + 1, // the sequence starts at zero, ids at one
		Room:           room,
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Content:        content,
		Lang:           detectLang(content),
		At:             at,
	}

	raw, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return domain.Message{}, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(room, msg.ID), raw)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return msg, nil
}

// Recent returns the last k messages of a room, oldest to newest. It
// seeks past the highest possible id for the room and walks the prefix
// backwards, so the window costs O(k) regardless of the log size.
func (r *MessageRepository) Recent(room domain.RoomName, k int) ([]domain.Message, error) {
	if k <= 0 {
		return nil, nil
	}
	var raws [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(messageKey(room, math.MaxUint64)); it.ValidForPrefix(prefix); it.Next() {
			if len(raws) == k {
				break
			}
			if err := copyValue(it, &raws); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	messages, err := decodeAll(raws)
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}

// History returns a room's log in ascending (timestamp, id) order.
// A non-positive limit means the full log.
func (r *MessageRepository) History(room domain.RoomName, limit int) ([]domain.Message, error) {
	var raws [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(raws) == limit {
				break
			}
			if err := copyValue(it, &raws); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return decodeAll(raws)
}

func copyValue(it *badger.Iterator, raws *[][]byte) error {
	return it.Item().Value(func(v []byte) error {
		*raws = append(*raws, append([]byte(nil), v...))
		return nil
	})
}

func decodeAll(raws [][]byte) ([]domain.Message, error) {
	var messages []domain.Message
	for _, raw := range raws {
		var dm diskMessage
		if err := json.Unmarshal(raw, &dm); err != nil {
			return nil, err
		}
		messages = append(messages, toMessage(dm))
	}
	return messages, nil
}

func detectLang(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return whatlanggo.LangToString(info.Lang)
}

func fromMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:       m.ID,
		Room:     string(m.Room),
		SenderID: m.SenderID,
		Username: m.SenderUsername,
		Content:  m.Content,
		Lang:     m.Lang,
		At:       m.At,
	}
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:             dm.ID,
		Room:           domain.RoomName(dm.Room),
		SenderID:       dm.SenderID,
		SenderUsername: dm.Username,
		Content:        dm.Content,
		Lang:           dm.Lang,
		At:             dm.At,
	}
}
