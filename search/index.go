// Package search maintains a bluge full-text index over the message
// log. The index is a derived view fed from the bus tap after the
// durable append; it may lag the log briefly and is rebuilt by
// replaying the log if lost.
package search

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/blugelabs/bluge"

	"chat-gateway/domain"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Open opens (or creates) an on-disk index.
func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

// OpenInMemory backs the index with memory only; used by tests.
func OpenInMemory(log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Consume implements the bus message tap. Indexing failures only cost
// search results, never message delivery, so they are logged and
// swallowed.
func (i *Index) Consume(m domain.Message) {
	doc := bluge.NewDocument(strconv.FormatUint(m.ID, 10)).
		AddField(bluge.NewKeywordField("room", string(m.Room))).
		AddField(bluge.NewTextField("content", m.Content).StoreValue()).
		AddField(bluge.NewKeywordField("username", m.SenderUsername).StoreValue()).
		AddField(bluge.NewDateTimeField("at", m.At).StoreValue())

	if err := i.writer.Update(doc.ID(), doc); err != nil {
		i.log.Warn("Indexing message failed", "id", m.ID, "err", err)
	}
}

// Hit is one search result.
type Hit struct {
	ID       uint64    `json:"id"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	At       time.Time `json:"at"`
}

// Search returns the best matches for terms within one room.
func (i *Index) Search(ctx context.Context, room domain.RoomName, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(bluge.NewTermQuery(string(room)).SetField("room"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	match, err := iter.Next()
	for err == nil && match != nil {
		var hit Hit
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID, _ = strconv.ParseUint(string(value), 10, 64)
			case "username":
				hit.Username = string(value)
			case "content":
				hit.Content = string(value)
			case "at":
				if at, dErr := bluge.DecodeDateTime(value); dErr == nil {
					hit.At = at
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		match, err = iter.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
