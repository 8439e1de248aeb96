//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-gateway/domain"
	"chat-gateway/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Stop()
}

// Worker doesn't protect itself; the supervisor handles panics and
// restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one recipient of room events. Deliver must never block
// on a slow consumer: implementations queue, and report failure when
// they cannot. A failing sink only ever ends its own session.
type EventSink interface {
	Deliver(e event.ServerEvent) error
}

// MessageTap observes every durably appended message after fan-out.
// Taps serve derived views (search index, counters), never delivery.
type MessageTap interface {
	Consume(m domain.Message)
}
