//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/runtime"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
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

// IChatService is the facade consumed by the transport collaborator.
// JoinRoom always succeeds; the returned subscription must be closed
// once the caller stops consuming it.
type IChatService interface {
	PostEvent(event domain.ChatEvent) error
	JoinRoom(roomID domain.RoomID) *runtime.Subscription
	LeaveRoom(roomID domain.RoomID)
	GetHistory(roomID domain.RoomID) ([]domain.ChatEvent, error)
}
