//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"allchat/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

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

// Outbound is the delivery handle of one live connection.
// Deliver must not block longer than the context or the handle's own timeout.
type Outbound interface {
	Deliver(ctx context.Context, payload []byte) error
	Close() error
}

type IRegistry interface {
	Register(userID domain.UserID, out Outbound) (Outbound, bool)
	Unregister(userID domain.UserID, out Outbound) bool
	IsCurrent(userID domain.UserID, out Outbound) bool
	Connected(userID domain.UserID) bool
	Send(ctx context.Context, userID domain.UserID, payload []byte) error
	Len() int
}

type IPool interface {
	Enqueue(userID domain.UserID) error
	DequeueOther(userID domain.UserID) (domain.UserID, bool)
	Cancel(userID domain.UserID) bool
	Match(userID domain.UserID) (domain.Group, bool, error)
	Expire(cutoff time.Time) []domain.UserID
	Contains(userID domain.UserID) bool
	Len() int
}

type IDirectory interface {
	Form(a, b domain.UserID) domain.Group
	Lookup(userID domain.UserID) (domain.Group, bool)
	Leave(userID domain.UserID) (domain.Departure, bool)
	Disband(members []domain.UserID)
	SameGroup(a, b domain.UserID) bool
	Len() int
}
