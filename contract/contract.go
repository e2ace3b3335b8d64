//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"party-lab/domain"
	"party-lab/domain/event"
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
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
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

// EventHandler is a consumer of platform events. The dispatcher worker
// feeds every handler in registration order.
type EventHandler interface {
	HandleEvent(ctx context.Context, e event.PlatformEvent) error
}

// Gate answers whether an actor holds the verification credential
// required to create or join a party. Side-effect free.
type Gate interface {
	IsAuthorized(ctx context.Context, actor domain.UserID) (bool, error)
}

// CardRenderer turns a roster snapshot into the published card body.
// Rendering is presentation only; the engine owns the state.
type CardRenderer interface {
	Render(snapshot domain.CardSnapshot) string
}

// RankSource resolves a tag-qualified game identifier into ranked data.
type RankSource interface {
	Lookup(ctx context.Context, gameName, gameTag string) (domain.PlayerRank, error)
}

// RankStore caches rank snapshots between collection and publication.
type RankStore interface {
	Replace(queue domain.QueueType, players []domain.PlayerRank) error
	Top(queue domain.QueueType, n int) ([]domain.PlayerRank, error)
}
