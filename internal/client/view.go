package client

import "context"

// EventKind is a step of a view's load cycle.
type EventKind int

const (
	Started EventKind = iota
	Succeeded
	Failed
)

// Event moves a ViewState forward.
type Event[T any] struct {
	Kind EventKind
	Data T
	Err  error
}

// ViewState is what a screen renders for one resource.
type ViewState[T any] struct {
	Data    T
	HasData bool
	Loading bool
	Err     error
}

// Reduce returns the state after e. Started keeps the previous data while
// loading; Failed drops it.
func Reduce[T any](s ViewState[T], e Event[T]) ViewState[T] {
	switch e.Kind {
	case Started:
		s.Loading = true
		s.Err = nil
	case Succeeded:
		s = ViewState[T]{Data: e.Data, HasData: true}
	case Failed:
		s = ViewState[T]{Err: e.Err}
	}
	return s
}

// Load runs fetch once, reporting each intermediate state to observe
// (which may be nil), and returns the final state.
func Load[T any](ctx context.Context, prev ViewState[T], fetch func(context.Context) (T, error), observe func(ViewState[T])) ViewState[T] {
	emit := func(s ViewState[T]) ViewState[T] {
		if observe != nil {
			observe(s)
		}
		return s
	}

	s := emit(Reduce(prev, Event[T]{Kind: Started}))
	data, err := fetch(ctx)
	if err != nil {
		return emit(Reduce(s, Event[T]{Kind: Failed, Err: err}))
	}
	return emit(Reduce(s, Event[T]{Kind: Succeeded, Data: data}))
}
