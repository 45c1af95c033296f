package account

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rickgao/dashfeed/internal/model"
	"github.com/rickgao/dashfeed/internal/stream"
)

// streamName is logged in place of the listen key.
const streamName = "userData"

// Control reconfigures the user account stream.
type Control struct {
	Reconnect bool // Drop the current connection and obtain a new listen key
}

// ListenKeyCreator exchanges the API key for a listen key.
type ListenKeyCreator interface {
	CreateListenKey(ctx context.Context) (string, error)
}

// Source implements stream.Source for the user data stream.
type Source struct {
	keys   ListenKeyCreator
	wsURL  string
	ledger *Ledger
}

// NewSource creates a user data stream source. Account position updates
// are merged into ledger when it is non-nil.
func NewSource(keys ListenKeyCreator, wsURL string, ledger *Ledger) *Source {
	return &Source{
		keys:   keys,
		wsURL:  wsURL,
		ledger: ledger,
	}
}

func (s *Source) Kind() stream.Kind { return stream.KindUserAccount }

// Resolve obtains a fresh listen key for every attempt.
func (s *Source) Resolve(ctx context.Context) (stream.Endpoint, error) {
	key, err := s.keys.CreateListenKey(ctx)
	if err != nil {
		return stream.Endpoint{}, fmt.Errorf("create listen key: %w", err)
	}
	ep := stream.RawEndpoint(s.wsURL, key)
	ep.Name = streamName
	return ep, nil
}

func (s *Source) Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode user data event: %w", err)
	}

	ev := Event{Type: env.EventType}
	var err error

	switch env.EventType {
	case EventAccountPosition:
		ev.Position = &AccountPosition{}
		err = json.Unmarshal(data, ev.Position)
	case EventBalanceUpdate:
		ev.Balance = &BalanceUpdate{}
		err = json.Unmarshal(data, ev.Balance)
	case EventExecutionReport:
		ev.Order = &ExecutionReport{}
		err = json.Unmarshal(data, ev.Order)
	case EventListenKeyExpired:
		return Event{}, fmt.Errorf("%w: listen key expired", stream.ErrUnhandled)
	default:
		return Event{}, fmt.Errorf("%w: %q", stream.ErrUnhandled, env.EventType)
	}

	if err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", env.EventType, err)
	}
	return ev, nil
}

// Project maps the event and merges position updates into the ledger.
func (s *Source) Project(ev Event) ([]model.AccountEvent, error) {
	out, err := toAccountEvent(ev)
	if err != nil {
		return nil, err
	}
	if out.Account != nil && s.ledger != nil {
		s.ledger.Merge(*out.Account)
	}
	return []model.AccountEvent{out}, nil
}

func (s *Source) Apply(c Control) bool {
	return !c.Reconnect
}

// Subscribe starts the user account stream.
func Subscribe(ctx context.Context, deps stream.Deps, keys ListenKeyCreator, wsURL string, ledger *Ledger) (<-chan stream.Event[model.AccountEvent, Control], stream.Control[Control]) {
	return stream.Start[Event, model.AccountEvent, Control](
		ctx, NewSource(keys, wsURL, ledger), deps.Dialer, deps.Config, deps.Options()...,
	)
}
