package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/dashfeed/internal/api"
	"github.com/rickgao/dashfeed/internal/model"
)

// ErrInvalidBalance is returned by the balance mappers.
var ErrInvalidBalance = errors.New("invalid balance")

// BalanceFromREST maps a REST account balance into a model.Balance.
func BalanceFromREST(b api.AccountBalance) (model.Balance, error) {
	return toBalance(b.Asset, b.Free, b.Locked)
}

// BalanceFromUpdate maps a stream position balance into a model.Balance.
func BalanceFromUpdate(b PositionBalance) (model.Balance, error) {
	return toBalance(b.Asset, b.Free, b.Locked)
}

func toBalance(asset, free, locked string) (model.Balance, error) {
	if asset == "" {
		return model.Balance{}, fmt.Errorf("%w: empty asset", ErrInvalidBalance)
	}
	f, err := model.ParseAmount(free)
	if err != nil {
		return model.Balance{}, fmt.Errorf("%w: %s free: %w", ErrInvalidBalance, asset, err)
	}
	l, err := model.ParseAmount(locked)
	if err != nil {
		return model.Balance{}, fmt.Errorf("%w: %s locked: %w", ErrInvalidBalance, asset, err)
	}
	if f < 0 || l < 0 {
		return model.Balance{}, fmt.Errorf("%w: %s negative amount", ErrInvalidBalance, asset)
	}
	return model.Balance{Asset: asset, Free: f, Locked: l}, nil
}

// toAccountEvent maps a decoded frame into the stream payload.
func toAccountEvent(ev Event) (model.AccountEvent, error) {
	switch {
	case ev.Position != nil:
		p := ev.Position
		update := &model.AccountUpdate{
			Balances:       make([]model.Balance, 0, len(p.Balances)),
			LastUpdateTime: time.UnixMilli(p.LastUpdateTime),
			EventTime:      time.UnixMilli(p.EventTime),
		}
		for _, b := range p.Balances {
			bal, err := BalanceFromUpdate(b)
			if err != nil {
				return model.AccountEvent{}, err
			}
			update.Balances = append(update.Balances, bal)
		}
		return model.AccountEvent{Account: update}, nil

	case ev.Balance != nil:
		b := ev.Balance
		if b.Asset == "" {
			return model.AccountEvent{}, fmt.Errorf("%w: empty asset", ErrInvalidBalance)
		}
		return model.AccountEvent{Balance: &model.BalanceDelta{
			Asset:     b.Asset,
			Delta:     b.Delta,
			ClearTime: time.UnixMilli(b.ClearTime),
			EventTime: time.UnixMilli(b.EventTime),
		}}, nil

	case ev.Order != nil:
		o := ev.Order
		return model.AccountEvent{Order: &model.OrderUpdate{
			Symbol:          o.Symbol,
			ClientOrderID:   o.ClientOrderID,
			OrderID:         o.OrderID,
			Side:            o.Side,
			OrderType:       o.OrderType,
			Status:          o.Status,
			ExecutionType:   o.ExecutionType,
			Price:           o.Price,
			Quantity:        o.Quantity,
			LastFilledQty:   o.LastFilledQty,
			CumulativeQty:   o.CumulativeQty,
			LastFilledPrice: o.LastFilledPrice,
			RejectReason:    o.RejectReason,
			TransactionTime: time.UnixMilli(o.TransactionTime),
			EventTime:       time.UnixMilli(o.EventTime),
		}}, nil
	}

	return model.AccountEvent{}, fmt.Errorf("event %q has no body", ev.Type)
}
