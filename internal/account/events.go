package account

import (
	"encoding/json"

	"github.com/rickgao/dashfeed/internal/model"
)

// Event types on the user data stream.
//
// Wire structs below declare "e" next to "E" even when unused: encoding/json
// matches keys case-insensitively and would otherwise decode the event type
// string into the event time.
const (
	EventAccountPosition  = "outboundAccountPosition"
	EventBalanceUpdate    = "balanceUpdate"
	EventExecutionReport  = "executionReport"
	EventListenKeyExpired = "listenKeyExpired"
)

// Event is a decoded user data stream frame. Exactly one pointer field
// is set, matching Type.
type Event struct {
	Type     string
	Position *AccountPosition
	Balance  *BalanceUpdate
	Order    *ExecutionReport
}

type envelope struct {
	EventType string `json:"e"`
}

// AccountPosition is sent when balances change.
type AccountPosition struct {
	EventType      string            `json:"e"`
	EventTime      int64             `json:"E"` // Milliseconds since epoch
	LastUpdateTime int64             `json:"u"` // Milliseconds since epoch
	Balances       []PositionBalance `json:"B"`
}

// PositionBalance is one balance of an AccountPosition. Amounts stay as
// decimal strings; BalanceFromUpdate validates them.
type PositionBalance struct {
	Asset  string `json:"a"`
	Free   string `json:"f"`
	Locked string `json:"l"`
}

// BalanceUpdate is sent for deposits, withdrawals and transfers.
type BalanceUpdate struct {
	EventType string       `json:"e"`
	EventTime int64        `json:"E"`
	Asset     string       `json:"a"`
	Delta     model.Amount `json:"d"`
	ClearTime int64        `json:"T"`
}

// ExecutionReport is sent for every order state change.
type ExecutionReport struct {
	EventType       string       `json:"e"`
	EventTime       int64        `json:"E"`
	Symbol          string       `json:"s"`
	ClientOrderID   string       `json:"c"`
	Side            string       `json:"S"`
	OrderType       string       `json:"o"`
	Quantity        model.Amount `json:"q"`
	Price           model.Amount `json:"p"`
	ExecutionType   string       `json:"x"`
	Status          string       `json:"X"`
	RejectReason    string       `json:"r"`
	OrderID         int64        `json:"i"`
	LastFilledQty   model.Amount `json:"l"`
	CumulativeQty   model.Amount `json:"z"`
	LastFilledPrice model.Amount `json:"L"`
	TransactionTime int64        `json:"T"`

	// Keys that differ from the fields above only in case. encoding/json
	// matches case-insensitively, so each needs a field of its own.
	OrigClientOrderID string          `json:"C"`
	StopPrice         json.RawMessage `json:"P"`
	QuoteOrderQty     json.RawMessage `json:"Q"`
	Ignore            json.RawMessage `json:"I"`
	TradeID           json.RawMessage `json:"t"`
	CumulativeQuote   json.RawMessage `json:"Z"`
	CreationTime      json.RawMessage `json:"O"`
}
