package api

// errorWire is the error body Binance returns with 4xx/5xx responses.
type errorWire struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// ListenKeyResponse is returned when opening a user data stream.
type ListenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}

// ServerTimeResponse is returned by the server time endpoint.
type ServerTimeResponse struct {
	ServerTime int64 `json:"serverTime"` // Milliseconds since epoch
}

// AccountResponse is the signed account information endpoint response.
type AccountResponse struct {
	CanTrade    bool             `json:"canTrade"`
	CanWithdraw bool             `json:"canWithdraw"`
	CanDeposit  bool             `json:"canDeposit"`
	UpdateTime  int64            `json:"updateTime"` // Milliseconds since epoch
	AccountType string           `json:"accountType"`
	Balances    []AccountBalance `json:"balances"`
}

// AccountBalance is one asset balance as returned over REST.
// Amounts stay as the decimal strings Binance sends.
type AccountBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// ExchangeInfoResponse is the exchange information endpoint response,
// trimmed to the symbol listing.
type ExchangeInfoResponse struct {
	Timezone   string           `json:"timezone"`
	ServerTime int64            `json:"serverTime"` // Milliseconds since epoch
	Symbols    []ExchangeSymbol `json:"symbols"`
}

// ExchangeSymbol describes one listed trading pair.
type ExchangeSymbol struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"` // TRADING, BREAK, HALT, ...
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}
