// Package types defines the gateway's request and response schemas. Every
// response is an explicit projection of provider state; provider-internal
// fields never leak to callers.
package types

import "github.com/lakshcode9/metaapi-server-deploy/pkg/metaapi"

// AccountsRequest asks for the account directory of a token.
type AccountsRequest struct {
	Token string `json:"token"`
}

// ConnectionRequest identifies one account under a token.
type ConnectionRequest struct {
	Token     string `json:"token"`
	AccountID string `json:"accountId"`
}

// TradeRequest is the execute-trade body. Volume is a pointer so that a
// missing field is distinguishable from an explicit zero.
type TradeRequest struct {
	Token      string   `json:"token"`
	AccountID  string   `json:"accountId"`
	Symbol     string   `json:"symbol"`
	Direction  string   `json:"direction"`
	Volume     *float64 `json:"volume"`
	StopLoss   *float64 `json:"stopLoss"`
	TakeProfit *float64 `json:"takeProfit"`
}

// ClosePositionRequest closes a single position.
type ClosePositionRequest struct {
	Token      string `json:"token"`
	AccountID  string `json:"accountId"`
	PositionID string `json:"positionId"`
}

// HistoryRequest fetches deal history. Limit and StartTime are optional;
// the handler applies defaults.
type HistoryRequest struct {
	Token     string  `json:"token"`
	AccountID string  `json:"accountId"`
	Limit     *int    `json:"limit"`
	StartTime *string `json:"startTime"`
}

// AccountSummary is the caller-visible account projection.
type AccountSummary struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Login            string `json:"login"`
	Server           string `json:"server"`
	Region           string `json:"region"`
	State            string `json:"state"`
	ConnectionStatus string `json:"connectionStatus"`
	Magic            int    `json:"magic"`
}

// NewAccountSummary projects a provider account.
func NewAccountSummary(a metaapi.Account) AccountSummary {
	return AccountSummary{
		ID:               a.ID,
		Name:             a.Name,
		Type:             a.Type,
		Login:            a.Login,
		Server:           a.Server,
		Region:           a.Region,
		State:            a.State,
		ConnectionStatus: a.ConnectionStatus,
		Magic:            a.Magic,
	}
}

// AccountsResponse is the account-listing result.
type AccountsResponse struct {
	Success  bool             `json:"success"`
	Accounts []AccountSummary `json:"accounts"`
}

// ConnectionResponse is the test-connection result.
type ConnectionResponse struct {
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Currency string  `json:"currency"`
}

// TradeResultView is the caller-visible execution report.
type TradeResultView struct {
	Order    string `json:"order"`
	Position string `json:"position"`
	Status   string `json:"status"`
}

// TradeResponse is the execute-trade result.
type TradeResponse struct {
	Success bool            `json:"success"`
	Result  TradeResultView `json:"result"`
}

// PositionView is the caller-visible open-position projection.
type PositionView struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Type         string  `json:"type"`
	Volume       float64 `json:"volume"`
	OpenPrice    float64 `json:"openPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	Profit       float64 `json:"profit"`
	Swap         float64 `json:"swap"`
	Commission   float64 `json:"commission"`
	StopLoss     float64 `json:"stopLoss"`
	TakeProfit   float64 `json:"takeProfit"`
	Time         string  `json:"time"`
	Comment      string  `json:"comment"`
}

// NewPositionView projects a provider position.
func NewPositionView(p metaapi.Position) PositionView {
	return PositionView{
		ID:           p.ID,
		Symbol:       p.Symbol,
		Type:         p.Type,
		Volume:       p.Volume,
		OpenPrice:    p.OpenPrice,
		CurrentPrice: p.CurrentPrice,
		Profit:       p.Profit,
		Swap:         p.Swap,
		Commission:   p.Commission,
		StopLoss:     p.StopLoss,
		TakeProfit:   p.TakeProfit,
		Time:         p.Time.UTC().Format("2006-01-02T15:04:05.000Z"),
		Comment:      p.Comment,
	}
}

// PositionsResponse is the open-positions result.
type PositionsResponse struct {
	Success   bool           `json:"success"`
	Positions []PositionView `json:"positions"`
}

// CloseResultView is the single-close result payload.
type CloseResultView struct {
	OrderID string `json:"orderId"`
	Message string `json:"message"`
}

// ClosePositionResponse is the close-position result.
type ClosePositionResponse struct {
	Success bool            `json:"success"`
	Result  CloseResultView `json:"result"`
}

// CloseItemResult is one entry of the close-all per-position result list.
// OrderID is set on success, Error on failure.
type CloseItemResult struct {
	PositionID string `json:"positionId"`
	Success    bool   `json:"success"`
	OrderID    string `json:"orderId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CloseAllResponse aggregates the per-position close outcomes.
type CloseAllResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Results []CloseItemResult `json:"results"`
}

// DealView is the caller-visible historical-deal projection.
type DealView struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"orderId"`
	PositionID string  `json:"positionId"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"`
	EntryType  string  `json:"entryType"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Profit     float64 `json:"profit"`
	Swap       float64 `json:"swap"`
	Commission float64 `json:"commission"`
	Time       string  `json:"time"`
	Comment    string  `json:"comment"`
}

// NewDealView projects a provider deal.
func NewDealView(d metaapi.Deal) DealView {
	return DealView{
		ID:         d.ID,
		OrderID:    d.OrderID,
		PositionID: d.PositionID,
		Symbol:     d.Symbol,
		Type:       d.Type,
		EntryType:  d.EntryType,
		Volume:     d.Volume,
		Price:      d.Price,
		Profit:     d.Profit,
		Swap:       d.Swap,
		Commission: d.Commission,
		Time:       d.Time.UTC().Format("2006-01-02T15:04:05.000Z"),
		Comment:    d.Comment,
	}
}

// HistoryResponse is the deal-history result.
type HistoryResponse struct {
	Success bool       `json:"success"`
	Deals   []DealView `json:"deals"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
