package metaapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/lakshcode9/metaapi-server-deploy/pkg/errors"
)

// Trade action types accepted by the MetaApi trade endpoint.
const (
	ActionOrderTypeBuy    = "ORDER_TYPE_BUY"
	ActionOrderTypeSell   = "ORDER_TYPE_SELL"
	ActionPositionCloseID = "POSITION_CLOSE_ID"
)

// Retcodes the provider reports on successful order execution.
const (
	RetcodeDone        = "TRADE_RETCODE_DONE"
	RetcodeDonePartial = "TRADE_RETCODE_DONE_PARTIAL"
)

// AccountInformation is the live account snapshot from the client API.
type AccountInformation struct {
	Broker      string  `json:"broker"`
	Currency    string  `json:"currency"`
	Server      string  `json:"server"`
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	FreeMargin  float64 `json:"freeMargin"`
	Leverage    int     `json:"leverage"`
	MarginLevel float64 `json:"marginLevel"`
	Name        string  `json:"name"`
	Login       int64   `json:"login"`
	Platform    string  `json:"platform"`
	Type        string  `json:"type"`
}

// Position is one open position as the provider reports it.
type Position struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Type         string    `json:"type"`
	Volume       float64   `json:"volume"`
	OpenPrice    float64   `json:"openPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	Profit       float64   `json:"profit"`
	Swap         float64   `json:"swap"`
	Commission   float64   `json:"commission"`
	StopLoss     float64   `json:"stopLoss"`
	TakeProfit   float64   `json:"takeProfit"`
	Time         time.Time `json:"time"`
	Comment      string    `json:"comment"`
}

// Deal is one executed trade from the account history.
type Deal struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"orderId"`
	PositionID string    `json:"positionId"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	EntryType  string    `json:"entryType"`
	Volume     float64   `json:"volume"`
	Price      float64   `json:"price"`
	Profit     float64   `json:"profit"`
	Swap       float64   `json:"swap"`
	Commission float64   `json:"commission"`
	Time       time.Time `json:"time"`
	Comment    string    `json:"comment"`
}

// TradeRequest is the body of the MetaApi trade endpoint.
type TradeRequest struct {
	ActionType string   `json:"actionType"`
	Symbol     string   `json:"symbol,omitempty"`
	Volume     float64  `json:"volume,omitempty"`
	StopLoss   *float64 `json:"stopLoss,omitempty"`
	TakeProfit *float64 `json:"takeProfit,omitempty"`
	PositionID string   `json:"positionId,omitempty"`
}

// TradeResult is the provider's execution report.
type TradeResult struct {
	NumericCode int    `json:"numericCode"`
	StringCode  string `json:"stringCode"`
	Message     string `json:"message"`
	OrderID     string `json:"orderId"`
	PositionID  string `json:"positionId"`
}

// Succeeded reports whether the retcode means the order filled.
func (r *TradeResult) Succeeded() bool {
	return r.StringCode == RetcodeDone || r.StringCode == RetcodeDonePartial
}

// restConnection is the per-request trading channel. It shares the owning
// client's token and transport.
type restConnection struct {
	client    *restClient
	accountID string
}

func (cn *restConnection) accountURL(path string) string {
	return fmt.Sprintf("%s/users/current/accounts/%s%s", cn.client.cfg.ClientURL, cn.accountID, path)
}

// WaitSynchronized polls the account directory until the provider reports
// the terminal connected, or the sync timeout elapses.
func (cn *restConnection) WaitSynchronized(ctx context.Context) error {
	deadline := time.Now().Add(cn.client.cfg.SyncTimeout)

	for {
		account, err := cn.client.GetAccount(ctx, cn.accountID)
		if err != nil {
			return err
		}
		if account.ConnectionStatus == ConnectionStatusConnected {
			return nil
		}

		if time.Now().After(deadline) {
			return apperrors.ErrConnection.WithMessagef(
				"account %s did not synchronize within %s (status: %s)",
				cn.accountID, cn.client.cfg.SyncTimeout, account.ConnectionStatus)
		}

		select {
		case <-ctx.Done():
			return apperrors.ErrConnection.WithError(ctx.Err())
		case <-time.After(cn.client.cfg.PollInterval):
		}
	}
}

func (cn *restConnection) AccountInformation(ctx context.Context) (info *AccountInformation, err error) {
	start := time.Now()
	defer func() { record("account_information", start, err) }()

	resp, reqErr := cn.client.doRequest(ctx, http.MethodGet, cn.accountURL("/account-information"), nil)
	if reqErr != nil {
		return nil, reqErr
	}

	info = &AccountInformation{}
	if err = decodeResponse(resp, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (cn *restConnection) Positions(ctx context.Context) (positions []Position, err error) {
	start := time.Now()
	defer func() { record("positions", start, err) }()

	resp, reqErr := cn.client.doRequest(ctx, http.MethodGet, cn.accountURL("/positions"), nil)
	if reqErr != nil {
		return nil, reqErr
	}

	if err = decodeResponse(resp, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// MarketOrder submits a trade action and interprets the execution report.
// A non-success retcode is a provider operation failure even on HTTP 200.
func (cn *restConnection) MarketOrder(ctx context.Context, req *TradeRequest) (result *TradeResult, err error) {
	start := time.Now()
	defer func() { record("trade", start, err) }()

	resp, reqErr := cn.client.doRequest(ctx, http.MethodPost, cn.accountURL("/trade"), req)
	if reqErr != nil {
		return nil, reqErr
	}

	result = &TradeResult{}
	if err = decodeResponse(resp, result); err != nil {
		return nil, err
	}

	if !result.Succeeded() {
		message := result.Message
		if message == "" {
			message = result.StringCode
		}
		return nil, apperrors.ErrProviderOperation.WithMessagef("trade rejected: %s", message)
	}
	return result, nil
}

// ClosePosition closes one open position by its provider identifier.
func (cn *restConnection) ClosePosition(ctx context.Context, positionID string) (*TradeResult, error) {
	return cn.MarketOrder(ctx, &TradeRequest{
		ActionType: ActionPositionCloseID,
		PositionID: positionID,
	})
}

// Deals retrieves the executed-trade history inside [start, end]. The
// provider returns deals oldest first; the order is preserved.
func (cn *restConnection) Deals(ctx context.Context, startTime, endTime time.Time) (deals []Deal, err error) {
	start := time.Now()
	defer func() { record("history_deals", start, err) }()

	url := cn.accountURL(fmt.Sprintf("/history-deals/time/%s/%s",
		startTime.UTC().Format(time.RFC3339),
		endTime.UTC().Format(time.RFC3339)))

	resp, reqErr := cn.client.doRequest(ctx, http.MethodGet, url, nil)
	if reqErr != nil {
		return nil, reqErr
	}

	if err = decodeResponse(resp, &deals); err != nil {
		return nil, err
	}
	return deals, nil
}
