// Package handler exposes the gateway's HTTP surface. Each route parses a
// JSON body, validates required fields, runs the session chain, executes
// one provider operation, and projects the result.
package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lakshcode9/metaapi-server-deploy/internal/gateway/session"
	"github.com/lakshcode9/metaapi-server-deploy/internal/gateway/types"
	apperrors "github.com/lakshcode9/metaapi-server-deploy/pkg/errors"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/events"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/logger"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/metaapi"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/metrics"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/middleware"
)

const (
	defaultHistoryLimit  = 20
	defaultHistoryWindow = 30 * 24 * time.Hour
)

// Handler holds the route dependencies. Publisher may be nil when event
// publishing is disabled.
type Handler struct {
	sessions  *session.Manager
	publisher events.Publisher
	log       zerolog.Logger
}

// New creates the gateway handler.
func New(sessions *session.Manager, publisher events.Publisher) *Handler {
	return &Handler{
		sessions:  sessions,
		publisher: publisher,
		log:       logger.With("handler"),
	}
}

// Register mounts the HTTP surface on the app.
func (h *Handler) Register(app fiber.Router) {
	app.Get("/health", h.Health)

	api := app.Group("/api/metaapi")
	api.Post("/accounts", h.ListAccounts)
	api.Post("/test-connection", h.TestConnection)
	api.Post("/execute-trade", h.ExecuteTrade)
	api.Post("/get-positions", h.GetPositions)
	api.Post("/close-position", h.ClosePosition)
	api.Post("/close-all-positions", h.CloseAllPositions)
	api.Post("/get-history", h.GetHistory)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(types.HealthResponse{
		Status:  "ok",
		Message: "MetaApi gateway is running",
	})
}

// parseBody decodes the JSON body, mapping malformed JSON to a validation
// error instead of fiber's default 400 text.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.ErrValidation.WithMessage("invalid JSON body")
	}
	return nil
}

// requireFields rejects the first missing required field. Field order is
// stable so callers get deterministic messages.
func requireFields(fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			return apperrors.ErrValidation.WithMessagef("%s is required", f[0])
		}
	}
	return nil
}

func (h *Handler) ListAccounts(c *fiber.Ctx) error {
	var req types.AccountsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireFields([2]string{"token", req.Token}); err != nil {
		return err
	}

	client, err := h.sessions.Client(req.Token)
	if err != nil {
		return err
	}

	accounts, err := client.ListAccounts(c.UserContext())
	if err != nil {
		return err
	}

	summaries := make([]types.AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		summaries = append(summaries, types.NewAccountSummary(account))
	}

	return c.JSON(types.AccountsResponse{Success: true, Accounts: summaries})
}

func (h *Handler) TestConnection(c *fiber.Ctx) error {
	var req types.ConnectionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireFields(
		[2]string{"token", req.Token},
		[2]string{"accountId", req.AccountID},
	); err != nil {
		return err
	}

	conn, err := h.sessions.Open(c.UserContext(), req.Token, req.AccountID)
	if err != nil {
		return err
	}

	info, err := conn.AccountInformation(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(types.ConnectionResponse{
		Success:  true,
		Message:  "Connection successful",
		Balance:  info.Balance,
		Equity:   info.Equity,
		Currency: info.Currency,
	})
}

// directionAction maps a caller direction to the provider action type.
// Any value other than BUY/SELL (case-insensitive) is rejected before the
// provider is contacted.
func directionAction(direction string) (string, error) {
	switch strings.ToUpper(direction) {
	case "BUY":
		return metaapi.ActionOrderTypeBuy, nil
	case "SELL":
		return metaapi.ActionOrderTypeSell, nil
	default:
		return "", apperrors.ErrValidation.WithMessagef("direction must be BUY or SELL, got %q", direction)
	}
}

func (h *Handler) ExecuteTrade(c *fiber.Ctx) error {
	var req types.TradeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireFields(
		[2]string{"token", req.Token},
		[2]string{"accountId", req.AccountID},
		[2]string{"symbol", req.Symbol},
		[2]string{"direction", req.Direction},
	); err != nil {
		return err
	}
	if req.Volume == nil {
		return apperrors.ErrValidation.WithMessage("volume is required")
	}

	actionType, err := directionAction(req.Direction)
	if err != nil {
		return err
	}

	conn, err := h.sessions.Open(c.UserContext(), req.Token, req.AccountID)
	if err != nil {
		return err
	}

	side := strings.ToLower(req.Direction)
	result, err := conn.MarketOrder(c.UserContext(), &metaapi.TradeRequest{
		ActionType: actionType,
		Symbol:     req.Symbol,
		Volume:     *req.Volume,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})
	if err != nil {
		metrics.RecordTradingOrder(side, "rejected")
		return err
	}
	metrics.RecordTradingOrder(side, "executed")

	h.publish(c, events.TopicTradeExecuted, events.EventTypeTradeExecuted, events.TradeExecutedPayload{
		AccountID:  req.AccountID,
		Symbol:     req.Symbol,
		Direction:  strings.ToUpper(req.Direction),
		Volume:     *req.Volume,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OrderID:    result.OrderID,
		PositionID: result.PositionID,
	})

	return c.JSON(types.TradeResponse{
		Success: true,
		Result: types.TradeResultView{
			Order:    result.OrderID,
			Position: result.PositionID,
			Status:   "executed",
		},
	})
}

func (h *Handler) GetPositions(c *fiber.Ctx) error {
	var req types.ConnectionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireFields(
		[2]string{"token", req.Token},
		[2]string{"accountId", req.AccountID},
	); err != nil {
		return err
	}

	conn, err := h.sessions.Open(c.UserContext(), req.Token, req.AccountID)
	if err != nil {
		return err
	}

	positions, err := conn.Positions(c.UserContext())
	if err != nil {
		return err
	}

	views := make([]types.PositionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, types.NewPositionView(p))
	}

	return c.JSON(types.PositionsResponse{Success: true, Positions: views})
}

func (h *Handler) ClosePosition(c *fiber.Ctx) error {
	var req types.ClosePositionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireFields(
		[2]string{"token", req.Token},
		[2]string{"accountId", req.AccountID},
		[2]string{"positionId", req.PositionID},
	); err != nil {
		return err
	}

	conn, err := h.sessions.Open(c.UserContext(), req.Token, req.AccountID)
	if err != nil {
		return err
	}

	result, err := conn.ClosePosition(c.UserContext(), req.PositionID)
	if err != nil {
		return err
	}

	h.publish(c, events.TopicPositionClosed, events.EventTypePositionClosed, events.PositionClosedPayload{
		AccountID:  req.AccountID,
		PositionID: req.PositionID,
		OrderID:    result.OrderID,
	})

	return c.JSON(types.ClosePositionResponse{
		Success: true,
		Result: types.CloseResultView{
			OrderID: result.OrderID,
			Message: fmt.Sprintf("Position %s closed", req.PositionID),
		},
	})
}

// CloseAllPositions closes every open position one at a time. A failed
// close is recorded in the result list and the loop continues; the
// aggregate response stays successful with a mixed result list.
func (h *Handler) CloseAllPositions(c *fiber.Ctx) error {
	var req types.ConnectionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireFields(
		[2]string{"token", req.Token},
		[2]string{"accountId", req.AccountID},
	); err != nil {
		return err
	}

	conn, err := h.sessions.Open(c.UserContext(), req.Token, req.AccountID)
	if err != nil {
		return err
	}

	positions, err := conn.Positions(c.UserContext())
	if err != nil {
		return err
	}

	results := make([]types.CloseItemResult, 0, len(positions))
	closed := 0
	for _, p := range positions {
		result, closeErr := conn.ClosePosition(c.UserContext(), p.ID)
		if closeErr != nil {
			h.log.Warn().
				Str("account_id", req.AccountID).
				Str("position_id", p.ID).
				Err(closeErr).
				Msg("failed to close position")

			results = append(results, types.CloseItemResult{
				PositionID: p.ID,
				Success:    false,
				Error:      closeErr.Error(),
			})
			continue
		}

		closed++
		results = append(results, types.CloseItemResult{
			PositionID: p.ID,
			Success:    true,
			OrderID:    result.OrderID,
		})

		h.publish(c, events.TopicPositionClosed, events.EventTypePositionClosed, events.PositionClosedPayload{
			AccountID:  req.AccountID,
			PositionID: p.ID,
			OrderID:    result.OrderID,
		})
	}

	return c.JSON(types.CloseAllResponse{
		Success: true,
		Message: fmt.Sprintf("Closed %d positions", closed),
		Results: results,
	})
}

func (h *Handler) GetHistory(c *fiber.Ctx) error {
	var req types.HistoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireFields(
		[2]string{"token", req.Token},
		[2]string{"accountId", req.AccountID},
	); err != nil {
		return err
	}

	limit := defaultHistoryLimit
	if req.Limit != nil {
		if *req.Limit <= 0 {
			return apperrors.ErrValidation.WithMessage("limit must be positive")
		}
		limit = *req.Limit
	}

	end := time.Now().UTC()
	start := end.Add(-defaultHistoryWindow)
	if req.StartTime != nil {
		parsed, parseErr := time.Parse(time.RFC3339, *req.StartTime)
		if parseErr != nil {
			return apperrors.ErrValidation.WithMessage("startTime must be an RFC 3339 timestamp")
		}
		start = parsed
	}

	conn, err := h.sessions.Open(c.UserContext(), req.Token, req.AccountID)
	if err != nil {
		return err
	}

	deals, err := conn.Deals(c.UserContext(), start, end)
	if err != nil {
		return err
	}

	// The provider is asked for the full window; the limit is applied here
	// so ordering is preserved and the first deals of the window win.
	if len(deals) > limit {
		deals = deals[:limit]
	}

	views := make([]types.DealView, 0, len(deals))
	for _, d := range deals {
		views = append(views, types.NewDealView(d))
	}

	return c.JSON(types.HistoryResponse{Success: true, Deals: views})
}

// publish fires an event without affecting the request outcome. Publish
// failures are logged and dropped.
func (h *Handler) publish(c *fiber.Ctx, topic, eventType string, payload any) {
	if h.publisher == nil {
		return
	}

	event := events.NewEvent(eventType, "metaapi-gateway", payload).
		WithCorrelationID(middleware.GetRequestID(c))

	if err := h.publisher.Publish(c.UserContext(), topic, event); err != nil {
		h.log.Error().
			Str("topic", topic).
			Str("event_type", eventType).
			Err(err).
			Msg("failed to publish event")
	}
}
