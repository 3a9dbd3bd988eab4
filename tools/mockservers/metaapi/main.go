package main

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
)

// =============================================================================
// MetaApi Mock Server
// =============================================================================
// This server simulates the MetaApi provisioning and client APIs for
// integration testing. It supports:
// - Account directory (paginated) and lookup
// - Account deployment lifecycle (UNDEPLOYED -> DEPLOYING -> DEPLOYED)
// - Account information
// - Trade execution (market orders, position close)
// - Open positions and deal history
// Both APIs are served from one process; point the gateway's provisioning
// and client URLs at the same address.
// =============================================================================

type Server struct {
	mu        sync.RWMutex
	accounts  map[string]*Account
	info      AccountInformation
	positions []*Position
	deals     []Deal
}

type Account struct {
	ID               string `json:"_id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Login            string `json:"login"`
	Server           string `json:"server"`
	Region           string `json:"region"`
	State            string `json:"state"`
	ConnectionStatus string `json:"connectionStatus"`
	Magic            int    `json:"magic"`

	deployStarted time.Time
}

type AccountInformation struct {
	Broker     string  `json:"broker"`
	Currency   string  `json:"currency"`
	Server     string  `json:"server"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"freeMargin"`
	Leverage   int     `json:"leverage"`
	Name       string  `json:"name"`
	Login      int64   `json:"login"`
	Platform   string  `json:"platform"`
	Type       string  `json:"type"`
}

type Position struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Type         string    `json:"type"`
	Volume       float64   `json:"volume"`
	OpenPrice    float64   `json:"openPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	Profit       float64   `json:"profit"`
	Time         time.Time `json:"time"`
}

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
	Time       time.Time `json:"time"`
}

// deployDelay is how long an account stays DEPLOYING before the mock
// reports it DEPLOYED.
const deployDelay = 2 * time.Second

func NewServer() *Server {
	return &Server{
		accounts: map[string]*Account{
			"mock-account-id": {
				ID:               "mock-account-id",
				Name:             "Mock Trading Account",
				Type:             "cloud-g2",
				Login:            "10001234",
				Server:           "MockBroker-Demo",
				Region:           "new-york",
				State:            "DEPLOYED",
				ConnectionStatus: "CONNECTED",
			},
			"undeployed-account-id": {
				ID:               "undeployed-account-id",
				Name:             "Sleeping Account",
				Type:             "cloud-g2",
				Login:            "10005678",
				Server:           "MockBroker-Demo",
				Region:           "london",
				State:            "UNDEPLOYED",
				ConnectionStatus: "DISCONNECTED",
			},
		},
		info: AccountInformation{
			Broker:     "Mock Broker Ltd",
			Currency:   "USD",
			Server:     "MockBroker-Demo",
			Balance:    100000,
			Equity:     100523.50,
			Margin:     1200,
			FreeMargin: 99323.50,
			Leverage:   100,
			Name:       "Mock Trading Account",
			Login:      10001234,
			Platform:   "mt5",
			Type:       "ACCOUNT_TRADE_MODE_DEMO",
		},
	}
}

func main() {
	server := NewServer()

	app := fiber.New(fiber.Config{
		AppName: "MetaApi Mock Server",
	})

	app.Use(logger.New())

	// Authentication middleware
	app.Use(func(c *fiber.Ctx) error {
		if c.Path() == "/health" || c.Path() == "/admin/reset" {
			return c.Next()
		}
		if c.Get("auth-token") == "" {
			return c.Status(401).JSON(fiber.Map{"message": "Authorization token is missing"})
		}
		return c.Next()
	})

	// Provisioning API
	app.Get("/users/current/accounts", server.listAccounts)
	app.Get("/users/current/accounts/:id", server.getAccount)
	app.Post("/users/current/accounts/:id/deploy", server.deployAccount)

	// Client API
	app.Get("/users/current/accounts/:id/account-information", server.getAccountInformation)
	app.Get("/users/current/accounts/:id/positions", server.listPositions)
	app.Post("/users/current/accounts/:id/trade", server.trade)
	app.Get("/users/current/accounts/:id/history-deals/time/:start/:end", server.listDeals)

	// Admin endpoints
	app.Post("/admin/reset", server.reset)
	app.Post("/admin/seed-position", server.seedPosition)
	app.Post("/admin/seed-deal", server.seedDeal)
	app.Get("/admin/state", server.getState)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "metaapi-mock"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8093"
	}

	log.Printf("MetaApi Mock Server starting on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

// =============================================================================
// Provisioning API
// =============================================================================

func (s *Server) listAccounts(c *fiber.Ctx) error {
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		s.advanceDeployment(account)
		accounts = append(accounts, *account)
	}

	if offset >= len(accounts) {
		return c.JSON([]Account{})
	}
	end := offset + limit
	if end > len(accounts) {
		end = len(accounts)
	}
	return c.JSON(accounts[offset:end])
}

func (s *Server) getAccount(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, exists := s.accounts[c.Params("id")]
	if !exists {
		return c.Status(404).JSON(fiber.Map{"message": "Account not found"})
	}

	s.advanceDeployment(account)
	return c.JSON(account)
}

func (s *Server) deployAccount(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, exists := s.accounts[c.Params("id")]
	if !exists {
		return c.Status(404).JSON(fiber.Map{"message": "Account not found"})
	}

	if account.State != "DEPLOYED" {
		account.State = "DEPLOYING"
		account.deployStarted = time.Now()
	}

	return c.SendStatus(204)
}

// advanceDeployment flips DEPLOYING accounts to DEPLOYED once the delay
// has passed. Callers hold the lock.
func (s *Server) advanceDeployment(account *Account) {
	if account.State == "DEPLOYING" && time.Since(account.deployStarted) >= deployDelay {
		account.State = "DEPLOYED"
		account.ConnectionStatus = "CONNECTED"
	}
}

// =============================================================================
// Client API
// =============================================================================

func (s *Server) getAccountInformation(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.accounts[c.Params("id")]; !exists {
		return c.Status(404).JSON(fiber.Map{"message": "Account not found"})
	}
	return c.JSON(s.info)
}

func (s *Server) listPositions(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make([]Position, 0, len(s.positions))
	for _, pos := range s.positions {
		positions = append(positions, *pos)
	}
	return c.JSON(positions)
}

type TradeRequest struct {
	ActionType string  `json:"actionType"`
	Symbol     string  `json:"symbol"`
	Volume     float64 `json:"volume"`
	PositionID string  `json:"positionId"`
}

type TradeResult struct {
	NumericCode int    `json:"numericCode"`
	StringCode  string `json:"stringCode"`
	Message     string `json:"message"`
	OrderID     string `json:"orderId"`
	PositionID  string `json:"positionId"`
}

func (s *Server) trade(c *fiber.Ctx) error {
	var req TradeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid request body"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.ActionType {
	case "ORDER_TYPE_BUY", "ORDER_TYPE_SELL":
		if req.Symbol == "" || req.Volume <= 0 {
			return c.JSON(TradeResult{
				NumericCode: 10013,
				StringCode:  "TRADE_RETCODE_INVALID",
				Message:     "Invalid request",
			})
		}

		positionType := "POSITION_TYPE_BUY"
		if req.ActionType == "ORDER_TYPE_SELL" {
			positionType = "POSITION_TYPE_SELL"
		}

		positionID := uuid.New().String()
		orderID := uuid.New().String()
		price := s.mockPrice(req.Symbol)

		s.positions = append(s.positions, &Position{
			ID:           positionID,
			Symbol:       req.Symbol,
			Type:         positionType,
			Volume:       req.Volume,
			OpenPrice:    price,
			CurrentPrice: price,
			Time:         time.Now().UTC(),
		})
		s.deals = append(s.deals, Deal{
			ID:         uuid.New().String(),
			OrderID:    orderID,
			PositionID: positionID,
			Symbol:     req.Symbol,
			Type:       dealTypeFor(req.ActionType),
			EntryType:  "DEAL_ENTRY_IN",
			Volume:     req.Volume,
			Price:      price,
			Time:       time.Now().UTC(),
		})

		return c.JSON(TradeResult{
			NumericCode: 10009,
			StringCode:  "TRADE_RETCODE_DONE",
			Message:     "Request completed",
			OrderID:     orderID,
			PositionID:  positionID,
		})

	case "POSITION_CLOSE_ID":
		for i, pos := range s.positions {
			if pos.ID == req.PositionID {
				orderID := uuid.New().String()
				s.deals = append(s.deals, Deal{
					ID:         uuid.New().String(),
					OrderID:    orderID,
					PositionID: pos.ID,
					Symbol:     pos.Symbol,
					Type:       "DEAL_TYPE_SELL",
					EntryType:  "DEAL_ENTRY_OUT",
					Volume:     pos.Volume,
					Price:      s.mockPrice(pos.Symbol),
					Time:       time.Now().UTC(),
				})
				s.positions = append(s.positions[:i], s.positions[i+1:]...)

				return c.JSON(TradeResult{
					NumericCode: 10009,
					StringCode:  "TRADE_RETCODE_DONE",
					Message:     "Request completed",
					OrderID:     orderID,
					PositionID:  req.PositionID,
				})
			}
		}
		return c.Status(404).JSON(fiber.Map{"message": "Position not found"})

	default:
		return c.JSON(TradeResult{
			NumericCode: 10013,
			StringCode:  "TRADE_RETCODE_INVALID",
			Message:     "Unsupported action type",
		})
	}
}

func (s *Server) mockPrice(symbol string) float64 {
	prices := map[string]float64{
		"EURUSD": 1.0855,
		"GBPUSD": 1.2701,
		"USDJPY": 149.85,
		"XAUUSD": 2035.40,
		"BTCUSD": 43250.00,
	}
	if price, ok := prices[symbol]; ok {
		return price
	}
	return 100.00
}

func dealTypeFor(actionType string) string {
	if actionType == "ORDER_TYPE_SELL" {
		return "DEAL_TYPE_SELL"
	}
	return "DEAL_TYPE_BUY"
}

func (s *Server) listDeals(c *fiber.Ctx) error {
	start, err := time.Parse(time.RFC3339, c.Params("start"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid start time"})
	}
	end, err := time.Parse(time.RFC3339, c.Params("end"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid end time"})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	deals := make([]Deal, 0)
	for _, deal := range s.deals {
		if !deal.Time.Before(start) && !deal.Time.After(end) {
			deals = append(deals, deal)
		}
	}
	return c.JSON(deals)
}

// =============================================================================
// Admin
// =============================================================================

func (s *Server) reset(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := NewServer()
	s.accounts = fresh.accounts
	s.info = fresh.info
	s.positions = nil
	s.deals = nil

	return c.JSON(fiber.Map{"status": "reset complete"})
}

func (s *Server) seedPosition(c *fiber.Ctx) error {
	var pos Position
	if err := c.BodyParser(&pos); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid request"})
	}
	if pos.ID == "" {
		pos.ID = uuid.New().String()
	}

	s.mu.Lock()
	s.positions = append(s.positions, &pos)
	s.mu.Unlock()

	return c.JSON(pos)
}

func (s *Server) seedDeal(c *fiber.Ctx) error {
	var deal Deal
	if err := c.BodyParser(&deal); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid request"})
	}
	if deal.ID == "" {
		deal.ID = uuid.New().String()
	}

	s.mu.Lock()
	s.deals = append(s.deals, deal)
	s.mu.Unlock()

	return c.JSON(deal)
}

func (s *Server) getState(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return c.JSON(fiber.Map{
		"accounts":  s.accounts,
		"positions": s.positions,
		"deals":     s.deals,
	})
}
