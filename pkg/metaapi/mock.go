package metaapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lakshcode9/metaapi-server-deploy/pkg/errors"
)

// MockFactory hands out a shared MockClient and records every token it
// was asked to build a client for.
type MockFactory struct {
	mu     sync.Mutex
	client *MockClient
	Tokens []string
}

// NewMockFactory creates a factory around a fresh MockClient.
func NewMockFactory() *MockFactory {
	return &MockFactory{client: NewMockClient()}
}

func (f *MockFactory) NewClient(token string) Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tokens = append(f.Tokens, token)
	return f.client
}

// Client returns the shared mock for seeding and inspection.
func (f *MockFactory) Client() *MockClient {
	return f.client
}

// MockClient is an in-memory MetaApi implementation for testing.
type MockClient struct {
	mu sync.RWMutex

	accounts    map[string]*Account
	accountInfo *AccountInformation
	positions   []Position
	deals       []Deal

	// closeErrors maps position IDs to errors returned when closing them.
	closeErrors map[string]error

	calls     map[string]int
	LastTrade *TradeRequest

	LastDealsStart time.Time
	LastDealsEnd   time.Time
}

// NewMockClient creates a mock pre-seeded with one deployed, connected
// account and a funded account snapshot.
func NewMockClient() *MockClient {
	return &MockClient{
		accounts: map[string]*Account{
			"mock-account-id": {
				ID:               "mock-account-id",
				Name:             "Mock Trading Account",
				Type:             "cloud-g2",
				Login:            "10001234",
				Server:           "MockBroker-Demo",
				Region:           "new-york",
				State:            StateDeployed,
				ConnectionStatus: ConnectionStatusConnected,
				Magic:            0,
			},
		},
		accountInfo: &AccountInformation{
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
		closeErrors: make(map[string]error),
		calls:       make(map[string]int),
	}
}

func (m *MockClient) recordCall(name string) {
	m.calls[name]++
}

// CallCount returns how many times the named operation ran.
func (m *MockClient) CallCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[name]
}

// TotalCalls returns the number of provider operations across all methods.
func (m *MockClient) TotalCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// AddAccount seeds an account into the directory.
func (m *MockClient) AddAccount(account *Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

// SetState overrides the lifecycle state of a seeded account.
func (m *MockClient) SetState(accountID, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account, ok := m.accounts[accountID]; ok {
		account.State = state
	}
}

// AddPosition seeds an open position.
func (m *MockClient) AddPosition(p Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = append(m.positions, p)
}

// AddDeal seeds a historical deal.
func (m *MockClient) AddDeal(d Deal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals = append(m.deals, d)
}

// SetCloseError makes closing the given position fail with err.
func (m *MockClient) SetCloseError(positionID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeErrors[positionID] = err
}

func (m *MockClient) ListAccounts(ctx context.Context) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("ListAccounts")

	accounts := make([]Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		accounts = append(accounts, *account)
	}
	return accounts, nil
}

func (m *MockClient) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("GetAccount")

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound.WithMessagef("account %s not found", accountID)
	}
	copied := *account
	return &copied, nil
}

func (m *MockClient) DeployAccount(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("DeployAccount")

	account, ok := m.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound.WithMessagef("account %s not found", accountID)
	}
	account.State = StateDeploying
	return nil
}

// WaitDeployed resolves immediately, flipping the account to DEPLOYED.
func (m *MockClient) WaitDeployed(ctx context.Context, accountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("WaitDeployed")

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound.WithMessagef("account %s not found", accountID)
	}
	account.State = StateDeployed
	copied := *account
	return &copied, nil
}

func (m *MockClient) Connect(ctx context.Context, accountID string) (Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("Connect")

	if _, ok := m.accounts[accountID]; !ok {
		return nil, apperrors.ErrNotFound.WithMessagef("account %s not found", accountID)
	}
	return &MockConnection{client: m, accountID: accountID}, nil
}

// MockConnection delegates every trading operation to its MockClient.
type MockConnection struct {
	client    *MockClient
	accountID string
}

func (cn *MockConnection) WaitSynchronized(ctx context.Context) error {
	cn.client.mu.Lock()
	defer cn.client.mu.Unlock()
	cn.client.recordCall("WaitSynchronized")
	return nil
}

func (cn *MockConnection) AccountInformation(ctx context.Context) (*AccountInformation, error) {
	cn.client.mu.Lock()
	defer cn.client.mu.Unlock()
	cn.client.recordCall("AccountInformation")

	copied := *cn.client.accountInfo
	return &copied, nil
}

func (cn *MockConnection) Positions(ctx context.Context) ([]Position, error) {
	cn.client.mu.Lock()
	defer cn.client.mu.Unlock()
	cn.client.recordCall("Positions")

	positions := make([]Position, len(cn.client.positions))
	copy(positions, cn.client.positions)
	return positions, nil
}

func (cn *MockConnection) MarketOrder(ctx context.Context, req *TradeRequest) (*TradeResult, error) {
	cn.client.mu.Lock()
	defer cn.client.mu.Unlock()
	cn.client.recordCall("MarketOrder")
	cn.client.LastTrade = req

	if req.ActionType == ActionPositionCloseID {
		return cn.close(req.PositionID)
	}

	positionID := uuid.NewString()
	cn.client.positions = append(cn.client.positions, Position{
		ID:     positionID,
		Symbol: req.Symbol,
		Type:   positionTypeFor(req.ActionType),
		Volume: req.Volume,
		Time:   time.Now().UTC(),
	})

	return &TradeResult{
		NumericCode: 10009,
		StringCode:  RetcodeDone,
		Message:     "Request completed",
		OrderID:     uuid.NewString(),
		PositionID:  positionID,
	}, nil
}

func (cn *MockConnection) ClosePosition(ctx context.Context, positionID string) (*TradeResult, error) {
	cn.client.mu.Lock()
	defer cn.client.mu.Unlock()
	cn.client.recordCall("ClosePosition")
	cn.client.LastTrade = &TradeRequest{ActionType: ActionPositionCloseID, PositionID: positionID}

	return cn.close(positionID)
}

// close removes a position, honoring seeded failures. Callers hold the lock.
func (cn *MockConnection) close(positionID string) (*TradeResult, error) {
	if err, ok := cn.client.closeErrors[positionID]; ok {
		return nil, err
	}

	for i, p := range cn.client.positions {
		if p.ID == positionID {
			cn.client.positions = append(cn.client.positions[:i], cn.client.positions[i+1:]...)
			return &TradeResult{
				NumericCode: 10009,
				StringCode:  RetcodeDone,
				Message:     "Request completed",
				OrderID:     uuid.NewString(),
				PositionID:  positionID,
			}, nil
		}
	}
	return nil, apperrors.ErrNotFound.WithMessagef("position %s not found", positionID)
}

func (cn *MockConnection) Deals(ctx context.Context, start, end time.Time) ([]Deal, error) {
	cn.client.mu.Lock()
	defer cn.client.mu.Unlock()
	cn.client.recordCall("Deals")
	cn.client.LastDealsStart = start
	cn.client.LastDealsEnd = end

	deals := make([]Deal, len(cn.client.deals))
	copy(deals, cn.client.deals)
	return deals, nil
}

func positionTypeFor(actionType string) string {
	if actionType == ActionOrderTypeSell {
		return "POSITION_TYPE_SELL"
	}
	return "POSITION_TYPE_BUY"
}
