package metaapi

import (
	"context"
	"time"
)

// Factory builds a provider client bound to a caller-supplied token.
// The gateway is stateless, so every request constructs its own client.
type Factory interface {
	NewClient(token string) Client
}

// Client covers the MetaApi account directory and lifecycle operations.
type Client interface {
	// ListAccounts returns every account visible to the token. The
	// provider paginates; the client flattens to one list.
	ListAccounts(ctx context.Context) ([]Account, error)

	// GetAccount resolves an account identifier.
	GetAccount(ctx context.Context, accountID string) (*Account, error)

	// DeployAccount asks the provider to provision the account's terminal.
	DeployAccount(ctx context.Context, accountID string) error

	// WaitDeployed blocks until the provider reports the account deployed
	// and returns the refreshed account.
	WaitDeployed(ctx context.Context, accountID string) (*Account, error)

	// Connect opens a trading channel to a deployed account. The channel
	// is not usable until WaitSynchronized succeeds.
	Connect(ctx context.Context, accountID string) (Connection, error)
}

// Connection is a per-request trading channel to one account.
type Connection interface {
	// WaitSynchronized blocks until the provider has replicated account
	// state to the channel.
	WaitSynchronized(ctx context.Context) error

	AccountInformation(ctx context.Context) (*AccountInformation, error)
	Positions(ctx context.Context) ([]Position, error)
	MarketOrder(ctx context.Context, req *TradeRequest) (*TradeResult, error)
	ClosePosition(ctx context.Context, positionID string) (*TradeResult, error)

	// Deals returns the executed-trade history inside [start, end],
	// oldest first, exactly as the provider reports it.
	Deals(ctx context.Context, start, end time.Time) ([]Deal, error)
}

// Ensure the REST and mock implementations satisfy the interfaces.
var (
	_ Factory    = (*ClientFactory)(nil)
	_ Client     = (*restClient)(nil)
	_ Connection = (*restConnection)(nil)
	_ Factory    = (*MockFactory)(nil)
	_ Client     = (*MockClient)(nil)
	_ Connection = (*MockConnection)(nil)
)
