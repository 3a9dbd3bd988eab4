// Package session turns a per-request credential into a synchronized
// trading channel: resolve the account, ensure it is deployed, connect,
// and wait for state replication. Nothing is cached between requests.
package session

import (
	"context"

	"github.com/rs/zerolog"

	apperrors "github.com/lakshcode9/metaapi-server-deploy/pkg/errors"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/logger"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/metaapi"
)

// Manager builds per-request provider sessions from a client factory.
type Manager struct {
	factory metaapi.Factory
	log     zerolog.Logger
}

// NewManager creates a session manager around the given factory.
func NewManager(factory metaapi.Factory) *Manager {
	return &Manager{
		factory: factory,
		log:     logger.With("session"),
	}
}

// Client returns a provider client for the token without touching an
// account. Used by operations that only need the account directory.
func (m *Manager) Client(token string) (metaapi.Client, error) {
	if token == "" {
		return nil, apperrors.ErrAuthentication.WithMessage("token is required")
	}
	return m.factory.NewClient(token), nil
}

// Open runs the full session chain for one account: resolve, deploy if
// needed, connect, synchronize. The returned connection is valid for the
// lifetime of the calling request only.
func (m *Manager) Open(ctx context.Context, token, accountID string) (metaapi.Connection, error) {
	client, err := m.Client(token)
	if err != nil {
		return nil, err
	}

	account, err := client.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account.State != metaapi.StateDeployed {
		m.log.Info().
			Str("account_id", accountID).
			Str("state", account.State).
			Msg("account not deployed, deploying")

		if err := client.DeployAccount(ctx, accountID); err != nil {
			return nil, err
		}
		if _, err := client.WaitDeployed(ctx, accountID); err != nil {
			return nil, err
		}
	}

	conn, err := client.Connect(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := conn.WaitSynchronized(ctx); err != nil {
		return nil, err
	}

	return conn, nil
}
