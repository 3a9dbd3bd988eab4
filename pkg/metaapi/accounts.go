package metaapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/lakshcode9/metaapi-server-deploy/pkg/errors"
)

// Account lifecycle states and connectivity statuses as MetaApi reports
// them.
const (
	StateDeployed   = "DEPLOYED"
	StateDeploying  = "DEPLOYING"
	StateUndeployed = "UNDEPLOYED"

	ConnectionStatusConnected    = "CONNECTED"
	ConnectionStatusDisconnected = "DISCONNECTED"
)

// Account is a trading account in the MetaApi directory.
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
}

// accountsPageSize is the directory page size requested from the provider.
const accountsPageSize = 100

// ListAccounts retrieves every account visible to the token, walking the
// provider's pagination and flattening to a single list.
func (c *restClient) ListAccounts(ctx context.Context) (accounts []Account, err error) {
	start := time.Now()
	defer func() { record("list_accounts", start, err) }()

	for offset := 0; ; offset += accountsPageSize {
		url := fmt.Sprintf("%s/users/current/accounts?offset=%d&limit=%d", c.cfg.ProvisioningURL, offset, accountsPageSize)
		resp, reqErr := c.doRequest(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return nil, reqErr
		}

		var page []Account
		if err = decodeResponse(resp, &page); err != nil {
			return nil, err
		}

		accounts = append(accounts, page...)
		if len(page) < accountsPageSize {
			return accounts, nil
		}
	}
}

// GetAccount resolves an account identifier via the directory.
func (c *restClient) GetAccount(ctx context.Context, accountID string) (account *Account, err error) {
	start := time.Now()
	defer func() { record("get_account", start, err) }()

	url := fmt.Sprintf("%s/users/current/accounts/%s", c.cfg.ProvisioningURL, accountID)
	resp, reqErr := c.doRequest(ctx, http.MethodGet, url, nil)
	if reqErr != nil {
		return nil, reqErr
	}

	account = &Account{}
	if err = decodeResponse(resp, account); err != nil {
		return nil, err
	}
	return account, nil
}

// DeployAccount triggers provisioning of the account's terminal. Deploying
// an already-deployed account is a provider-side no-op.
func (c *restClient) DeployAccount(ctx context.Context, accountID string) (err error) {
	start := time.Now()
	defer func() { record("deploy_account", start, err) }()

	url := fmt.Sprintf("%s/users/current/accounts/%s/deploy", c.cfg.ProvisioningURL, accountID)
	resp, reqErr := c.doRequest(ctx, http.MethodPost, url, nil)
	if reqErr != nil {
		return reqErr
	}

	return decodeResponse(resp, nil)
}

// WaitDeployed polls the directory until the account reports DEPLOYED or
// the deploy timeout elapses.
func (c *restClient) WaitDeployed(ctx context.Context, accountID string) (*Account, error) {
	deadline := time.Now().Add(c.cfg.DeployTimeout)

	for {
		account, err := c.GetAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if account.State == StateDeployed {
			return account, nil
		}

		if time.Now().After(deadline) {
			return nil, apperrors.ErrProvisioning.WithMessagef(
				"account %s did not reach state %s within %s (state: %s)",
				accountID, StateDeployed, c.cfg.DeployTimeout, account.State)
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.ErrProvisioning.WithError(ctx.Err())
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// Connect opens a trading channel to the account. The channel must be
// synchronized via WaitSynchronized before use.
func (c *restClient) Connect(ctx context.Context, accountID string) (Connection, error) {
	return &restConnection{client: c, accountID: accountID}, nil
}
