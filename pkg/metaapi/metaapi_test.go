package metaapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	apperrors "github.com/lakshcode9/metaapi-server-deploy/pkg/errors"
)

func testClient(serverURL string) Client {
	factory := NewFactory(Config{
		ProvisioningURL: serverURL,
		ClientURL:       serverURL,
		RequestTimeout:  5 * time.Second,
		DeployTimeout:   time.Second,
		SyncTimeout:     time.Second,
		PollInterval:    10 * time.Millisecond,
	})
	return factory.NewClient("test-token")
}

func TestAuthTokenHeader(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("auth-token")
		json.NewEncoder(w).Encode([]Account{})
	}))
	defer server.Close()

	client := testClient(server.URL)
	if _, err := client.ListAccounts(context.Background()); err != nil {
		t.Fatal(err)
	}

	if gotToken != "test-token" {
		t.Errorf("auth-token header = %q, want test-token", gotToken)
	}
}

func TestListAccounts_Pagination(t *testing.T) {
	const total = accountsPageSize + 3

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit != accountsPageSize {
			t.Errorf("limit = %d, want %d", limit, accountsPageSize)
		}

		var page []Account
		for i := offset; i < total && i < offset+limit; i++ {
			page = append(page, Account{ID: fmt.Sprintf("acct-%d", i)})
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	accounts, err := testClient(server.URL).ListAccounts(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(accounts) != total {
		t.Errorf("got %d accounts, want %d", len(accounts), total)
	}
	if accounts[0].ID != "acct-0" || accounts[total-1].ID != fmt.Sprintf("acct-%d", total-1) {
		t.Error("pagination did not preserve account order")
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "account not found"})
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetAccount(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error type = %T, want *AppError", err)
	}
	if appErr.Code != apperrors.ErrNotFound.Code {
		t.Errorf("code = %s, want %s", appErr.Code, apperrors.ErrNotFound.Code)
	}
	if appErr.Message != "account not found" {
		t.Errorf("message = %q, want the provider message", appErr.Message)
	}
}

func TestGetAccount_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetAccount(context.Background(), "any")

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrAuthentication.Code {
		t.Errorf("err = %v, want authentication error", err)
	}
}

func TestMarketOrder_RejectedRetcode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TradeResult{
			NumericCode: 10019,
			StringCode:  "TRADE_RETCODE_NO_MONEY",
			Message:     "No money",
		})
	}))
	defer server.Close()

	conn, err := testClient(server.URL).Connect(context.Background(), "acct")
	if err != nil {
		t.Fatal(err)
	}

	_, err = conn.MarketOrder(context.Background(), &TradeRequest{
		ActionType: ActionOrderTypeBuy,
		Symbol:     "EURUSD",
		Volume:     0.1,
	})
	if err == nil {
		t.Fatal("expected error on rejected retcode")
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrProviderOperation.Code {
		t.Errorf("err = %v, want provider operation error", err)
	}
	if !strings.Contains(appErr.Message, "No money") {
		t.Errorf("message = %q, want the provider rejection reason", appErr.Message)
	}
}

func TestMarketOrder_PartialFillSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TradeResult{
			StringCode: RetcodeDonePartial,
			OrderID:    "order-1",
			PositionID: "pos-1",
		})
	}))
	defer server.Close()

	conn, _ := testClient(server.URL).Connect(context.Background(), "acct")
	result, err := conn.MarketOrder(context.Background(), &TradeRequest{
		ActionType: ActionOrderTypeBuy,
		Symbol:     "EURUSD",
		Volume:     1,
	})
	if err != nil {
		t.Fatalf("partial fill should succeed: %v", err)
	}
	if result.PositionID != "pos-1" {
		t.Errorf("positionId = %s, want pos-1", result.PositionID)
	}
}

func TestWaitDeployed_Polls(t *testing.T) {
	var polls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		state := StateDeploying
		if polls > 2 {
			state = StateDeployed
		}
		json.NewEncoder(w).Encode(Account{ID: "acct", State: state})
	}))
	defer server.Close()

	account, err := testClient(server.URL).WaitDeployed(context.Background(), "acct")
	if err != nil {
		t.Fatal(err)
	}

	if account.State != StateDeployed {
		t.Errorf("state = %s, want %s", account.State, StateDeployed)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
}

func TestWaitDeployed_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Account{ID: "acct", State: StateDeploying})
	}))
	defer server.Close()

	factory := NewFactory(Config{
		ProvisioningURL: server.URL,
		ClientURL:       server.URL,
		DeployTimeout:   30 * time.Millisecond,
		PollInterval:    10 * time.Millisecond,
	})

	_, err := factory.NewClient("t").WaitDeployed(context.Background(), "acct")

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrProvisioning.Code {
		t.Errorf("err = %v, want provisioning error", err)
	}
}

func TestWaitSynchronized_Polls(t *testing.T) {
	var polls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := ConnectionStatusDisconnected
		if polls > 1 {
			status = ConnectionStatusConnected
		}
		json.NewEncoder(w).Encode(Account{ID: "acct", State: StateDeployed, ConnectionStatus: status})
	}))
	defer server.Close()

	conn, _ := testClient(server.URL).Connect(context.Background(), "acct")
	if err := conn.WaitSynchronized(context.Background()); err != nil {
		t.Fatal(err)
	}
	if polls != 2 {
		t.Errorf("polls = %d, want 2", polls)
	}
}

func TestDeals_TimeRangeURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]Deal{})
	}))
	defer server.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	conn, _ := testClient(server.URL).Connect(context.Background(), "acct")
	if _, err := conn.Deals(context.Background(), start, end); err != nil {
		t.Fatal(err)
	}

	want := "/users/current/accounts/acct/history-deals/time/2024-01-01T00:00:00Z/2024-01-31T00:00:00Z"
	if gotPath != want {
		t.Errorf("path = %s, want %s", gotPath, want)
	}
}

func TestConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := testClient(server.URL).ListAccounts(context.Background())

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrConnection.Code {
		t.Errorf("err = %v, want connection error", err)
	}
}
