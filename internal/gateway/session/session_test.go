package session

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/lakshcode9/metaapi-server-deploy/pkg/errors"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/metaapi"
)

func TestClient_EmptyToken(t *testing.T) {
	factory := metaapi.NewMockFactory()
	manager := NewManager(factory)

	_, err := manager.Client("")

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrAuthentication.Code {
		t.Errorf("err = %v, want authentication error", err)
	}
	if len(factory.Tokens) != 0 {
		t.Error("factory must not be invoked for an empty token")
	}
}

func TestOpen_UnknownAccount(t *testing.T) {
	manager := NewManager(metaapi.NewMockFactory())

	_, err := manager.Open(context.Background(), "token", "no-such-account")

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrNotFound.Code {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestOpen_DeployedAccountSkipsDeploy(t *testing.T) {
	factory := metaapi.NewMockFactory()
	manager := NewManager(factory)

	conn, err := manager.Open(context.Background(), "token", "mock-account-id")
	if err != nil {
		t.Fatal(err)
	}
	if conn == nil {
		t.Fatal("expected a connection")
	}

	mock := factory.Client()
	if n := mock.CallCount("DeployAccount"); n != 0 {
		t.Errorf("DeployAccount calls = %d, want 0 for a deployed account", n)
	}
	if n := mock.CallCount("WaitSynchronized"); n != 1 {
		t.Errorf("WaitSynchronized calls = %d, want 1", n)
	}
}

func TestOpen_UndeployedAccountDeploys(t *testing.T) {
	factory := metaapi.NewMockFactory()
	mock := factory.Client()
	mock.AddAccount(&metaapi.Account{
		ID:    "sleeping-account",
		State: metaapi.StateUndeployed,
	})

	manager := NewManager(factory)
	if _, err := manager.Open(context.Background(), "token", "sleeping-account"); err != nil {
		t.Fatal(err)
	}

	if n := mock.CallCount("DeployAccount"); n != 1 {
		t.Errorf("DeployAccount calls = %d, want 1", n)
	}
	if n := mock.CallCount("WaitDeployed"); n != 1 {
		t.Errorf("WaitDeployed calls = %d, want 1", n)
	}
}
