package client_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-auth-starter"
	"github.com/goliatone/go-auth-starter/client"
)

type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) Register(ctx context.Context, req client.RegisterRequest) (*auth.AuthResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*auth.AuthResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) Login(ctx context.Context, email, password string) (*auth.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if res := args.Get(0); res != nil {
		return res.(*auth.AuthResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) Refresh(ctx context.Context, refreshToken string) (*auth.AuthResult, error) {
	args := m.Called(ctx, refreshToken)
	if res := args.Get(0); res != nil {
		return res.(*auth.AuthResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}
