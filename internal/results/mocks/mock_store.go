package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveStage(ctx context.Context, company, stage string, payload any) error {
	args := m.Called(ctx, company, stage, payload)
	return args.Error(0)
}

func (m *MockStore) LoadStage(ctx context.Context, company, stage string, out any) error {
	args := m.Called(ctx, company, stage, out)
	if f, ok := args.Get(0).(func(out any)); ok {
		f(out)
		return args.Error(1)
	}
	return args.Error(0)
}

func (m *MockStore) DeleteStage(ctx context.Context, company, stage string) error {
	args := m.Called(ctx, company, stage)
	return args.Error(0)
}
