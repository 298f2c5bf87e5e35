package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"legalpipe/internal/model"
)

type MockFacultadRepository struct {
	mock.Mock
}

func (m *MockFacultadRepository) ListFacultades(ctx context.Context) ([]model.Facultad, error) {
	args := m.Called(ctx)
	var items []model.Facultad
	if v := args.Get(0); v != nil {
		items = v.([]model.Facultad)
	}
	return items, args.Error(1)
}
