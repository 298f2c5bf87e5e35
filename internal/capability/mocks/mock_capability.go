package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"legalpipe/internal/model"
)

type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

type MockStructuredExtractor struct {
	mock.Mock
}

func (m *MockStructuredExtractor) Classify(ctx context.Context, filename, text string) (model.Classification, error) {
	args := m.Called(ctx, filename, text)
	return args.Get(0).(model.Classification), args.Error(1)
}

func (m *MockStructuredExtractor) ExtractDates(ctx context.Context, filename, text string) ([]string, error) {
	args := m.Called(ctx, filename, text)
	var dates []string
	if v := args.Get(0); v != nil {
		dates = v.([]string)
	}
	return dates, args.Error(1)
}

func (m *MockStructuredExtractor) ExtractFields(ctx context.Context, filename, text string, class model.Classification) (map[string]string, error) {
	args := m.Called(ctx, filename, text, class)
	var fields map[string]string
	if v := args.Get(0); v != nil {
		fields = v.(map[string]string)
	}
	return fields, args.Error(1)
}

func (m *MockStructuredExtractor) VerifyPower(ctx context.Context, chunk string, f model.Facultad) (model.PowerFinding, error) {
	args := m.Called(ctx, chunk, f)
	return args.Get(0).(model.PowerFinding), args.Error(1)
}

type MockEmbeddingStore struct {
	mock.Mock
}

func (m *MockEmbeddingStore) Upsert(ctx context.Context, company string, chunks []model.Chunk) (int, error) {
	args := m.Called(ctx, company, chunks)
	return args.Int(0), args.Error(1)
}
