package usecase_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/i2y/postcrawl-mcp/internal/domain"
	"github.com/i2y/postcrawl-mcp/internal/usecase"
)

// MockToolRepository is a mock implementation of the ToolRepository interface.
type MockToolRepository struct {
	mock.Mock
}

func (m *MockToolRepository) Save(ctx context.Context, tools []domain.Tool) error {
	args := m.Called(ctx, tools)
	return args.Error(0)
}

func (m *MockToolRepository) List(ctx context.Context) ([]domain.Tool, error) {
	args := m.Called(ctx)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]domain.Tool), args.Error(1)
}

func (m *MockToolRepository) FindToolByName(ctx context.Context, name string) (*domain.Tool, error) {
	args := m.Called(ctx, name)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*domain.Tool), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestServeToolsUseCase_Execute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	logger := testLogger()

	expectedTools := domain.Catalog()
	repoError := errors.New("repository error")

	tests := []struct {
		name          string
		mockSetup     func(*MockToolRepository)
		wantErr       bool
		wantTools     []domain.Tool
		expectErrText string
	}{
		{
			name: "Success - catalog listed",
			mockSetup: func(repo *MockToolRepository) {
				repo.On("List", ctx).Return(expectedTools, nil).Once()
			},
			wantTools: expectedTools,
		},
		{
			name: "Success - empty repository",
			mockSetup: func(repo *MockToolRepository) {
				repo.On("List", ctx).Return([]domain.Tool{}, nil).Once()
			},
			wantTools: []domain.Tool{},
		},
		{
			name: "Failure - repository error",
			mockSetup: func(repo *MockToolRepository) {
				repo.On("List", ctx).Return(nil, repoError).Once()
			},
			wantErr:       true,
			expectErrText: "failed to list tools from repository: repository error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockToolRepository)
			tt.mockSetup(mockRepo)

			uc := usecase.NewServeToolsUseCase(mockRepo, logger)
			actualTools, err := uc.Execute(ctx)

			if tt.wantErr {
				assert.EqualError(err, tt.expectErrText)
				assert.Nil(actualTools)
			} else {
				assert.NoError(err)
				assert.Equal(tt.wantTools, actualTools)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}
