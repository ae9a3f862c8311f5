package memrepo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/i2y/postcrawl-mcp/internal/domain"
	"github.com/i2y/postcrawl-mcp/internal/usecase"
)

// InMemoryToolRepository holds the tool catalog in memory. Save replaces the
// whole catalog; List returns tools in the order they were saved.
type InMemoryToolRepository struct {
	mu     sync.RWMutex
	tools  map[string]domain.Tool
	order  []string
	logger *slog.Logger
}

// NewInMemoryToolRepository creates a new in-memory repository.
func NewInMemoryToolRepository(logger *slog.Logger) *InMemoryToolRepository {
	return &InMemoryToolRepository{
		tools:  make(map[string]domain.Tool),
		logger: logger.With("component", "mem_repo"),
	}
}

// Save replaces the stored catalog with tools. Tools with an empty name are
// skipped; a duplicate name fails the save and leaves the previous catalog intact.
func (r *InMemoryToolRepository) Save(ctx context.Context, tools []domain.Tool) error {
	next := make(map[string]domain.Tool, len(tools))
	order := make([]string, 0, len(tools))

	for i, tool := range tools {
		if tool.Name == "" {
			r.logger.Warn("Skipping tool with empty name during save", slog.Int("index", i))
			continue
		}
		if _, dup := next[tool.Name]; dup {
			r.logger.Error("Duplicate tool name", slog.String("tool_name", tool.Name))
			return fmt.Errorf("save failed: duplicate tool name %q", tool.Name)
		}
		next[tool.Name] = tool
		order = append(order, tool.Name)
	}

	r.mu.Lock()
	r.tools = next
	r.order = order
	r.mu.Unlock()

	r.logger.Info("Saved tools", slog.Int("count", len(order)))
	return nil
}

// List returns all stored tools in save order.
func (r *InMemoryToolRepository) List(ctx context.Context) ([]domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	r.logger.Debug("Listed tools from repository", slog.Int("count", len(list)))
	return list, nil
}

// FindToolByName retrieves a tool definition by its name.
func (r *InMemoryToolRepository) FindToolByName(ctx context.Context, name string) (*domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn("Tool definition not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	return &tool, nil
}
