// Package memory provides the per-project memory item store: durable facts,
// preferences, and corrections that outlive any single session.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coreassist/coreassist/internal/id"
	"github.com/coreassist/coreassist/internal/storage"
	"github.com/coreassist/coreassist/pkg/types"
)

// ErrNotFound is returned when a memory item does not exist in a project.
var ErrNotFound = errors.New("memory item not found")

// Store persists a project's memory items as one JSON file at
// memory/<project_id>.
type Store struct {
	storage *storage.Storage
}

// NewStore creates a memory store backed by the given storage.
func NewStore(store *storage.Storage) *Store {
	return &Store{storage: store}
}

func path(projectID string) []string {
	return []string{"memory", projectID}
}

// load returns the project's items, or an empty list if the file doesn't exist yet.
func (s *Store) load(ctx context.Context, projectID string) ([]types.MemoryItem, error) {
	var items []types.MemoryItem
	err := s.storage.Get(ctx, path(projectID), &items)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Add appends a new item to the project's memory and returns it.
func (s *Store) Add(ctx context.Context, projectID string, content string, category types.MemoryCategory, tags []string, pinned bool) (*types.MemoryItem, error) {
	items, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	item := types.MemoryItem{
		ID:          id.New(id.Memory),
		Content:     content,
		Category:    category,
		Tags:        tags,
		Pinned:      pinned,
		CreatedAt:   now,
		AccessedAt:  now,
		AccessCount: 0,
	}

	items = append(items, item)
	if err := s.storage.Put(ctx, path(projectID), items); err != nil {
		return nil, fmt.Errorf("failed to save memory item: %w", err)
	}
	return &item, nil
}

// Get returns the item by ID, bumping AccessedAt and AccessCount on the hit.
func (s *Store) Get(ctx context.Context, projectID, itemID string) (*types.MemoryItem, error) {
	var items []types.MemoryItem
	var found *types.MemoryItem

	err := s.storage.Update(ctx, path(projectID), &items, func() error {
		for i := range items {
			if items[i].ID == itemID {
				items[i].AccessedAt = time.Now().UnixMilli()
				items[i].AccessCount++
				found = &items[i]
				return nil
			}
		}
		return ErrNotFound
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

// List returns every item for a project, in storage order.
func (s *Store) List(ctx context.Context, projectID string) ([]types.MemoryItem, error) {
	return s.load(ctx, projectID)
}

// Delete removes an item from a project's memory.
func (s *Store) Delete(ctx context.Context, projectID, itemID string) error {
	items, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}

	kept := items[:0]
	removed := false
	for _, item := range items {
		if item.ID == itemID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return ErrNotFound
	}
	return s.storage.Put(ctx, path(projectID), kept)
}

// GetContext returns pinned items first (in storage order), then unpinned
// items sorted by most-recently-accessed, truncated to max entries total.
func GetContext(items []types.MemoryItem, max int) []types.MemoryItem {
	var pinned, unpinned []types.MemoryItem
	for _, item := range items {
		if item.Pinned {
			pinned = append(pinned, item)
		} else {
			unpinned = append(unpinned, item)
		}
	}

	sort.SliceStable(unpinned, func(i, j int) bool {
		return unpinned[i].AccessedAt > unpinned[j].AccessedAt
	})

	result := append(pinned, unpinned...)
	if max > 0 && len(result) > max {
		result = result[:max]
	}
	return result
}

// FormatForPrompt renders items as a <memory> block, one bullet per item.
func FormatForPrompt(items []types.MemoryItem) string {
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<memory>\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- [%s] %s\n", item.Category, item.Content)
	}
	b.WriteString("</memory>")
	return b.String()
}
