// Package handler provides the HTTP handlers of the shopping list API.
package handler

import (
	"context"

	"github.com/vyrodovalexey/shoplist/internal/model"
	"github.com/vyrodovalexey/shoplist/internal/shoplist"
)

// Service is the part of shoplist.Service the handlers use.
type Service interface {
	Items(ctx context.Context) []model.CatalogItem
	Categories(ctx context.Context) []model.Category
	History(ctx context.Context, limit int) []model.HistoryRecord
	AddItem(ctx context.Context, req model.AddItemRequest) (model.CatalogItem, error)
	Preview(items []model.ListItem) ([]model.ListItem, error)
	Finalize(ctx context.Context, items []model.ListItem, amend bool) (model.FinalizeResult, error)
	ClearCache(ctx context.Context)
	Ping(ctx context.Context) error
}

var _ Service = (*shoplist.Service)(nil)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// ClearCacheResponse is returned after the cache has been cleared.
type ClearCacheResponse struct {
	Status string `json:"status"`
}
