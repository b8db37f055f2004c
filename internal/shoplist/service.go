// Package shoplist ties the catalog, history and notifier together into the
// operations exposed over HTTP and the command line.
package shoplist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/cache"
	"github.com/vyrodovalexey/shoplist/internal/history"
	"github.com/vyrodovalexey/shoplist/internal/model"
	"github.com/vyrodovalexey/shoplist/internal/notifier"
	"github.com/vyrodovalexey/shoplist/internal/purchase"
)

// ErrEmptyList is returned when a preview or finalize request has no items.
var ErrEmptyList = errors.New("no items selected")

// Catalog is the catalog repository used by the service.
type Catalog interface {
	ListItems(ctx context.Context) []model.CatalogItem
	ListCategories(ctx context.Context) []model.Category
	AddItem(ctx context.Context, name, category, unitType string) (model.CatalogItem, error)
	ApplyPurchaseDeltas(ctx context.Context, delta map[string]int) (bool, error)
}

// History is the history repository used by the service.
type History interface {
	EnsureTable(ctx context.Context) error
	AppendOrAmend(ctx context.Context, items []model.ListItem, amend bool) (history.Result, error)
	ListRecent(ctx context.Context, limit int) []model.HistoryRecord
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Catalog  Catalog
	History  History
	Notifier notifier.Notifier
	Cache    *cache.Cache
	Store    Pinger
	Logger   *zap.Logger
}

// Service implements the shopping list operations. Mutations are serialized
// by a single mutex; reads go through the cache without locking.
type Service struct {
	catalog     Catalog
	history     History
	notifier    notifier.Notifier
	cache       *cache.Cache
	store       Pinger
	logger      *zap.Logger
	destination string
	events      *Broker

	mu sync.Mutex
}

// NewService creates a Service that sends finalized lists to destination.
func NewService(deps Dependencies, destination string) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:     deps.Catalog,
		history:     deps.History,
		notifier:    deps.Notifier,
		cache:       deps.Cache,
		store:       deps.Store,
		logger:      logger,
		destination: destination,
		events:      NewBroker(),
	}
}

// Events returns the broker that carries domain events.
func (s *Service) Events() *Broker {
	return s.events
}

// Items returns the catalog, most purchased first.
func (s *Service) Items(ctx context.Context) []model.CatalogItem {
	return SortByPopularity(s.catalog.ListItems(ctx))
}

// Categories returns every category.
func (s *Service) Categories(ctx context.Context) []model.Category {
	return s.catalog.ListCategories(ctx)
}

// History returns up to limit recent lists, most recent first.
func (s *Service) History(ctx context.Context, limit int) []model.HistoryRecord {
	return s.history.ListRecent(ctx, limit)
}

// AddItem adds an item to the catalog.
func (s *Service) AddItem(ctx context.Context, req model.AddItemRequest) (model.CatalogItem, error) {
	s.mu.Lock()
	item, err := s.catalog.AddItem(ctx, req.Name, req.Category, req.UnitType)
	s.mu.Unlock()
	if err != nil {
		return model.CatalogItem{}, err
	}

	s.events.Publish(model.Event{
		Type:      model.EventItemAdded,
		Item:      &item,
		Timestamp: time.Now().UTC(),
	})
	return item, nil
}

// Preview returns items in the order they are met walking the store.
func (s *Service) Preview(items []model.ListItem) ([]model.ListItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyList
	}
	return SortByAisle(items), nil
}

// Finalize sends the list and records it. When delivery fails nothing is
// written. Once the message is out, failures to record history or purchase
// counts are reported in the result's Warning instead of as an error.
func (s *Service) Finalize(ctx context.Context, items []model.ListItem, amend bool) (model.FinalizeResult, error) {
	if len(items) == 0 {
		return model.FinalizeResult{}, ErrEmptyList
	}

	message := FormatMessage(items)
	deliveryID, err := s.notifier.Send(ctx, message, s.destination)
	if err != nil {
		return model.FinalizeResult{}, fmt.Errorf("send shopping list: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := model.FinalizeResult{DeliveryID: deliveryID}

	if err := s.history.EnsureTable(ctx); err != nil {
		s.logger.Error("failed to ensure history table", zap.Error(err))
		result.Warning = "list sent but history could not be saved"
		return result, nil
	}

	recorded, err := s.history.AppendOrAmend(ctx, items, amend)
	if err != nil {
		s.logger.Error("failed to record history", zap.Error(err))
		result.Warning = "list sent but history could not be saved"
		return result, nil
	}
	result.Outcome = string(recorded.Outcome)

	delta := purchase.FullCredit(items)
	if recorded.Outcome == history.Amended {
		delta = purchase.Reconcile(recorded.Previous, items)
	}

	if _, err := s.catalog.ApplyPurchaseDeltas(ctx, delta); err != nil {
		s.logger.Error("failed to update purchase counts", zap.Error(err))
		result.Warning = "list sent but purchase counts could not be updated"
	}

	s.events.Publish(model.Event{
		Type: model.EventListFinalized,
		Finalized: &model.FinalizeEvent{
			Outcome:     result.Outcome,
			TotalItems:  recorded.Record.TotalItems,
			UniqueItems: recorded.Record.UniqueItems,
		},
		Timestamp: time.Now().UTC(),
	})

	s.logger.Info("shopping list finalized",
		zap.String("delivery_id", deliveryID),
		zap.String("outcome", result.Outcome),
		zap.Int("items", len(items)),
	)
	return result, nil
}

// ClearCache drops every cached read.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
	s.logger.Info("cache cleared")
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}
