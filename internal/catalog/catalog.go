// Package catalog reads and writes the shared item catalog and its categories.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/cache"
	"github.com/vyrodovalexey/shoplist/internal/model"
	"github.com/vyrodovalexey/shoplist/internal/tabular"
)

// Table names.
const (
	ItemsTable      = "Items"
	CategoriesTable = "Categories"
)

// Column names.
const (
	ColItem          = "Item"
	ColCategory      = "Category"
	ColID            = "ID"
	ColPurchaseCount = "Purchase_Count"
	ColUnitType      = "Unit_Type"
	ColAisleOrder    = "Aisle_Order"
)

// IDPrefix precedes the sequence number of every item identifier.
const IDPrefix = "ID"

// ItemsHeader is the header written when the Items table is created.
var ItemsHeader = []string{ColItem, ColCategory, ColID, ColPurchaseCount, ColUnitType}

// CategoriesHeader is the header written when the Categories table is created.
var CategoriesHeader = []string{ColCategory, ColAisleOrder}

// DefaultCategories seed a new Categories table in store walking order.
var DefaultCategories = []model.Category{
	{Name: "Produce", AisleOrder: 1},
	{Name: "Bakery", AisleOrder: 2},
	{Name: "Dairy", AisleOrder: 3},
	{Name: "Meat", AisleOrder: 4},
	{Name: "Pantry", AisleOrder: 5},
	{Name: "Frozen", AisleOrder: 6},
	{Name: "Household", AisleOrder: 7},
}

// Tables returns the table definitions the catalog needs.
func Tables() []tabular.TableSpec {
	rows := make([][]string, 0, len(DefaultCategories))
	for _, c := range DefaultCategories {
		rows = append(rows, []string{c.Name, strconv.Itoa(c.AisleOrder)})
	}

	return []tabular.TableSpec{
		{Name: ItemsTable, Header: ItemsHeader},
		{Name: CategoriesTable, Header: CategoriesHeader, Rows: rows},
	}
}

// Repository provides cached access to the catalog.
type Repository struct {
	store  tabular.Store
	cache  *cache.Cache
	logger *zap.Logger
}

// New creates a catalog repository.
func New(store tabular.Store, c *cache.Cache, logger *zap.Logger) *Repository {
	return &Repository{
		store:  store,
		cache:  c,
		logger: logger,
	}
}

// ListCategories returns every category. When the store cannot be read the
// failure is logged and an empty list is returned.
func (r *Repository) ListCategories(ctx context.Context) []model.Category {
	categories, err := r.categories(ctx)
	if err != nil {
		r.logger.Error("failed to read categories", zap.Error(err))
		return []model.Category{}
	}
	return slices.Clone(categories)
}

// ListItems returns every catalog item with a name, its aisle order resolved
// from the categories. When the store cannot be read the failure is logged
// and an empty list is returned.
func (r *Repository) ListItems(ctx context.Context) []model.CatalogItem {
	items, err := cache.Fetch(ctx, r.cache, cache.KeyItems, r.readItems)
	if err != nil {
		r.logger.Error("failed to read items", zap.Error(err))
		return []model.CatalogItem{}
	}
	return slices.Clone(items)
}

func (r *Repository) categories(ctx context.Context) ([]model.Category, error) {
	return cache.Fetch(ctx, r.cache, cache.KeyCategories, r.readCategories)
}

func (r *Repository) categoryIndex(ctx context.Context) (map[string]model.Category, error) {
	categories, err := r.categories(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		index[c.Name] = c
	}
	return index, nil
}

func (r *Repository) readCategories(ctx context.Context) ([]model.Category, error) {
	_, records, err := tabular.Records(ctx, r.store, CategoriesTable)
	if err != nil {
		return nil, err
	}

	categories := make([]model.Category, 0, len(records))
	for _, rec := range records {
		name := strings.TrimSpace(rec[ColCategory])
		if name == "" {
			continue
		}
		categories = append(categories, model.Category{
			Name:       name,
			AisleOrder: model.ParseAisleOrder(rec[ColAisleOrder]),
		})
	}
	return categories, nil
}

func (r *Repository) readItems(ctx context.Context) ([]model.CatalogItem, error) {
	index, err := r.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	_, records, err := tabular.Records(ctx, r.store, ItemsTable)
	if err != nil {
		return nil, err
	}

	items := make([]model.CatalogItem, 0, len(records))
	for _, rec := range records {
		item := model.CatalogItemFromRecord(rec, index)
		if item.Name == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// NextItemID returns the identifier the next catalog item should receive.
// It reads the store directly so the answer reflects the latest writes.
func (r *Repository) NextItemID(ctx context.Context) (string, error) {
	rows, err := r.store.Rows(ctx, ItemsTable)
	if errors.Is(err, tabular.ErrTableNotFound) {
		return IDPrefix + "1", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ItemsTable, err)
	}
	return nextID(rows), nil
}

// nextID scans the ID column of rows (header first) and returns one past
// the highest sequence number found.
func nextID(rows [][]string) string {
	if len(rows) == 0 {
		return IDPrefix + "1"
	}

	col := tabular.ColumnIndex(rows[0], ColID)
	if col == 0 {
		return IDPrefix + "1"
	}

	highest := 0
	for _, row := range rows[1:] {
		n, ok := parseID(tabular.Cell(row, col))
		if ok && n > highest {
			highest = n
		}
	}
	return IDPrefix + strconv.Itoa(highest+1)
}

func parseID(value string) (int, bool) {
	value = strings.TrimSpace(value)
	digits, found := strings.CutPrefix(value, IDPrefix)
	if !found || digits == "" {
		return 0, false
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// AddItem appends a new catalog item and returns it with a generated
// identifier. The row follows the shape of the existing header, so the
// identifier is only stored when the table has an ID column. Callers must serialize calls so that two
// items never receive the same identifier.
func (r *Repository) AddItem(ctx context.Context, name, category, unitType string) (model.CatalogItem, error) {
	req := model.AddItemRequest{Name: name, Category: category, UnitType: unitType}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return model.CatalogItem{}, err
	}

	rows, err := r.store.Rows(ctx, ItemsTable)
	if err != nil {
		return model.CatalogItem{}, fmt.Errorf("read %s: %w", ItemsTable, err)
	}
	if len(rows) == 0 {
		return model.CatalogItem{}, fmt.Errorf("%s has no header row", ItemsTable)
	}
	header := rows[0]

	item := model.CatalogItem{
		ItemID:     nextID(rows),
		Name:       req.Name,
		Category:   req.Category,
		UnitType:   model.NormalizeUnitType(req.UnitType),
		AisleOrder: model.DefaultAisleOrder,
	}

	if err := r.store.AppendRow(ctx, ItemsTable, itemRow(header, item)); err != nil {
		return model.CatalogItem{}, fmt.Errorf("append %s: %w", ItemsTable, err)
	}

	r.cache.Invalidate(ctx, cache.KeyItems, cache.KeyCategories)

	if index, err := r.categoryIndex(ctx); err == nil {
		if c, ok := index[item.Category]; ok {
			item.AisleOrder = c.AisleOrder
		}
	}

	r.logger.Info("item added",
		zap.String("item_id", item.ItemID),
		zap.String("name", item.Name),
		zap.String("category", item.Category),
	)

	return item, nil
}

// itemRow lays item out under header. Name and category fall back to the
// first two columns when the header does not name them.
func itemRow(header []string, item model.CatalogItem) []string {
	nameCol := tabular.ColumnIndex(header, ColItem)
	if nameCol == 0 {
		nameCol = 1
	}
	categoryCol := tabular.ColumnIndex(header, ColCategory)
	if categoryCol == 0 {
		categoryCol = 2
	}

	row := make([]string, max(len(header), nameCol, categoryCol))
	row[nameCol-1] = item.Name
	row[categoryCol-1] = item.Category

	if col := tabular.ColumnIndex(header, ColID); col > 0 {
		row[col-1] = item.ItemID
	}
	if col := tabular.ColumnIndex(header, ColPurchaseCount); col > 0 {
		row[col-1] = "0"
	}
	if col := tabular.ColumnIndex(header, ColUnitType); col > 0 {
		row[col-1] = string(item.UnitType)
	}

	return row
}

// ApplyPurchaseDeltas adds each delta to the purchase count of the item with
// that identifier. It reports false without writing when the Items table has
// no ID or Purchase_Count column. Unknown identifiers and zero deltas are
// skipped. The items cache is invalidated once, even after a partial run.
func (r *Repository) ApplyPurchaseDeltas(ctx context.Context, delta map[string]int) (bool, error) {
	rows, err := r.store.Rows(ctx, ItemsTable)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", ItemsTable, err)
	}
	if len(rows) == 0 {
		return false, nil
	}

	idCol := tabular.ColumnIndex(rows[0], ColID)
	countCol := tabular.ColumnIndex(rows[0], ColPurchaseCount)
	if idCol == 0 || countCol == 0 {
		r.logger.Warn("items table cannot track purchase counts",
			zap.Strings("header", rows[0]))
		return false, nil
	}

	defer r.cache.Invalidate(ctx, cache.KeyItems)

	positions := make(map[string]int, len(rows)-1)
	for i := len(rows) - 1; i >= 1; i-- {
		if id := strings.TrimSpace(tabular.Cell(rows[i], idCol)); id != "" {
			positions[id] = i
		}
	}

	ids := make([]string, 0, len(delta))
	for id := range delta {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		d := delta[id]
		if d == 0 {
			continue
		}

		i, ok := positions[id]
		if !ok {
			r.logger.Warn("purchase count for unknown item skipped", zap.String("item_id", id))
			continue
		}

		current := model.ParseCount(tabular.Cell(rows[i], countCol))
		if err := r.store.UpdateCell(ctx, ItemsTable, i+1, countCol, strconv.Itoa(current+d)); err != nil {
			return true, fmt.Errorf("update purchase count of %s: %w", id, err)
		}
	}

	return true, nil
}
