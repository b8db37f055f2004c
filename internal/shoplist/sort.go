package shoplist

import (
	"cmp"
	"slices"

	"github.com/vyrodovalexey/shoplist/internal/model"
)

// SortByAisle returns a copy of items ordered by aisle, keeping the
// submitted order for items in the same aisle.
func SortByAisle(items []model.ListItem) []model.ListItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.ListItem) int {
		return cmp.Compare(a.AisleOrder, b.AisleOrder)
	})
	return out
}

// SortByPopularity returns a copy of items ordered by purchase count,
// most purchased first, keeping the catalog order for ties.
func SortByPopularity(items []model.CatalogItem) []model.CatalogItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.CatalogItem) int {
		return cmp.Compare(b.PurchaseCount, a.PurchaseCount)
	})
	return out
}
