// Package model defines data structures used throughout the application.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultAisleOrder sorts items without a known aisle after every known aisle.
const DefaultAisleOrder = 999

// UnitType describes how an item is measured on a shopping list.
type UnitType string

// Unit types.
const (
	UnitQuantity UnitType = "quantity"
	UnitWeight   UnitType = "weight"
)

// weightTokens are the stored spellings that mean an item is sold by weight.
var weightTokens = map[string]bool{
	"weight":   true,
	"kg":       true,
	"g":        true,
	"weighted": true,
}

// NormalizeUnitType maps a stored or submitted token onto a UnitType.
// Anything that is not a known weight spelling is a quantity.
func NormalizeUnitType(token string) UnitType {
	if weightTokens[strings.ToLower(strings.TrimSpace(token))] {
		return UnitWeight
	}
	return UnitQuantity
}

// ParseCount parses a non-negative counter cell. Blank, unparsable or
// negative values count as zero.
func ParseCount(cell string) int {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0
	}

	n, err := strconv.Atoi(cell)
	if err != nil {
		f, ferr := strconv.ParseFloat(cell, 64)
		if ferr != nil {
			return 0
		}
		n = int(f)
	}

	if n < 0 {
		return 0
	}
	return n
}

// ParseAisleOrder parses an aisle order cell, falling back to DefaultAisleOrder.
func ParseAisleOrder(cell string) int {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return DefaultAisleOrder
	}

	n, err := strconv.Atoi(cell)
	if err != nil {
		return DefaultAisleOrder
	}
	return n
}

// CatalogItem is an entry of the shared household catalog.
type CatalogItem struct {
	ItemID        string   `json:"item_id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	UnitType      UnitType `json:"unit_type"`
	PurchaseCount int      `json:"purchase_count"`
	AisleOrder    int      `json:"aisle_order"`
}

// Category is reference data that places items in store layout order.
type Category struct {
	Name       string `json:"name"`
	AisleOrder int    `json:"aisle_order"`
}

// CatalogItemFromRecord builds a CatalogItem from a raw Items row keyed by
// column name. Aisle order is resolved against categories: a matching
// category always wins, otherwise the row's own Aisle_Order cell or
// DefaultAisleOrder applies.
func CatalogItemFromRecord(record map[string]string, categories map[string]Category) CatalogItem {
	item := CatalogItem{
		ItemID:        strings.TrimSpace(record["ID"]),
		Name:          strings.TrimSpace(record["Item"]),
		Category:      strings.TrimSpace(record["Category"]),
		UnitType:      NormalizeUnitType(record["Unit_Type"]),
		PurchaseCount: ParseCount(record["Purchase_Count"]),
		AisleOrder:    DefaultAisleOrder,
	}

	if cat, ok := categories[item.Category]; ok {
		item.AisleOrder = cat.AisleOrder
	} else if own, ok := record["Aisle_Order"]; ok {
		item.AisleOrder = ParseAisleOrder(own)
	}

	return item
}

// ListItem is a catalog item placed on a shopping list with a quantity.
type ListItem struct {
	CatalogItem
	Quantity int `json:"quantity"`
}

// UnmarshalJSON decodes a submitted list item and applies the defaults for
// fields a client may leave out: quantity 1, aisle order 999, purchase count 0.
func (li *ListItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ItemID        string `json:"item_id"`
		Name          string `json:"name"`
		Category      string `json:"category"`
		UnitType      string `json:"unit_type"`
		PurchaseCount *int   `json:"purchase_count"`
		AisleOrder    *int   `json:"aisle_order"`
		Quantity      *int   `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*li = ListItem{
		CatalogItem: CatalogItem{
			ItemID:     raw.ItemID,
			Name:       raw.Name,
			Category:   raw.Category,
			UnitType:   NormalizeUnitType(raw.UnitType),
			AisleOrder: DefaultAisleOrder,
		},
		Quantity: 1,
	}

	if raw.PurchaseCount != nil && *raw.PurchaseCount > 0 {
		li.PurchaseCount = *raw.PurchaseCount
	}
	if raw.AisleOrder != nil {
		li.AisleOrder = *raw.AisleOrder
	}
	if raw.Quantity != nil && *raw.Quantity > 0 {
		li.Quantity = *raw.Quantity
	}

	return nil
}

// EffectiveQuantity returns the quantity with the list default applied.
func (li ListItem) EffectiveQuantity() int {
	if li.Quantity < 1 {
		return 1
	}
	return li.Quantity
}
