package purchase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/shoplist/internal/model"
)

func item(id string, qty int) model.ListItem {
	return model.ListItem{CatalogItem: model.CatalogItem{ItemID: id, Name: id}, Quantity: qty}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		previous  []model.PayloadItem
		submitted []model.ListItem
		want      map[string]int
	}{
		{
			name:      "new item gets full credit",
			previous:  nil,
			submitted: []model.ListItem{item("ID1", 2)},
			want:      map[string]int{"ID1": 2},
		},
		{
			name:      "increase credits the difference",
			previous:  []model.PayloadItem{{ItemID: "ID1", Quantity: 2}},
			submitted: []model.ListItem{item("ID1", 5)},
			want:      map[string]int{"ID1": 3},
		},
		{
			name:      "decrease credits nothing",
			previous:  []model.PayloadItem{{ItemID: "ID1", Quantity: 5}},
			submitted: []model.ListItem{item("ID1", 2)},
			want:      map[string]int{},
		},
		{
			name:      "unchanged credits nothing",
			previous:  []model.PayloadItem{{ItemID: "ID1", Quantity: 3}},
			submitted: []model.ListItem{item("ID1", 3)},
			want:      map[string]int{},
		},
		{
			name:      "items without id are ignored",
			previous:  []model.PayloadItem{{ItemID: "", Quantity: 4}},
			submitted: []model.ListItem{item("", 9), item("ID2", 1)},
			want:      map[string]int{"ID2": 1},
		},
		{
			name:      "previous zero quantity counts as new",
			previous:  []model.PayloadItem{{ItemID: "ID1", Quantity: 0}},
			submitted: []model.ListItem{item("ID1", 2)},
			want:      map[string]int{"ID1": 2},
		},
		{
			name:      "missing quantity defaults to one",
			previous:  nil,
			submitted: []model.ListItem{item("ID3", 0)},
			want:      map[string]int{"ID3": 1},
		},
		{
			name:      "reordered duplicates credit nothing",
			previous:  []model.PayloadItem{{ItemID: "ID1", Quantity: 3}, {ItemID: "ID1", Quantity: 1}},
			submitted: []model.ListItem{item("ID1", 1), item("ID1", 3)},
			want:      map[string]int{},
		},
		{
			name:      "duplicates are summed before comparing",
			previous:  []model.PayloadItem{{ItemID: "ID1", Quantity: 2}},
			submitted: []model.ListItem{item("ID1", 2), item("ID1", 1)},
			want:      map[string]int{"ID1": 1},
		},
		{
			name:     "mixed edit",
			previous: []model.PayloadItem{{ItemID: "ID1", Quantity: 2}, {ItemID: "ID2", Quantity: 4}},
			submitted: []model.ListItem{
				item("ID1", 3),
				item("ID2", 1),
				item("ID5", 2),
			},
			want: map[string]int{"ID1": 1, "ID5": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.previous, tt.submitted))
		})
	}
}

func TestFullCredit(t *testing.T) {
	got := FullCredit([]model.ListItem{item("ID1", 2), item("ID2", 0), item("", 4), item("ID1", 1)})

	assert.Equal(t, map[string]int{"ID1": 3, "ID2": 1}, got)
}
