package menu_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/Kyz7/backoffice/internal/menu"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v uint) *uint { return &v }

func item(id uint, parent *uint, order int) models.MenuItem {
	return models.MenuItem{ID: id, MenuID: 1, ParentID: parent, Title: "item", URL: "/x", Order: order}
}

func ids(nodes []*menu.Node) []uint {
	out := make([]uint, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

type edge struct {
	ID     uint
	Parent uint
}

func edges(items []models.MenuItem) []edge {
	out := make([]edge, 0, len(items))
	for _, it := range items {
		e := edge{ID: it.ID}
		if it.ParentID != nil {
			e.Parent = *it.ParentID
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func TestBuildHierarchy(t *testing.T) {
	t.Run("Success - keeps input order for roots and children", func(t *testing.T) {
		flat := []models.MenuItem{
			item(3, nil, 5),
			item(1, nil, 0),
			item(12, ptr(1), 9),
			item(11, ptr(1), 1),
		}

		tree := menu.BuildHierarchy(flat)
		require.Len(t, tree, 2)
		assert.Equal(t, []uint{3, 1}, ids(tree))
		assert.Equal(t, []uint{12, 11}, ids(tree[1].Children))
		assert.Empty(t, tree[0].Children)
	})

	t.Run("Success - orphan and self parent become roots", func(t *testing.T) {
		flat := []models.MenuItem{
			item(1, nil, 0),
			item(2, ptr(99), 0),
			item(3, ptr(3), 0),
		}

		tree := menu.BuildHierarchy(flat)
		assert.Equal(t, []uint{1, 2, 3}, ids(tree))
	})

	t.Run("Success - cycle members are not emitted", func(t *testing.T) {
		flat := []models.MenuItem{
			item(1, nil, 0),
			item(2, ptr(3), 0),
			item(3, ptr(2), 0),
		}

		tree := menu.BuildHierarchy(flat)
		assert.Equal(t, []uint{1}, ids(tree))
		assert.Len(t, menu.Flatten(tree), 1)
	})

	t.Run("Success - empty input", func(t *testing.T) {
		assert.Empty(t, menu.BuildHierarchy(nil))
	})
}

func TestHierarchyRoundTrip(t *testing.T) {
	flat := []models.MenuItem{
		item(1, nil, 0),
		item(2, nil, 1),
		item(3, ptr(1), 0),
		item(4, ptr(1), 1),
		item(5, ptr(3), 0),
		item(6, ptr(5), 0),
		item(7, ptr(2), 0),
	}
	want := edges(flat)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := append([]models.MenuItem(nil), flat...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := menu.Flatten(menu.BuildHierarchy(shuffled))
		assert.Equal(t, want, edges(got))
	}
}

func TestFlattenPreOrder(t *testing.T) {
	flat := []models.MenuItem{
		item(1, nil, 0),
		item(2, ptr(1), 0),
		item(3, nil, 1),
		item(4, ptr(2), 0),
	}

	got := menu.Flatten(menu.BuildHierarchy(flat))
	order := make([]uint, 0, len(got))
	for _, it := range got {
		order = append(order, it.ID)
	}
	assert.Equal(t, []uint{1, 2, 4, 3}, order)
}
