package menu

import "github.com/Kyz7/backoffice/internal/models"

// Node is a menu item with its children attached.
type Node struct {
	models.MenuItem
	Children []*Node `json:"children"`
}

// BuildHierarchy rebuilds the tree from a flat item list. Roots keep their
// relative input order and each child list is in the order the children
// appear in items; nothing is re-sorted here. An item whose parent is not in
// items, or is itself, becomes a root. Items reachable only through a parent
// cycle are dropped.
func BuildHierarchy(items []models.MenuItem) []*Node {
	nodes := make(map[uint]*Node, len(items))
	ordered := make([]*Node, 0, len(items))
	for _, item := range items {
		n := &Node{MenuItem: item, Children: []*Node{}}
		nodes[item.ID] = n
		ordered = append(ordered, n)
	}

	roots := make([]*Node, 0)
	for _, n := range ordered {
		pid := n.ParentID
		if pid == nil || *pid == n.ID {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*pid]
		if !ok {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

// Flatten walks the tree in pre-order. Each item's ParentID is rewritten
// to match its position in the tree, so orphans come back as roots.
func Flatten(tree []*Node) []models.MenuItem {
	out := make([]models.MenuItem, 0)
	var walk func(nodes []*Node, parent *uint)
	walk = func(nodes []*Node, parent *uint) {
		for _, n := range nodes {
			item := n.MenuItem
			item.ParentID = parent
			out = append(out, item)
			id := n.ID
			walk(n.Children, &id)
		}
	}
	walk(tree, nil)
	return out
}

// descendants returns the ids below id, following ParentID links.
func descendants(items []models.MenuItem, id uint) map[uint]bool {
	children := make(map[uint][]uint, len(items))
	for _, it := range items {
		if it.ParentID != nil && *it.ParentID != it.ID {
			children[*it.ParentID] = append(children[*it.ParentID], it.ID)
		}
	}

	found := make(map[uint]bool)
	queue := []uint{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if !found[child] && child != id {
				found[child] = true
				queue = append(queue, child)
			}
		}
	}
	return found
}

func sameParent(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
