package services

import "homeserve/internal/models"

// CategoryTreeNode is a category with its nested children. Children is only
// rendered when non-empty.
type CategoryTreeNode struct {
	models.ServiceCategory
	Children []*CategoryTreeNode `json:"children,omitempty"`
}

// categoryForest indexes a flat, already-ordered set of categories by id and
// by parent id so subtree walks need no further queries.
type categoryForest struct {
	nodes    map[uint]*models.ServiceCategory
	children map[uint][]uint
	order    []uint
}

func newCategoryForest(rows []models.ServiceCategory) *categoryForest {
	f := &categoryForest{
		nodes:    make(map[uint]*models.ServiceCategory, len(rows)),
		children: make(map[uint][]uint),
		order:    make([]uint, 0, len(rows)),
	}
	for i := range rows {
		row := &rows[i]
		f.nodes[row.ID] = row
		f.children[row.ParentID] = append(f.children[row.ParentID], row.ID)
		f.order = append(f.order, row.ID)
	}
	return f
}

// descendants returns the ids of every transitive child of id, breadth first.
func (f *categoryForest) descendants(id uint) []uint {
	var out []uint
	queue := append([]uint(nil), f.children[id]...)
	seen := map[uint]bool{id: true}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, f.children[next]...)
	}
	return out
}

// isDescendant reports whether candidate sits anywhere below id.
func (f *categoryForest) isDescendant(id, candidate uint) bool {
	for _, d := range f.descendants(id) {
		if d == candidate {
			return true
		}
	}
	return false
}

// maxSubtreeLevel returns the deepest level found in the subtree rooted at id,
// including id itself.
func (f *categoryForest) maxSubtreeLevel(id uint) int {
	deepest := 0
	if n, ok := f.nodes[id]; ok {
		deepest = n.Level
	}
	for _, d := range f.descendants(id) {
		if lvl := f.nodes[d].Level; lvl > deepest {
			deepest = lvl
		}
	}
	return deepest
}

// tree assembles the top-level nodes and everything reachable below them.
// Nodes whose ancestors are missing from the set are left out.
func (f *categoryForest) tree() []*CategoryTreeNode {
	roots := make([]*CategoryTreeNode, 0)
	for _, id := range f.children[0] {
		roots = append(roots, f.subtree(id, map[uint]bool{}))
	}
	return roots
}

func (f *categoryForest) subtree(id uint, seen map[uint]bool) *CategoryTreeNode {
	seen[id] = true
	node := &CategoryTreeNode{ServiceCategory: *f.nodes[id]}
	for _, child := range f.children[id] {
		if seen[child] {
			continue
		}
		node.Children = append(node.Children, f.subtree(child, seen))
	}
	return node
}
