// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package taxonomy implements the category hierarchy engine: tree assembly,
// slug and path derivation, duplicate guards, cascading soft-delete and
// restore, product reassignment, bulk import reconciliation and the audit
// trail behind every mutation.
package taxonomy

import (
	"sort"

	"github.com/google/uuid"

	"markethub/internal/models"
)

// Node is one view node of the assembled category tree. UsedByProducts is
// the node's direct product count plus the sum of all descendants' counts.
type Node struct {
	models.Category
	UsedByProducts int     `json:"used_by_products"`
	Children       []*Node `json:"children"`
}

// BuildTree assembles a flat category list into a sorted forest. Siblings
// are ordered by (sort_order, name) so equal sort orders stay deterministic.
// A child whose parent is absent from the input set is promoted to a root
// instead of dropped, so country or visibility filters that exclude a parent
// never silently lose its children.
func BuildTree(categories []models.Category, usage map[uuid.UUID]int) []*Node {
	nodes := make(map[uuid.UUID]*Node, len(categories))
	for i := range categories {
		c := categories[i]
		nodes[c.ID] = &Node{
			Category:       c,
			UsedByProducts: usage[c.ID],
			Children:       []*Node{},
		}
	}

	var roots []*Node
	for i := range categories {
		n := nodes[categories[i].ID]
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*n.ParentID]
		if !ok {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	sortForest(roots)
	for _, root := range roots {
		rollUp(root)
	}
	return roots
}

func sortForest(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		sortForest(n.Children)
	}
}

// rollUp accumulates usage post-order: a node's effective count becomes its
// own direct count plus every descendant's effective count.
func rollUp(n *Node) int {
	for _, child := range n.Children {
		n.UsedByProducts += rollUp(child)
	}
	return n.UsedByProducts
}
