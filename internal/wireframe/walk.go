package wireframe

import "strings"

// Walk invokes fn for every node in the document in pre-order (root first,
// then children left to right). Walk stops early if fn returns false.
func (d *Document) Walk(fn func(n *Node, path []int) bool) {
	if d == nil || d.Root == nil {
		return
	}
	walk(d.Root, nil, fn)
}

func walk(n *Node, path []int, fn func(n *Node, path []int) bool) bool {
	if !fn(n, path) {
		return false
	}
	for i, c := range n.Children {
		childPath := append(append([]int{}, path...), i)
		if !walk(c, childPath, fn) {
			return false
		}
	}
	return true
}

// FindByType returns every node whose Type matches typ case-insensitively,
// in pre-order.
func (d *Document) FindByType(typ string) []*Node {
	var matches []*Node
	d.Walk(func(n *Node, _ []int) bool {
		if strings.EqualFold(n.Type, typ) {
			matches = append(matches, n)
		}
		return true
	})
	return matches
}
