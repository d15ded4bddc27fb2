package pathtree

import (
	"sort"
	"strings"
)

type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Icon     string  `json:"icon,omitempty"`
	Color    string  `json:"color,omitempty"`
	Children []*Node `json:"children"`
}

// BuildTree returns the forest described by paths. Intermediate folders are
// created on the way down, invalid paths are skipped and siblings are sorted
// by name so the same input always yields the same output.
func BuildTree(paths []string) []*Node {
	root := &Node{}
	index := map[string]*Node{"": root}

	for _, raw := range paths {
		path := Normalize(raw)
		if path == "" || Validate(path) != nil {
			continue
		}

		parent := root
		current := ""
		for _, segment := range Split(path) {
			current = Join(current, segment)
			node, ok := index[current]
			if !ok {
				node = &Node{Name: segment, Path: current, Children: []*Node{}}
				index[current] = node
				parent.Children = append(parent.Children, node)
			}
			parent = node
		}
	}

	sortNodes(root.Children)
	if root.Children == nil {
		return []*Node{}
	}
	return root.Children
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		li, lj := strings.ToLower(nodes[i].Name), strings.ToLower(nodes[j].Name)
		if li != lj {
			return li < lj
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, node := range nodes {
		sortNodes(node.Children)
	}
}

// Walk visits nodes depth first, parents before children.
func Walk(nodes []*Node, fn func(*Node)) {
	for _, node := range nodes {
		fn(node)
		Walk(node.Children, fn)
	}
}

// Find returns the node at path, or nil.
func Find(nodes []*Node, path string) *Node {
	var found *Node
	Walk(nodes, func(n *Node) {
		if found == nil && n.Path == path {
			found = n
		}
	})
	return found
}
