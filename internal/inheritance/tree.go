package inheritance

import (
	"sort"
	"strings"
)

// Kind is the display category of a class.
type Kind string

const (
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
)

const (
	accInterface = 0x0200
	accEnum      = 0x4000
)

func kindOf(flags int) Kind {
	switch {
	case flags&accEnum != 0:
		return KindEnum
	case flags&accInterface != 0:
		return KindInterface
	}
	return KindClass
}

// TreeNode is one row of the hierarchy view.
type TreeNode struct {
	Name       string      `json:"name"`
	SimpleName string      `json:"simpleName"`
	Kind       Kind        `json:"kind"`
	Children   []*TreeNode `json:"children,omitempty"`
}

// View is the hierarchy containing selected, rooted at its first-parent root.
// Expanded lists the nodes on the path to the selected class that have
// children, so a viewer can open exactly those.
type View struct {
	Root     *TreeNode `json:"root"`
	Expanded []string  `json:"expanded"`
}

func simpleName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Tree lays out the subtree below the root of selected. The branch holding
// the selected class comes first, then children with more expanded
// descendants, then by simple name.
func Tree(x *Index, selected string) View {
	root, ok := x.Node(x.Root(selected))
	if !ok {
		return View{}
	}
	visited := map[string]bool{}

	type walked struct {
		node     *TreeNode
		expanded []string
		selected bool
	}
	var walk func(n *ClassNode) *walked
	walk = func(n *ClassNode) *walked {
		if visited[n.Name] {
			return nil
		}
		visited[n.Name] = true

		var kids []*walked
		for _, name := range n.Children {
			child, ok := x.Node(name)
			if !ok {
				continue
			}
			if w := walk(child); w != nil {
				kids = append(kids, w)
			}
		}
		sort.SliceStable(kids, func(i, j int) bool {
			if kids[i].selected != kids[j].selected {
				return kids[i].selected
			}
			if len(kids[i].expanded) != len(kids[j].expanded) {
				return len(kids[i].expanded) > len(kids[j].expanded)
			}
			return simpleName(kids[i].node.Name) < simpleName(kids[j].node.Name)
		})

		out := &walked{node: &TreeNode{
			Name:       n.Name,
			SimpleName: simpleName(n.Name),
			Kind:       kindOf(n.AccessFlags),
		}}
		out.selected = n.Name == selected
		for _, k := range kids {
			out.node.Children = append(out.node.Children, k.node)
			out.expanded = append(out.expanded, k.expanded...)
			if k.selected {
				out.selected = true
			}
		}
		if out.selected && len(kids) > 0 {
			out.expanded = append(out.expanded, n.Name)
		}
		return out
	}

	w := walk(root)
	seen := map[string]bool{}
	expanded := []string{}
	for _, name := range w.expanded {
		if !seen[name] {
			seen[name] = true
			expanded = append(expanded, name)
		}
	}
	return View{Root: w.node, Expanded: expanded}
}
