package doctree

import "github.com/dgallion1/teiedit/internal/diag"

// Walk visits nodes depth-first in document order. Returning false from fn
// skips the children of that node. Retained Box elements are not visited.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		switch n := n.(type) {
		case *Element:
			Walk(n.Children, fn)
		case *Inline:
			Walk(n.Children, fn)
		}
	}
}

// FindByID returns the element or inline node with the given id.
func FindByID(nodes []Node, id string) Node {
	var found Node
	Walk(nodes, func(n Node) bool {
		if found != nil {
			return false
		}
		switch n := n.(type) {
		case *Element:
			if n.ID == id {
				found = n
			}
		case *Inline:
			if n.ID == id {
				found = n
			}
		}
		return found == nil
	})
	return found
}

// NodeDiagnostic links validation messages back to the node carrying them,
// for highlighting in the editor.
type NodeDiagnostic struct {
	ID       string                   `json:"id"`
	Origin   string                   `json:"data_origin"`
	Path     string                   `json:"path"`
	Messages []diag.DiagnosticMessage `json:"messages"`
}

// Diagnostics collects every element and volltext node that carries
// validation messages. A volltext node reports its own id with the tag and
// path of the element it was made from.
func Diagnostics(nodes []Node) []NodeDiagnostic {
	var out []NodeDiagnostic
	Walk(nodes, func(n Node) bool {
		switch n := n.(type) {
		case *Element:
			if len(n.Errors) > 0 {
				out = append(out, NodeDiagnostic{
					ID:       n.ID,
					Origin:   n.Origin,
					Path:     n.Path,
					Messages: n.Errors,
				})
			}
		case *Inline:
			if len(n.Errors) > 0 {
				d := NodeDiagnostic{ID: n.ID, Messages: n.Errors}
				if n.Box != nil {
					d.Origin, d.Path = n.Box.Origin, n.Box.Path
				}
				out = append(out, d)
			}
		}
		return true
	})
	return out
}
