package confignode

import "strings"

// SetPath writes v at the dotted path, creating every missing intermediate
// object on demand. An intermediate that exists with a non-object kind is
// replaced by an empty object, so the operation is total over any document.
func (n *Node) SetPath(path string, v *Node) {
	if n.kind != KindObject {
		panic("confignode: SetPath on non-object root")
	}
	parts := strings.Split(path, ".")
	cur := n
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur.Get(part)
		if !ok || !next.IsObject() {
			next = Object()
			cur.Set(part, next)
		}
		cur = next
	}
	cur.Set(parts[len(parts)-1], v)
}

// GetPath resolves a dotted path against the node.
func (n *Node) GetPath(path string) (*Node, bool) {
	cur := n
	for _, part := range strings.Split(path, ".") {
		next, ok := cur.Get(part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
