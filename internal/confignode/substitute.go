package confignode

import "regexp"

var tokenPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// Bindings maps variable names to their replacement text.
type Bindings map[string]string

// Substitute rewrites every string leaf in place, replacing each ${name}
// occurrence with its bound value. Unbound tokens are left intact.
// Resolution is single-pass: replacement text is never re-scanned.
func Substitute(n *Node, b Bindings) {
	if n == nil {
		return
	}
	switch n.kind {
	case KindString:
		n.str = SubstituteString(n.str, b)
	case KindArray:
		for _, v := range n.arr {
			Substitute(v, b)
		}
	case KindObject:
		for _, k := range n.keys {
			Substitute(n.obj[k], b)
		}
	}
}

// SubstituteString applies the bindings to a single string.
func SubstituteString(s string, b Bindings) string {
	if len(b) == 0 {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := b[name]; ok {
			return v
		}
		return match
	})
}

// ReplaceToken swaps every string leaf that consists exactly of the given
// token for a clone of the replacement node. Used for structural
// placeholders such as "${attackSegmentsConfig}", whose replacement is an
// array rather than text.
func ReplaceToken(n *Node, token string, replacement *Node) {
	if n == nil {
		return
	}
	switch n.kind {
	case KindArray:
		for i, v := range n.arr {
			if v.IsString() && v.str == token {
				n.arr[i] = replacement.Clone()
			} else {
				ReplaceToken(v, token, replacement)
			}
		}
	case KindObject:
		for _, k := range n.keys {
			v := n.obj[k]
			if v.IsString() && v.str == token {
				n.obj[k] = replacement.Clone()
			} else {
				ReplaceToken(v, token, replacement)
			}
		}
	}
}
