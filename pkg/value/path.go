package value

import (
	"strconv"
	"strings"
)

// Segment is one step of a Path: a mapping key or a sequence index.
type Segment struct {
	Key     string
	Index   int
	isIndex bool
}

// IsIndex reports whether the segment addresses a sequence item.
func (s Segment) IsIndex() bool { return s.isIndex }

// Path addresses a node inside a tree. The empty Path is the root.
type Path []Segment

// Key returns a new path extended with a mapping key. The receiver is never
// modified, so paths can be shared between sibling fields.
func (p Path) Key(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Key: key})
}

// Index returns a new path extended with a sequence index.
func (p Path) Index(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Index: i, isIndex: true})
}

// String renders the path as ".network.interfaces[2].name". The root renders
// as ".". Keys that are not plain identifiers are quoted: .labels["a.b"].
func (p Path) String() string {
	if len(p) == 0 {
		return "."
	}
	var b strings.Builder
	for _, seg := range p {
		switch {
		case seg.isIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
		case plainKey(seg.Key):
			b.WriteByte('.')
			b.WriteString(seg.Key)
		default:
			b.WriteString("[")
			b.WriteString(strconv.Quote(seg.Key))
			b.WriteString("]")
		}
	}
	return b.String()
}

func plainKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
