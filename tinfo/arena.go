package tinfo

// NodeID addresses a node inside an Arena. NodeID 0 is reserved and
// always denotes the absent node.
type NodeID uint32

const noNode NodeID = 0

// Arena stores the nodes of one or more descriptors that share structure.
// Arenas are append-only while a descriptor is being built and are never
// modified afterwards, so descriptors sharing an arena can be read from
// several goroutines.
type Arena struct {
	nodes []node
}

type node struct {
	name    string // declared name
	ref     string // KindNamed: referenced name
	members []member
	cases   []EnumCase
	size    uint64 // KindUnknown: byte size; aggregates: explicit size; KindEnum: width
	align   uint64 // aggregates: explicit alignment
	length  uint64 // KindArray
	ordinal uint32 // KindNamed: referenced ordinal
	base    uint32 // KindArray: index base
	elem    NodeID // pointee, element or return type
	closure NodeID // KindPtr: closure type
	kind    Kind
	quals   Qualifiers
	cc      CallConv
	forward bool // KindNamed: library had no such type at decode time
	layout  bool // aggregates: members carry explicit offsets
}

type member struct {
	name     string
	offset   uint64 // bits, only meaningful with explicit layout
	bitWidth uint64
	typ      NodeID
}

func newArena() *Arena {
	return &Arena{nodes: make([]node, 1, 8)}
}

func (a *Arena) add(n node) NodeID {
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, n)
	return id
}

func (a *Arena) get(id NodeID) *node {
	if a == nil || id == noNode || int(id) >= len(a.nodes) {
		return nil
	}
	return &a.nodes[id]
}

// Len returns the number of live nodes in the arena.
func (a *Arena) Len() int {
	if a == nil {
		return 0
	}
	return len(a.nodes) - 1
}

// graft copies the subtree rooted at id in src into a and returns its new ID.
func (a *Arena) graft(src *Arena, id NodeID) NodeID {
	n := src.get(id)
	if n == nil {
		return noNode
	}
	cp := *n
	cp.elem = a.graft(src, n.elem)
	cp.closure = a.graft(src, n.closure)
	if len(n.members) > 0 {
		cp.members = make([]member, len(n.members))
		for i, m := range n.members {
			m.typ = a.graft(src, m.typ)
			cp.members[i] = m
		}
	}
	if len(n.cases) > 0 {
		cp.cases = append([]EnumCase(nil), n.cases...)
	}
	return a.add(cp)
}
