// chm_graph.go -- the CHM edge graph, vertex labeling and acyclicity check
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package mph

// preallocation size for a vertex's edge list; trades memory for fewer
// reallocations on the common 2-3 edge case.
const chmEdgeCap = 12

type chmEdge struct {
	to    uint64
	label int
}

type chmVertex struct {
	value   int64 // -1 until resolve() assigns it
	visited bool
	edges   []chmEdge
}

// chmGraph is an undirected multigraph over m vertices; each input key
// contributes one bidirectional edge labeled with the key's assigned
// index.
type chmGraph struct {
	verts []chmVertex
	m     uint64
	stats *ChmStats
}

func newChmGraph(m uint64) *chmGraph {
	g := &chmGraph{}
	g.ensureVertices(m)
	return g
}

// ensureVertices grows the vertex array to at least m entries; it never
// shrinks. Newly added vertices are zero-valued (value 0, not yet -1 --
// wipe() establishes the -1 sentinel before each trial).
func (g *chmGraph) ensureVertices(m uint64) {
	if m <= uint64(len(g.verts)) {
		g.m = m
		return
	}
	nv := make([]chmVertex, m)
	copy(nv, g.verts)
	g.verts = nv
	g.m = m
}

// wipe resets every vertex's value/visited/edge-count for a new trial
// while keeping each vertex's edge-list backing array (and its
// capacity) intact.
func (g *chmGraph) wipe() {
	for i := range g.verts {
		v := &g.verts[i]
		v.value = -1
		v.visited = false
		v.edges = v.edges[:0]
	}
}

func (g *chmGraph) connect(u, v uint64, label int) {
	vert := &g.verts[u]
	oldCap := cap(vert.edges)
	if vert.edges == nil {
		vert.edges = make([]chmEdge, 0, chmEdgeCap)
	}
	vert.edges = append(vert.edges, chmEdge{to: v, label: label})
	if g.stats != nil && cap(vert.edges) != oldCap {
		g.stats.Reallocs++
		g.stats.ReallocBytes += uint64(cap(vert.edges)-oldCap) * 16
	}
}

// biconnect inserts an undirected edge between u and v carrying label,
// as two symmetric directed edges.
func (g *chmGraph) biconnect(u, v uint64, label int) {
	g.connect(u, v, label)
	g.connect(v, u, label)
}

type chmFrame struct {
	vertex    uint64
	parent    uint64
	hasParent bool
}

// resolve performs the acyclicity check with simultaneous vertex
// labeling. It walks every connected component with an
// explicit work stack (never host-stack recursion, so it is bounded by
// heap, not call-stack, for m up to any size). It returns false the
// instant it finds a cycle -- a second visit to an already-visited
// vertex, including a self-loop or a second edge back to the parent.
func (g *chmGraph) resolve() bool {
	m := int64(g.m)
	stack := make([]chmFrame, 0, 64)

	for r := range g.verts {
		if g.verts[r].visited {
			continue
		}

		g.verts[r].value = 0
		stack = append(stack[:0], chmFrame{vertex: uint64(r), hasParent: false})

		for len(stack) > 0 {
			n := len(stack) - 1
			f := stack[n]
			stack = stack[:n]

			u := &g.verts[f.vertex]
			u.visited = true
			if g.stats != nil {
				g.stats.VerticesExplored++
			}

			skippedParent := false
			for _, e := range u.edges {
				if f.hasParent && !skippedParent && e.to == f.parent {
					skippedParent = true
					continue
				}

				w := &g.verts[e.to]
				if w.visited {
					return false
				}

				w.value = normalizeMod(int64(e.label)-u.value, m)
				stack = append(stack, chmFrame{vertex: e.to, parent: f.vertex, hasParent: true})
			}
		}
	}
	return true
}

// normalizeMod reduces a into [0, m) for possibly-negative a.
func normalizeMod(a, m int64) int64 {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
