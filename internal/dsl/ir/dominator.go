package ir

import "github.com/dekarrin/dslc/internal/util"

// DomTree is a function's dominator tree plus its per-block dominance
// frontier, both computed from the current block graph. Invariant 5 (§3)
// requires this be rebuilt whenever a pass changes the graph without
// restoring dominance itself; Function.Dominance handles that lazily via
// the domDirty flag.
type DomTree struct {
	idom      map[BlockID]BlockID
	rpo       []BlockID
	frontiers map[BlockID]util.KeySet[BlockID]
}

// IDom returns b's immediate dominator. The entry block is its own
// immediate dominator; NoBlock is returned only for a block absent from the
// tree (unreachable from Entry).
func (d *DomTree) IDom(b BlockID) BlockID {
	if idom, ok := d.idom[b]; ok {
		return idom
	}
	return NoBlock
}

// Dominates reports whether a dominates b (a block always dominates
// itself).
func (d *DomTree) Dominates(a, b BlockID) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		next, ok := d.idom[cur]
		if !ok || next == cur {
			return cur == a
		}
		cur = next
	}
}

// Frontier returns the dominance frontier of b: the set of blocks where b's
// dominance stops, i.e. the insertion points for merge-node instructions
// when a name defined up to b reaches a join.
func (d *DomTree) Frontier(b BlockID) util.KeySet[BlockID] {
	if f, ok := d.frontiers[b]; ok {
		return f
	}
	return util.NewKeySet[BlockID]()
}

// ReversePostOrder returns the block visitation order used by both the
// dominator computation and the code generator's label layout.
func (d *DomTree) ReversePostOrder() []BlockID {
	return d.rpo
}

// BuildDomTree computes the dominator tree and dominance frontiers for fn
// using the iterative Cooper/Harvey/Kennedy algorithm over a
// reverse-post-order block numbering, then Cytron et al.'s frontier
// construction from the resulting idom map. Unreachable blocks (no path
// from Entry) are omitted.
func BuildDomTree(fn *Function) *DomTree {
	rpo := reversePostOrder(fn)
	rpoIndex := make(map[BlockID]int, len(rpo))
	for i, b := range rpo {
		rpoIndex[b] = i
	}

	idom := make(map[BlockID]BlockID)
	if len(rpo) == 0 {
		return &DomTree{idom: idom, rpo: rpo, frontiers: map[BlockID]util.KeySet[BlockID]{}}
	}
	entry := rpo[0]
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom BlockID = NoBlock
			for _, p := range fn.Blocks[b].Preds {
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == NoBlock {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if newIdom != NoBlock && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	frontiers := make(map[BlockID]util.KeySet[BlockID])
	for _, b := range rpo {
		frontiers[b] = util.NewKeySet[BlockID]()
	}
	for _, b := range rpo {
		preds := fn.Blocks[b].Preds
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			if _, ok := idom[p]; !ok {
				continue
			}
			runner := p
			for runner != idom[b] {
				frontiers[runner].Add(b)
				if idom[runner] == runner {
					break
				}
				runner = idom[runner]
			}
		}
	}

	return &DomTree{idom: idom, rpo: rpo, frontiers: frontiers}
}

// intersect walks two idom chains toward the root using RPO-number
// ordering to find their nearest common dominator.
func intersect(idom map[BlockID]BlockID, rpoIndex map[BlockID]int, a, b BlockID) BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostOrder returns fn's blocks reachable from Entry in
// reverse-postorder via a depth-first traversal of Succs.
func reversePostOrder(fn *Function) []BlockID {
	if fn.Entry == NoBlock {
		return nil
	}
	visited := util.NewKeySet[BlockID]()
	var post []BlockID
	var visit func(b BlockID)
	visit = func(b BlockID) {
		if visited.Has(b) {
			return
		}
		visited.Add(b)
		for _, s := range fn.Blocks[b].Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(fn.Entry)
	rpo := make([]BlockID, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}
