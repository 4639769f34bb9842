package recycle

import "github.com/l1jgo/recycler/internal/core/ecs"

// PathFromRoot writes into buf the sibling indices leading from root down to
// n and returns it. ok is false when n is not root or one of its descendants.
func PathFromRoot(t Tree, root, n ecs.EntityID, buf []int) (path []int, ok bool) {
	buf = buf[:0]
	if n.IsZero() || root.IsZero() {
		return buf, false
	}
	for cur := n; cur != root; {
		parent := t.Parent(cur)
		if parent.IsZero() {
			return buf[:0], false
		}
		idx := indexOf(t.Children(parent), cur)
		if idx < 0 {
			return buf[:0], false
		}
		buf = append(buf, idx)
		cur = parent
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf, true
}

// NodeFromPath replays a sibling-index path from root.
func NodeFromPath(t Tree, root ecs.EntityID, path []int) (ecs.EntityID, bool) {
	cur := root
	for _, idx := range path {
		children := t.Children(cur)
		if idx < 0 || idx >= len(children) {
			return 0, false
		}
		cur = children[idx]
	}
	return cur, true
}

func indexOf(ids []ecs.EntityID, id ecs.EntityID) int {
	for i, c := range ids {
		if c == id {
			return i
		}
	}
	return -1
}
