package form

// watchGraph is the adjacency structure behind WatchFor.
//
// An edge watcher→watched means watched notifies watcher when its value
// changes. Notification is single hop: a notified watcher re-validates but
// does not forward the notification, so a cycle can never loop. Cycles are
// still reported because they are almost always a misconfiguration.
//
// Guarded by the registry lock.
type watchGraph struct {
	watchers map[int64][]int64 // watched id -> watcher ids, insertion order
	watching map[int64][]int64 // watcher id -> watched ids, insertion order
}

func newWatchGraph() *watchGraph {
	return &watchGraph{
		watchers: make(map[int64][]int64),
		watching: make(map[int64][]int64),
	}
}

// add records the edge on both sides. Returns false if it already exists.
func (g *watchGraph) add(watcher, watched int64) bool {
	if containsID(g.watching[watcher], watched) {
		return false
	}
	g.watching[watcher] = append(g.watching[watcher], watched)
	g.watchers[watched] = append(g.watchers[watched], watcher)
	return true
}

// remove deletes the edge from both sides. Returns false if it was absent.
func (g *watchGraph) remove(watcher, watched int64) bool {
	if !containsID(g.watching[watcher], watched) {
		return false
	}
	g.watching[watcher] = removeID(g.watching[watcher], watched)
	g.watchers[watched] = removeID(g.watchers[watched], watcher)
	if len(g.watching[watcher]) == 0 {
		delete(g.watching, watcher)
	}
	if len(g.watchers[watched]) == 0 {
		delete(g.watchers, watched)
	}
	return true
}

// removeNode drops every edge touching id.
func (g *watchGraph) removeNode(id int64) {
	for _, watched := range append([]int64(nil), g.watching[id]...) {
		g.remove(id, watched)
	}
	for _, watcher := range append([]int64(nil), g.watchers[id]...) {
		g.remove(watcher, id)
	}
}

func (g *watchGraph) watchersOf(id int64) []int64 {
	return append([]int64(nil), g.watchers[id]...)
}

func (g *watchGraph) watchedBy(id int64) []int64 {
	return append([]int64(nil), g.watching[id]...)
}

// cycleFrom returns a notification path that starts and ends at id, or nil.
// The path follows watched -> watcher edges.
func (g *watchGraph) cycleFrom(id int64) []int64 {
	visited := make(map[int64]bool)
	var path []int64
	var walk func(n int64) bool
	walk = func(n int64) bool {
		for _, next := range g.watchers[n] {
			if next == id {
				path = append(path, n)
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			if walk(next) {
				path = append(path, n)
				return true
			}
		}
		return false
	}
	if !walk(id) {
		return nil
	}
	// path was built back to front
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return append(path, id)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// WatchFor makes c re-validate whenever other's value changes. Returns
// false if the edge already exists, either node is destroyed, or other
// belongs to another registry.
func (c *control) WatchFor(other Control) bool {
	if other == nil || other.Registry() != c.reg {
		return false
	}
	oc := other.ctrl()
	if oc == c {
		return false
	}
	added := false
	c.reg.read(func() {
		if c.destroyed || oc.destroyed {
			return
		}
		added = c.reg.watches.add(c.id, oc.id)
		if !added {
			return
		}
		if cycle := c.reg.watches.cycleFrom(c.id); cycle != nil {
			c.reg.logger.Warn("watch cycle detected", "node", c.id, "name", c.name, "cycle", cycle)
		}
	})
	return added
}

// Unwatch removes the watch edge c -> other.
func (c *control) Unwatch(other Control) bool {
	if other == nil || other.Registry() != c.reg {
		return false
	}
	removed := false
	c.reg.read(func() {
		removed = c.reg.watches.remove(c.id, other.ctrl().id)
	})
	return removed
}

// Watchers returns the controls notified by c's value changes.
func (c *control) Watchers() []Control {
	var out []Control
	c.reg.read(func() {
		out = c.reg.controlsByIDLocked(c.reg.watches.watchersOf(c.id))
	})
	return out
}

// Watching returns the controls whose value changes c listens to.
func (c *control) Watching() []Control {
	var out []Control
	c.reg.read(func() {
		out = c.reg.controlsByIDLocked(c.reg.watches.watchedBy(c.id))
	})
	return out
}

// WatchCycle returns a notification cycle through c, starting and ending
// with c, or nil.
func (r *Registry) WatchCycle(c Control) []Control {
	if c == nil || c.Registry() != r {
		return nil
	}
	var out []Control
	r.read(func() {
		out = r.controlsByIDLocked(r.watches.cycleFrom(c.ctrl().id))
	})
	return out
}

func (r *Registry) controlsByIDLocked(ids []int64) []Control {
	if len(ids) == 0 {
		return nil
	}
	out := make([]Control, 0, len(ids))
	for _, id := range ids {
		if c := r.controlLocked(id); c != nil {
			out = append(out, c.self)
		}
	}
	return out
}
