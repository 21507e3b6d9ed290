package sheetq

// cache holds a Builder's materialization state for one epoch: the row
// snapshot, the heading list, and the epoch counter itself. An epoch ends
// when a mutating operation invalidates the cache; the next materialization
// starts the snapshot over from the grid.
type cache struct {
	epoch    int
	built    bool
	rows     []Row
	headings []string
}

// storeRows records the materialized snapshot for the current epoch.
func (c *cache) storeRows(rows []Row) {
	c.rows = rows
	c.built = true
}

// invalidate drops the row snapshot and the heading list and advances the
// epoch. The resolved table handle is not part of the cache and survives.
func (c *cache) invalidate() {
	c.epoch++
	c.built = false
	c.rows = nil
	c.headings = nil
}
