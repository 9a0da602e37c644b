package cursor

// Cursor walks source post ids forward. The scan has no upper bound unless maxID is set;
// otherwise it ends only after threshold consecutive ids are missing.
type Cursor struct {
	current   int
	misses    int
	threshold int
	maxID     int
}

// New starts a cursor at start. maxID <= 0 means unbounded.
func New(start, threshold, maxID int) *Cursor {
	return &Cursor{current: start, threshold: threshold, maxID: maxID}
}

func (c *Cursor) Current() int { return c.current }

func (c *Cursor) Misses() int { return c.misses }

// Hit records a fetched post and resets the miss run.
func (c *Cursor) Hit() {
	c.misses = 0
}

// Miss records a missing post. It reports true when the miss run reached the threshold.
func (c *Cursor) Miss() bool {
	c.misses++
	return c.misses >= c.threshold
}

// Advance moves to the next id. It reports false when the next id is past maxID.
func (c *Cursor) Advance() bool {
	c.current++
	return c.maxID <= 0 || c.current <= c.maxID
}
