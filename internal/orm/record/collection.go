package record

// Collection is an insertion-ordered list of records, deduplicated by store
// id. Records without an id are appended as they come.
type Collection struct {
	items []*Record
	index map[int64]int
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{
		index: make(map[int64]int),
	}
}

// Add appends a record, or returns the record already held for its id
func (c *Collection) Add(r *Record) *Record {
	if id, ok := r.ID(); ok {
		if i, exists := c.index[id]; exists {
			return c.items[i]
		}
		c.index[id] = len(c.items)
	}
	c.items = append(c.items, r)
	return r
}

// GetOrAdd returns the record held for id, or appends the one built by create
func (c *Collection) GetOrAdd(id int64, create func() *Record) *Record {
	if i, ok := c.index[id]; ok {
		return c.items[i]
	}
	r := create()
	_ = r.SetID(id)
	return c.Add(r)
}

// Get returns the record held for id
func (c *Collection) Get(id int64) (*Record, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.items[i], true
}

// Has reports whether a record with id is held
func (c *Collection) Has(id int64) bool {
	_, ok := c.index[id]
	return ok
}

// Remove drops the record held for id
func (c *Collection) Remove(id int64) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.reindex()
	return true
}

func (c *Collection) reindex() {
	c.index = make(map[int64]int, len(c.items))
	for i, r := range c.items {
		if id, ok := r.ID(); ok {
			c.index[id] = i
		}
	}
}

// Len returns the number of records
func (c *Collection) Len() int {
	return len(c.items)
}

// At returns the record at position i
func (c *Collection) At(i int) *Record {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// First returns the first record, or nil when empty
func (c *Collection) First() *Record {
	return c.At(0)
}

// Records returns the records in order
func (c *Collection) Records() []*Record {
	out := make([]*Record, len(c.items))
	copy(out, c.items)
	return out
}

// IDs returns the ids of the persisted records in order
func (c *Collection) IDs() []int64 {
	ids := make([]int64, 0, len(c.items))
	for _, r := range c.items {
		if id, ok := r.ID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ToMaps exports every record
func (c *Collection) ToMaps() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(c.items))
	for _, r := range c.items {
		out = append(out, r.ToMap())
	}
	return out
}
