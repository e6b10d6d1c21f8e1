package cache

// Stats counts cache activity since creation.
type Stats struct {
	Hits        int64 `json:"hits" yaml:"hits"`
	Misses      int64 `json:"misses" yaml:"misses"`
	Resolutions int64 `json:"resolutions" yaml:"resolutions"`
	Evictions   int64 `json:"evictions" yaml:"evictions"`
	Entries     int   `json:"entries" yaml:"entries"`
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Resolutions: c.resolutions.Load(),
		Evictions:   c.evictions.Load(),
		Entries:     c.Len(),
	}
}
