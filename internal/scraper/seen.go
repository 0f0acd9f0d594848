package scraper

// SeenSet is the process-lifetime memory of listing identifiers that have
// already been delivered. It is created empty at startup, grows
// monotonically, and is never persisted: after a restart the same listings
// may be delivered again, and the store's dedup-by-content-hash absorbs
// them. The worker is single-threaded, so no locking is needed.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet creates an empty seen-set.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Seen reports whether the identifier has been delivered before.
func (s *SeenSet) Seen(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add marks an identifier as delivered.
func (s *SeenSet) Add(id string) {
	s.ids[id] = struct{}{}
}

// Len returns the number of identifiers seen so far.
func (s *SeenSet) Len() int {
	return len(s.ids)
}
