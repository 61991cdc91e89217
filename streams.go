package h2

import "sort"

// streamRegistry holds a Connection's Streams sorted by id, mirroring the
// teacher's sorted-slice-plus-binary-search registry rather than a map, so
// range-like scans (e.g. GOAWAY draining) stay allocation-free.
type streamRegistry struct {
	streams []*Stream
}

func (r *streamRegistry) search(id uint32) int {
	return sort.Search(len(r.streams), func(i int) bool {
		return r.streams[i].id >= id
	})
}

// Get returns the stream with the given id, or nil if not registered.
func (r *streamRegistry) Get(id uint32) *Stream {
	i := r.search(id)
	if i < len(r.streams) && r.streams[i].id == id {
		return r.streams[i]
	}
	return nil
}

// Insert adds s to the registry, keeping it sorted by id. s.id must not
// already be present.
func (r *streamRegistry) Insert(s *Stream) {
	i := r.search(s.id)
	r.streams = append(r.streams, nil)
	copy(r.streams[i+1:], r.streams[i:])
	r.streams[i] = s
}

// Del removes the stream with the given id, if present.
func (r *streamRegistry) Del(id uint32) {
	i := r.search(id)
	if i < len(r.streams) && r.streams[i].id == id {
		r.streams = append(r.streams[:i], r.streams[i+1:]...)
	}
}

// Len returns the number of registered streams.
func (r *streamRegistry) Len() int { return len(r.streams) }

// ForEach calls fn for every registered stream in ascending id order. fn
// must not mutate the registry.
func (r *streamRegistry) ForEach(fn func(*Stream)) {
	for _, s := range r.streams {
		fn(s)
	}
}

// MaxID returns the highest registered stream id, or 0 if the registry is
// empty.
func (r *streamRegistry) MaxID() uint32 {
	if len(r.streams) == 0 {
		return 0
	}
	return r.streams[len(r.streams)-1].id
}
