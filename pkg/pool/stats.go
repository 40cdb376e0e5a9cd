package pool

// Stats is a point-in-time view of a pool.
type Stats struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
	// Held is the number of stored objects. For a Tiered pool it is the
	// shared tier only.
	Held int `json:"held" yaml:"held"`
	// Capacity bounds Held.
	Capacity int `json:"capacity" yaml:"capacity"`
	// LocalCapacity and Locals are set for Tiered pools.
	LocalCapacity int `json:"local_capacity,omitempty" yaml:"local_capacity,omitempty"`
	Locals        int `json:"locals,omitempty" yaml:"locals,omitempty"`

	// The counters below stay zero unless built with -tags pooldebug.
	Created        uint64 `json:"created" yaml:"created"`
	Reused         uint64 `json:"reused" yaml:"reused"`
	RejectedFull   uint64 `json:"rejected_full" yaml:"rejected_full"`
	RejectedPolicy uint64 `json:"rejected_policy" yaml:"rejected_policy"`
}

// Rejected is the number of returned objects that were not stored.
func (s Stats) Rejected() uint64 {
	return s.RejectedFull + s.RejectedPolicy
}

// HitRate is the fraction of rents served from storage.
func (s Stats) HitRate() float64 {
	total := s.Created + s.Reused
	if total == 0 {
		return 0
	}
	return float64(s.Reused) / float64(total)
}

// StatsSource is anything that can report Stats.
type StatsSource interface {
	Stats() Stats
}
