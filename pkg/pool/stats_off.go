//go:build !pooldebug

package pool

// CountersEnabled reports whether the diagnostic counters are compiled in.
const CountersEnabled = false

type counters struct{}

func (*counters) onCreate()         {}
func (*counters) onReuse()          {}
func (*counters) onRejectFull()     {}
func (*counters) onRejectByPolicy() {}
func (*counters) fill(*Stats)       {}
