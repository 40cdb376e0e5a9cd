package simulation

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ajitpratap0/reclaim/pkg/performance"
	"github.com/ajitpratap0/reclaim/pkg/pool"
)

// Report summarizes a finished run.
type Report struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Workers     int    `json:"workers"`
	Interrupted bool   `json:"interrupted"`

	Frames   int64 `json:"frames"`
	Rents    int64 `json:"rents"`
	Creates  int64 `json:"creates"`
	Rejected int64 `json:"rejected"`
	// ReuseRate is the fraction of rents served without Create.
	ReuseRate float64 `json:"reuse_rate"`

	Elapsed         time.Duration `json:"elapsed"`
	FramesPerSecond float64       `json:"frames_per_second"`

	LatencyP50 time.Duration              `json:"latency_p50"`
	LatencyP95 time.Duration              `json:"latency_p95"`
	LatencyP99 time.Duration              `json:"latency_p99"`
	Latency    performance.LatencySummary `json:"latency"`

	Compression *CompressionReport   `json:"compression,omitempty"`
	Profile     *performance.Metrics `json:"profile,omitempty"`
	Pools       []pool.Stats         `json:"pools"`
}

// CompressionReport covers the compression stage of a run.
type CompressionReport struct {
	Algorithm string  `json:"algorithm"`
	Level     string  `json:"level"`
	BytesIn   int64   `json:"bytes_in"`
	BytesOut  int64   `json:"bytes_out"`
	Ratio     float64 `json:"ratio"`
}

func (r *run) report(workers int, perf *performance.Metrics) *Report {
	rep := &Report{
		Name:     r.cfg.Pool.Name,
		Kind:     r.cfg.Pool.Kind,
		Workers:  workers,
		Frames:   r.frames.Load(),
		Rents:    r.rents.Load(),
		Creates:  r.policy.counters.created.Load(),
		Rejected: r.policy.counters.rejected.Load(),
		Latency:  r.latency.Summary(),
		Profile:  perf,
	}
	rep.LatencyP50, rep.LatencyP95, rep.LatencyP99 = r.latency.GetPercentiles()

	if rep.Rents > 0 {
		rep.ReuseRate = 1 - float64(min(rep.Creates, rep.Rents))/float64(rep.Rents)
	}
	if perf != nil {
		rep.Elapsed = perf.Duration
		if secs := perf.Duration.Seconds(); secs > 0 {
			rep.FramesPerSecond = float64(rep.Frames) / secs
		}
	}

	if r.codec != nil {
		c := &CompressionReport{
			Algorithm: string(r.codec.Algorithm()),
			Level:     r.codec.Level().String(),
			BytesIn:   r.bytesIn.Load(),
			BytesOut:  r.bytesOut.Load(),
		}
		if c.BytesOut > 0 {
			c.Ratio = float64(c.BytesIn) / float64(c.BytesOut)
		}
		rep.Compression = c
	}

	if r.shared != nil {
		rep.Pools = append(rep.Pools, r.shared.Stats())
	}
	for _, src := range r.owned {
		rep.Pools = append(rep.Pools, src.Stats())
	}
	return rep
}

// WriteText renders the report as aligned text.
func (rep *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s (%s, %d workers)\n", rep.Name, rep.Kind, rep.Workers)
	if rep.Interrupted {
		fmt.Fprintf(tw, "status\tinterrupted\n")
	}
	fmt.Fprintf(tw, "frames\t%d\n", rep.Frames)
	fmt.Fprintf(tw, "elapsed\t%s\n", rep.Elapsed.Round(time.Microsecond))
	fmt.Fprintf(tw, "frames/sec\t%.1f\n", rep.FramesPerSecond)
	fmt.Fprintf(tw, "rents\t%d\n", rep.Rents)
	fmt.Fprintf(tw, "creates\t%d\n", rep.Creates)
	fmt.Fprintf(tw, "rejected\t%d\n", rep.Rejected)
	fmt.Fprintf(tw, "reuse rate\t%.2f%%\n", rep.ReuseRate*100)
	fmt.Fprintf(tw, "frame latency\tp50 %s  p95 %s  p99 %s  max %s\n",
		rep.LatencyP50, rep.LatencyP95, rep.LatencyP99, rep.Latency.Max)
	if p := rep.Profile; p != nil {
		fmt.Fprintf(tw, "allocations\t%d (%d bytes)\n", p.Mallocs, p.TotalAllocBytes)
		fmt.Fprintf(tw, "gc cycles\t%d (pause %s)\n", p.GCCount, p.GCPauseTotal)
		if p.Samples > 0 {
			fmt.Fprintf(tw, "peak rss\t%d bytes\n", p.PeakRSS)
		}
	}
	if c := rep.Compression; c != nil {
		fmt.Fprintf(tw, "compression\t%s/%s %d -> %d bytes (%.2fx)\n", c.Algorithm, c.Level, c.BytesIn, c.BytesOut, c.Ratio)
	}
	for _, s := range rep.Pools {
		if pool.CountersEnabled {
			fmt.Fprintf(tw, "pool %s\theld %d/%d  hit rate %.2f%%  rejected %d\n",
				s.Name, s.Held, s.Capacity, s.HitRate()*100, s.Rejected())
			continue
		}
		fmt.Fprintf(tw, "pool %s\theld %d/%d\n", s.Name, s.Held, s.Capacity)
	}
	return tw.Flush()
}
