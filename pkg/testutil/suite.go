package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// FileSuite provides a per-suite temp directory for tests that read and write
// files.
type FileSuite struct {
	suite.Suite
	tempDir string
}

// SetupSuite creates the temp directory.
func (s *FileSuite) SetupSuite() {
	tempDir, err := os.MkdirTemp("", "reclaim-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir
}

// TearDownSuite removes the temp directory.
func (s *FileSuite) TearDownSuite() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// TempDir returns the temporary directory path
func (s *FileSuite) TempDir() string {
	return s.tempDir
}

// CreateTempFile creates a temporary file with content
func (s *FileSuite) CreateTempFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	err := os.WriteFile(path, content, 0644)
	require.NoError(s.T(), err)
	return path
}

// AllocationTest checks how much a workload allocates per operation.
type AllocationTest struct {
	t               *testing.T
	name            string
	maxMallocsPerOp float64
	maxBytesPerOp   float64
}

// NewAllocationTest creates a new allocation test
func NewAllocationTest(t *testing.T, name string) *AllocationTest {
	return &AllocationTest{
		t:               t,
		name:            name,
		maxMallocsPerOp: -1,
		maxBytesPerOp:   -1,
	}
}

// WithMaxMallocsPerOp sets the highest acceptable heap allocations per operation.
func (a *AllocationTest) WithMaxMallocsPerOp(n float64) *AllocationTest {
	a.maxMallocsPerOp = n
	return a
}

// WithMaxBytesPerOp sets the highest acceptable heap bytes per operation.
func (a *AllocationTest) WithMaxBytesPerOp(n float64) *AllocationTest {
	a.maxBytesPerOp = n
	return a
}

// Run executes fn, which reports how many operations it performed, and
// checks the thresholds.
func (a *AllocationTest) Run(fn func() (ops int64)) {
	a.t.Helper()

	runtime.GC()
	before := CaptureMemoryProfile()
	ops := fn()
	after := CaptureMemoryProfile()

	if ops <= 0 {
		a.t.Fatalf("%s: no operations performed", a.name)
	}
	mallocs := float64(after.Mallocs-before.Mallocs) / float64(ops)
	bytes := int64(after.TotalAlloc - before.TotalAlloc)
	perOp := float64(bytes) / float64(ops)

	a.t.Logf("Allocation Test: %s", a.name)
	a.t.Logf("  Operations: %d", ops)
	a.t.Logf("  Mallocs/op: %.3f", mallocs)
	a.t.Logf("  Allocated: %s (%.1f B/op)", formatBytes(bytes), perOp)

	if a.maxMallocsPerOp >= 0 && mallocs > a.maxMallocsPerOp {
		a.t.Errorf("%.3f mallocs/op exceeds target %.3f", mallocs, a.maxMallocsPerOp)
	}
	if a.maxBytesPerOp >= 0 && perOp > a.maxBytesPerOp {
		a.t.Errorf("%.1f B/op exceeds target %.1f", perOp, a.maxBytesPerOp)
	}
}

// MemoryProfile captures memory statistics
type MemoryProfile struct {
	AllocBytes uint64
	TotalAlloc uint64
	Mallocs    uint64
	Frees      uint64
	HeapInuse  uint64
	NumGC      uint32
}

// CaptureMemoryProfile captures current memory profile
func CaptureMemoryProfile() *MemoryProfile {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &MemoryProfile{
		AllocBytes: m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Mallocs:    m.Mallocs,
		Frees:      m.Frees,
		HeapInuse:  m.HeapInuse,
		NumGC:      m.NumGC,
	}
}

// formatBytes formats bytes into human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
