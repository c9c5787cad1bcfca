package system

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// PerfSnapshot captures process and host resource usage for the -stats
// report printed after an export.
type PerfSnapshot struct {
	CPUPercent  float64
	ProcessRSS  uint64 // bytes
	HostUsedPct float64
}

// SamplePerf collects a resource usage snapshot. Failures are soft: a
// zero field simply means the metric was unavailable on this host.
func SamplePerf() PerfSnapshot {
	var snap PerfSnapshot

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.HostUsedPct = vm.UsedPercent
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfo(); err == nil {
			snap.ProcessRSS = mi.RSS
		}
	}

	return snap
}

// Format renders the snapshot as report lines.
func (s PerfSnapshot) Format() string {
	return fmt.Sprintf("CPU: %.1f%% | RSS: %.1f MB | Host Mem: %.1f%%",
		s.CPUPercent, float64(s.ProcessRSS)/(1024*1024), s.HostUsedPct)
}
