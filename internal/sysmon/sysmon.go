// Package sysmon provides system-wide CPU and memory usage sampling, shown
// in the verbose banner so thread counts can be judged against the host.
package sysmon

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Stats holds a single snapshot of system-wide resource usage.
type Stats struct {
	LogicalCPUs int     // 0 when unknown
	CPUPercent  float64 // 0.0 .. 100.0
	MemPercent  float64 // 0.0 .. 100.0
}

// Sample collects a single system-wide CPU and memory snapshot.
// CPU uses interval=0 (delta since last call). Fields stay zero on error.
func Sample() Stats {
	var s Stats
	if n, err := cpu.Counts(true); err == nil {
		s.LogicalCPUs = n
	}
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		s.CPUPercent = pcts[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil && vmem != nil {
		s.MemPercent = vmem.UsedPercent
	}
	return s
}

// String renders the snapshot on one line.
func (s Stats) String() string {
	cpus := "?"
	if s.LogicalCPUs > 0 {
		cpus = fmt.Sprint(s.LogicalCPUs)
	}
	return fmt.Sprintf("%s CPUs, CPU %.1f%%, memory %.1f%%", cpus, s.CPUPercent, s.MemPercent)
}
