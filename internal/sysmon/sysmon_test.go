package sysmon

import (
	"strings"
	"testing"
)

func TestSample_ReturnsValidRanges(t *testing.T) {
	s := Sample()
	if s.CPUPercent < 0 || s.CPUPercent > 100 {
		t.Errorf("CPUPercent out of range: %f", s.CPUPercent)
	}
	if s.MemPercent < 0 || s.MemPercent > 100 {
		t.Errorf("MemPercent out of range: %f", s.MemPercent)
	}
	if s.LogicalCPUs < 0 {
		t.Errorf("LogicalCPUs negative: %d", s.LogicalCPUs)
	}
}

func TestStats_String(t *testing.T) {
	got := Stats{LogicalCPUs: 8, CPUPercent: 12.34, MemPercent: 50}.String()
	if got != "8 CPUs, CPU 12.3%, memory 50.0%" {
		t.Errorf("String() = %q", got)
	}
	if !strings.HasPrefix(Stats{}.String(), "? CPUs") {
		t.Errorf("unknown CPU count should render as '?', got %q", Stats{}.String())
	}
}
