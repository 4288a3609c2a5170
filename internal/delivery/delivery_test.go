package delivery

import (
	"bytes"
	"testing"

	"github.com/readaloudhq/docspeech/internal/synth"
)

func result(ordinal int, label string, size int) *synth.Result {
	return &synth.Result{
		SegmentOrdinal: ordinal,
		Label:          label,
		Audio:          bytes.Repeat([]byte{0xFF}, size),
		Format:         "mp3",
		SizeBytes:      size,
	}
}

func TestPrepare_PathSelection(t *testing.T) {
	results := []*synth.Result{
		result(0, "Chapter 1", 100),
		result(1, "Chapter 2", 2000),
		result(2, "Chapter 3", 1001),
	}

	units := Prepare(results, 1000)
	if len(units) != 3 {
		t.Fatalf("Expected 3 units, got %d", len(units))
	}

	if units[0].Path != PathStandard {
		t.Errorf("Expected unit 0 on standard path, got %s", units[0].Path)
	}
	if units[1].Path != PathLargeFile {
		t.Errorf("Expected unit 1 on large-file path, got %s", units[1].Path)
	}
	if units[2].Path != PathLargeFile {
		t.Errorf("Expected unit 2 on large-file path (size just over threshold), got %s", units[2].Path)
	}
}

func TestPrepare_ExactThresholdIsStandard(t *testing.T) {
	units := Prepare([]*synth.Result{result(0, "body", 1000)}, 1000)
	if units[0].Path != PathStandard {
		t.Errorf("Expected size == threshold to stay on standard path, got %s", units[0].Path)
	}
}

func TestPrepare_OneUnitPerResult(t *testing.T) {
	results := []*synth.Result{
		result(0, "Chapter 1", 10),
		result(1, "Chapter 2", 0),
	}

	units := Prepare(results, 100)
	if len(units) != 2 {
		t.Fatalf("Expected one unit per result, got %d", len(units))
	}
	for i, u := range units {
		if u.SegmentOrdinal != results[i].SegmentOrdinal {
			t.Errorf("Expected unit %d to keep ordinal %d, got %d", i, results[i].SegmentOrdinal, u.SegmentOrdinal)
		}
		if u.Label != results[i].Label {
			t.Errorf("Expected unit %d to keep label %q, got %q", i, results[i].Label, u.Label)
		}
		if !bytes.Equal(u.Audio, results[i].Audio) {
			t.Errorf("Unit %d audio does not match its result", i)
		}
	}
}

func TestPrepare_Empty(t *testing.T) {
	units := Prepare(nil, 1000)
	if len(units) != 0 {
		t.Errorf("Expected no units, got %d", len(units))
	}
}
