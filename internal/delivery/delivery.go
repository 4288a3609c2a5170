// Package delivery maps synthesized segment results onto transport
// paths. Oversized results are not split; routing them to a
// large-file-capable path is the transport collaborator's job.
package delivery

import (
	"github.com/readaloudhq/docspeech/internal/observability"
	"github.com/readaloudhq/docspeech/internal/synth"
)

// TransportPath selects how a unit reaches the user
type TransportPath string

const (
	// PathStandard is the transport's normal upload path, subject to
	// its size ceiling
	PathStandard TransportPath = "standard"

	// PathLargeFile is the alternate relay for payloads above the
	// standard ceiling
	PathLargeFile TransportPath = "large_file"
)

// Unit is one finished audio output ready for transport
type Unit struct {
	SegmentOrdinal int
	Label          string
	Audio          []byte
	Format         string
	Path           TransportPath
}

// Prepare maps each result to exactly one delivery unit, in segment
// ordinal order. sizeThreshold is the standard path's size ceiling in
// bytes; results above it are tagged for the large-file path.
func Prepare(results []*synth.Result, sizeThreshold int64) []Unit {
	units := make([]Unit, 0, len(results))
	for _, r := range results {
		path := PathStandard
		if int64(r.SizeBytes) > sizeThreshold {
			path = PathLargeFile
		}
		units = append(units, Unit{
			SegmentOrdinal: r.SegmentOrdinal,
			Label:          r.Label,
			Audio:          r.Audio,
			Format:         r.Format,
			Path:           path,
		})
		observability.RecordDeliveryUnit(string(path))
	}
	return units
}
