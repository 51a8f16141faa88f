package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hilsim/hilsim/internal/geo"
	"github.com/hilsim/hilsim/internal/logging"
	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/sim"
	"github.com/hilsim/hilsim/internal/storage"
)

// ExportVersion identifies the layout of the exported file.
const ExportVersion = 1

// FlightExport is the root JSON structure
type FlightExport struct {
	Version int            `json:"version"`
	Flight  model.Flight   `json:"flight"`
	Samples []sim.Snapshot `json:"samples"`
	Events  []sim.Event    `json:"events"`
}

// exportJSON writes the flight data to a JSON file, gzipped if configured
func (b *Backend) exportJSON(end storage.FlightEnd) error {
	export := b.buildExport(end)

	ext := ".json"
	if b.cfg.CompressOutput {
		ext += ".gz"
	}
	outputPath := logging.SessionFilePath(b.cfg.OutputDir, "hilsim", ext, b.flight.StartedAt)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport(end storage.FlightEnd) FlightExport {
	f := *b.flight
	f.EndedAt.Time = end.EndedAt
	f.EndedAt.Valid = true
	f.FinalStatus = end.FinalStatus
	f.ConsumedMAh = float32(end.ConsumedMAh)
	f.SampleCount = uint(len(b.samples))
	f.MaxAltitude = f.OriginAlt

	track := make([][3]float64, 0, len(b.samples))
	for _, s := range b.samples {
		track = append(track, [3]float64{s.Lon, s.Lat, s.Alt})
		if float32(s.Alt) > f.MaxAltitude {
			f.MaxAltitude = float32(s.Alt)
		}
	}
	if ls, err := geo.Track(track); err == nil {
		f.Track = ls
	}

	export := FlightExport{
		Version: ExportVersion,
		Flight:  f,
		Samples: b.samples,
		Events:  b.events,
	}
	if export.Samples == nil {
		export.Samples = make([]sim.Snapshot, 0)
	}
	if export.Events == nil {
		export.Events = make([]sim.Event, 0)
	}
	return export
}

func writeJSON(path string, data FlightExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data FlightExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
