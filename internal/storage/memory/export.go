package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	v1 "github.com/trackday/racer/internal/storage/memory/export/v1"
	"github.com/trackday/racer/internal/util"
	"github.com/trackday/racer/pkg/core"
)

// GetExportedFilePath returns the path of the last exported file.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns metadata about the last export.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}

// exportJSON writes the race to <outputDir>/<race>_<start>.json[.gz].
// Must be called with the lock held.
func (b *Backend) exportJSON() error {
	export := v1.Build(&v1.RaceData{
		Race:   b.race,
		Track:  b.track,
		Actors: b.actors,
		Laps:   b.laps,
	})

	raceName := util.SafeFileName(b.race.Name)
	timestamp := b.race.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", raceName, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	trackName := ""
	if b.track != nil {
		trackName = b.track.Name
	}
	b.lastExportPath = outputPath
	b.lastExportMetadata = core.UploadMetadata{
		TrackName:    trackName,
		RaceName:     b.race.Name,
		RaceDuration: float64(export.EndFrame) / frameRate(b.race),
		Tag:          b.race.Tag,
	}
	return nil
}

func frameRate(r *core.Race) float64 {
	if r.FrameRate <= 0 {
		return 1
	}
	return r.FrameRate
}

func writeExport(path string, data v1.Export, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !compress {
		return json.NewEncoder(f).Encode(data)
	}

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gz.Close()
}
