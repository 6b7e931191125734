package v1

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads an export from r, transparently gunzipping it.
func Decode(r io.Reader) (Export, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return Export{}, fmt.Errorf("failed to read export: %w", err)
	}

	var src io.Reader = br
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return Export{}, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	var export Export
	if err := json.NewDecoder(src).Decode(&export); err != nil {
		return Export{}, fmt.Errorf("failed to decode export: %w", err)
	}
	if export.Version != FormatVersion {
		return Export{}, fmt.Errorf("unsupported export version %d", export.Version)
	}
	return export, nil
}

// ReadFile decodes the export stored at path.
func ReadFile(path string) (Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return Export{}, err
	}
	defer f.Close()
	return Decode(f)
}
