package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UnsupportedFormatError is returned when a scenario file declares a format
// version this build does not understand. A newer format must be refused,
// not silently misparsed.
type UnsupportedFormatError struct {
	Found     int
	Supported int
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported scenario format version %d (this build supports version %d)",
		e.Found, e.Supported)
}

// Load parses a scenario from the given reader with strict field validation.
// Unknown fields in the YAML cause an error; an unrecognized format version
// is reported as *UnsupportedFormatError before any strict decoding.
func Load(r io.Reader) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty scenario file")
	}

	// Probe the version leniently first: a future format will contain
	// fields a strict decode would reject with a confusing message.
	var probe struct {
		Version int `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if probe.Version != FormatVersion {
		return nil, &UnsupportedFormatError{Found: probe.Version, Supported: FormatVersion}
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var scn Scenario
	if err := decoder.Decode(&scn); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := scn.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scn, nil
}

// LoadFile loads a scenario from the given file path.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path) //nolint:gosec // File path comes from user input, expected behavior
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// Save serializes the scenario to the given writer.
func Save(w io.Writer, scn *Scenario) error {
	if err := scn.Validate(); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(scn); err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}
	return enc.Close()
}

// SaveFile persists the scenario to the given path.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func SaveFile(path string, scn *Scenario) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create scenario directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Save(&buf, scn); err != nil {
		return err
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write temp scenario file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename scenario file: %w", err)
	}

	return nil
}
