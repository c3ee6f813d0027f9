package lexicon

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"strings"
)

// supportedSchemaMajor is the jmdict-simplified major version this loader
// understands. The upstream provider bumps the major on breaking changes.
const supportedSchemaMajor = "3"

// LoadError reports a fatal problem with the dictionary archive: missing
// file, malformed contents, or an unrecognized schema version.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lexicon: load %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("lexicon: load %s: %s", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// archiveFile is the top-level shape of a jmdict-simplified JSON dump.
type archiveFile struct {
	Version string            `json:"version"`
	Tags    map[string]string `json:"tags"`
	Words   []Entry           `json:"words"`
}

// Load opens a zipped jmdict-simplified dump and builds the lookup index.
// The zip must contain exactly one JSON file. Load never touches the
// network and is deterministic for a given archive.
func Load(path string) (*Index, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "open archive", Err: err}
	}
	defer zr.Close()

	if len(zr.File) != 1 {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("expected exactly one file in archive, found %d", len(zr.File))}
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "open archive member", Err: err}
	}
	defer f.Close()

	var dump archiveFile
	if err := json.NewDecoder(f).Decode(&dump); err != nil {
		return nil, &LoadError{Path: path, Reason: "parse dictionary json", Err: err}
	}
	if major, _, _ := strings.Cut(dump.Version, "."); major != supportedSchemaMajor {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("unsupported schema version %q", dump.Version)}
	}
	if len(dump.Words) == 0 {
		return nil, &LoadError{Path: path, Reason: "dictionary contains no entries"}
	}

	applyTagOverrides(dump.Tags)
	return newIndex(dump.Words, dump.Tags), nil
}

// applyTagOverrides rewrites a few of the upstream one-letter glossary
// entries into the labels the flashcards use.
func applyTagOverrides(tags map[string]string) {
	if tags == nil {
		return
	}
	tags["n"] = "noun"
	tags["hon"] = "honorific/尊敬語"
	tags["pol"] = "polite/丁寧語"
	tags["hum"] = "humble/謙譲語"
}
