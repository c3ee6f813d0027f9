package deck

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// WriteCSVs writes one flat record file per deck into dir (n1.csv ...
// n5.csv, common.csv). Column order follows the variant's field order,
// with tags and due appended.
func WriteCSVs(pkg *Package, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	for _, d := range pkg.Decks {
		path := filepath.Join(dir, csvName(d))
		if err := writeDeckCSV(pkg, &d, path); err != nil {
			return err
		}
	}
	return nil
}

func csvName(d Deck) string {
	return strings.ToLower(d.Level.String()) + ".csv"
}

func writeDeckCSV(pkg *Package, d *Deck, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append(pkg.Variant.FieldNames(), "Tags", "Due")
	if err := w.Write(header); err != nil {
		return err
	}
	for _, c := range d.Cards {
		if err := w.Write(cardRecord(pkg.Variant, c)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func cardRecord(v Variant, c Card) []string {
	rec := []string{c.Expression, c.Definition, c.Reading, c.Grammar, c.Additional}
	if v == VariantExtended {
		rec = append(rec, c.Sound)
	}
	return append(rec, strings.Join(c.Tags, " "), strconv.Itoa(c.Due))
}

// manifest describes the bundle for the importing tool: hierarchy,
// templates, tag vocabulary and media inventory.
type manifest struct {
	Variant   Variant        `json:"variant"`
	ModelID   int            `json:"model_id"`
	Fields    []string       `json:"fields"`
	Templates []CardTemplate `json:"templates"`
	Decks     []manifestDeck `json:"decks"`
	Tags      []string       `json:"tags"`
	Media     []string       `json:"media"`
}

type manifestDeck struct {
	Name  string `json:"name"`
	Level string `json:"level"`
	File  string `json:"file"`
	Cards int    `json:"cards"`
}

// WriteBundle writes a single zip archive at path containing the per-deck
// CSVs, the referenced media files, and a manifest.json.
func WriteBundle(pkg *Package, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	m := manifest{
		Variant:   pkg.Variant,
		ModelID:   pkg.ModelID,
		Fields:    pkg.Variant.FieldNames(),
		Templates: pkg.Variant.Templates(),
		Tags:      tagVocabulary(pkg),
	}

	for _, d := range pkg.Decks {
		name := csvName(d)
		m.Decks = append(m.Decks, manifestDeck{
			Name:  d.Name,
			Level: d.Level.String(),
			File:  name,
			Cards: len(d.Cards),
		})
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		cw := csv.NewWriter(w)
		if err := cw.Write(append(pkg.Variant.FieldNames(), "Tags", "Due")); err != nil {
			return err
		}
		for _, c := range d.Cards {
			if err := cw.Write(cardRecord(pkg.Variant, c)); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
	}

	for _, media := range pkg.Media {
		base := filepath.Base(media)
		m.Media = append(m.Media, base)
		if err := addFile(zw, "media/"+base, media); err != nil {
			return err
		}
	}

	mw, err := zw.Create("manifest.json")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize bundle: %w", err)
	}
	return f.Close()
}

func addFile(zw *zip.Writer, name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open media %s: %w", src, err)
	}
	defer in.Close()
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("bundle media %s: %w", src, err)
	}
	return nil
}

// tagVocabulary collects every tag used anywhere in the package, sorted.
func tagVocabulary(pkg *Package) []string {
	set := make(map[string]struct{})
	for _, d := range pkg.Decks {
		for _, c := range d.Cards {
			for _, t := range c.Tags {
				set[t] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
