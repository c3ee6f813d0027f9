package cli

import (
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/japaniel/jlptdeck/pkg/audio"
	"github.com/japaniel/jlptdeck/pkg/cache"
	"github.com/japaniel/jlptdeck/pkg/config"
	"github.com/japaniel/jlptdeck/pkg/deck"
	"github.com/japaniel/jlptdeck/pkg/jlpt"
	"github.com/japaniel/jlptdeck/pkg/lexicon"
	"github.com/japaniel/jlptdeck/pkg/reading"
	"github.com/japaniel/jlptdeck/pkg/reconcile"
)

var buildVariantFlag string

func init() {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the full pipeline and export a deck package",
		Long: "Loads the dictionary archive, harvests level tags (cache-aware),\n" +
			"reconciles, optionally resolves audio, and exports CSVs plus a bundle.",
		Run: runBuild,
	}
	cmd.Flags().StringVar(&buildVariantFlag, "variant", "", "Deck variant: core or extended (default from config)")

	RootCmd.AddCommand(cmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg.Log)
	ctx := cmd.Context()

	variantName := cfg.Deck.Variant
	if buildVariantFlag != "" {
		variantName = buildVariantFlag
	}
	variant, err := deck.ParseVariant(variantName)
	if err != nil {
		exitErr("parse variant", err)
	}
	policy, err := jlpt.ParsePolicy(cfg.Deck.LevelPolicy)
	if err != nil {
		exitErr("parse level policy", err)
	}

	index, err := lexicon.Load(cfg.Lexicon.ArchivePath)
	if err != nil {
		exitErr("load lexicon", err)
	}
	log.Info("lexicon loaded", "path", cfg.Lexicon.ArchivePath, "entries", index.Len())

	db, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		exitErr("open cache", err)
	}
	defer db.Close()

	results, err := harvestLevels(ctx, cfg, db, log, jlpt.Graded, false)
	if err != nil {
		exitErr("harvest", err)
	}

	analyzer, err := reading.NewAnalyzer()
	if err != nil {
		// Resolution still works without it, just with a cruder tiebreak.
		log.Warn("morphological analyzer unavailable", "error", err)
		analyzer = nil
	}
	var readings reconcile.ReadingSource
	if analyzer != nil {
		readings = analyzer
	}

	rec := reconcile.New(index, readings, reconcile.Options{
		Policy:        policy,
		IncludeCommon: cfg.Deck.IncludeCommon,
	}, log)
	merged := rec.Run(results)

	audioMisses := 0
	if variant == deck.VariantExtended {
		audioMisses = resolveAudio(cmd, cfg, db, log, merged.Entries)
	}

	pkg := deck.Assemble(merged.Entries, variant)
	if err := deck.WriteCSVs(pkg, cfg.Deck.OutputDir); err != nil {
		exitErr("export csvs", err)
	}
	bundlePath := filepath.Join(cfg.Deck.OutputDir, cfg.Deck.BundleName)
	if err := deck.WriteBundle(pkg, bundlePath); err != nil {
		exitErr("export bundle", err)
	}

	truncated := 0
	skipped := 0
	for _, res := range results {
		if res.Truncated {
			truncated++
		}
		skipped += res.SkippedRows
	}
	log.Info("deck built",
		"variant", string(variant),
		"entries", len(merged.Entries),
		"decks", len(pkg.Decks),
		"unresolved", len(merged.Unresolved),
		"conflicts", len(merged.Conflicts),
		"near_duplicates_dropped", len(merged.Dropped),
		"common_added", merged.CommonAdded,
		"truncated_levels", truncated,
		"skipped_rows", skipped,
		"audio_misses", audioMisses,
		"bundle", bundlePath)
}

// resolveAudio fills Entry.Audio for the extended variant: the manifest in
// the cache first, then the provider for anything missing. A missing or
// rejected credential is fatal here since the extended deck was explicitly
// requested; individual misses are only counted.
func resolveAudio(cmd *cobra.Command, cfg *config.Config, db *sql.DB, log *slog.Logger, entries []reconcile.Entry) int {
	resolver, err := audio.NewResolver(audio.Options{
		BaseURL:     cfg.Audio.BaseURL,
		TokenPath:   cfg.Audio.TokenPath,
		CatalogPath: cfg.Audio.CatalogPath,
		MediaDir:    cfg.Audio.MediaDir,
		Timeout:     cfg.Audio.Timeout,
		Workers:     cfg.Audio.Workers,
		MaxRetries:  cfg.Audio.MaxRetries,
	}, log)
	if err != nil {
		exitErr("audio credential", err)
	}
	if err := resolver.LoadCatalog(cmd.Context()); err != nil {
		var authErr *audio.AuthError
		if errors.As(err, &authErr) {
			exitErr("audio catalog", err)
		}
		log.Warn("audio catalog unavailable, skipping audio", "error", err)
		return len(entries)
	}

	var reqs []audio.Request
	reqIdx := make(map[string]int)
	for i := range entries {
		e := &entries[i]
		path, err := cache.AudioPath(db, e.Seq)
		if err != nil {
			log.Warn("audio manifest lookup failed", "seq", e.Seq, "error", err)
		}
		if path != "" {
			e.Audio = path
			continue
		}
		reqIdx[e.Seq] = i
		reqs = append(reqs, audio.Request{Seq: e.Seq, Form: e.Expression, Reading: e.Kana})
	}

	misses := 0
	for _, res := range resolver.ResolveAll(cmd.Context(), reqs) {
		if res.Err != nil {
			misses++
			if !errors.Is(res.Err, audio.ErrNotFound) {
				log.Warn("audio resolution failed", "seq", res.Seq, "error", res.Err)
			}
			continue
		}
		entries[reqIdx[res.Seq]].Audio = res.Path
		if err := cache.SaveAudio(db, res.Seq, res.Path, ""); err != nil {
			log.Warn("audio manifest write failed", "seq", res.Seq, "error", err)
		}
	}
	return misses
}
