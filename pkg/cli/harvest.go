package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/japaniel/jlptdeck/pkg/cache"
	"github.com/japaniel/jlptdeck/pkg/config"
	"github.com/japaniel/jlptdeck/pkg/harvest"
	"github.com/japaniel/jlptdeck/pkg/jlpt"
)

var (
	harvestLevelFlag string
	harvestRefresh   bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest level-tagged vocabulary into the local cache",
		Run:   runHarvest,
	}
	cmd.Flags().StringVar(&harvestLevelFlag, "level", "", "Harvest a single level (e.g. N3); default is all five")
	cmd.Flags().BoolVar(&harvestRefresh, "refresh", false, "Re-harvest levels already completed in the cache")

	RootCmd.AddCommand(cmd)
}

func runHarvest(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg.Log)

	levels := jlpt.Graded
	if harvestLevelFlag != "" {
		level, err := jlpt.Parse(harvestLevelFlag)
		if err != nil {
			exitErr("parse level", err)
		}
		levels = []jlpt.Level{level}
	}

	db, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		exitErr("open cache", err)
	}
	defer db.Close()

	results, err := harvestLevels(cmd.Context(), cfg, db, log, levels, harvestRefresh)
	if err != nil {
		exitErr("harvest", err)
	}
	for _, res := range results {
		log.Info("level harvested",
			"level", res.Level.String(),
			"candidates", len(res.Candidates),
			"pages", res.PagesFetched,
			"truncated", res.Truncated,
			"skipped_rows", res.SkippedRows,
			"duplicates", res.Duplicates,
			"from_cache", res.FromCache)
	}
}

// harvestLevels returns one result per requested level, replaying completed
// levels from the cache and fetching the rest from the network. Fresh
// results are persisted before returning so an interrupted run resumes
// where it left off.
func harvestLevels(ctx context.Context, cfg *config.Config, db *sql.DB, log *slog.Logger, levels []jlpt.Level, refresh bool) ([]*harvest.LevelResult, error) {
	results := make([]*harvest.LevelResult, 0, len(levels))
	var fresh []jlpt.Level

	for _, level := range levels {
		if !refresh {
			status, err := cache.GetLevelStatus(db, level)
			if err != nil {
				return nil, fmt.Errorf("cache status %s: %w", level, err)
			}
			if status != nil && status.Completed {
				res, err := cache.LoadLevelResult(db, level)
				if err != nil {
					return nil, fmt.Errorf("cache replay %s: %w", level, err)
				}
				results = append(results, res)
				continue
			}
		}
		fresh = append(fresh, level)
	}
	if len(fresh) == 0 {
		return results, nil
	}

	client := harvest.New(harvest.Options{
		BaseURL:     cfg.Harvest.BaseURL,
		MaxPages:    cfg.Harvest.MaxPages,
		MaxRetries:  cfg.Harvest.MaxRetries,
		RetryBase:   cfg.Harvest.RetryBase,
		RetryCap:    cfg.Harvest.RetryCap,
		Timeout:     cfg.Harvest.Timeout,
		Concurrency: cfg.Harvest.Concurrency,
	}, log)

	freshResults, err := client.HarvestAll(ctx, fresh)
	if err != nil {
		return nil, err
	}

	bw := cache.NewBatchWriter(db, cfg.Cache.BatchSize, cfg.Cache.FlushInterval)
	for _, res := range freshResults {
		if res == nil {
			continue
		}
		if err := cache.SaveLevelResult(bw, res); err != nil {
			bw.Close()
			return nil, fmt.Errorf("persist %s: %w", res.Level, err)
		}
		results = append(results, res)
	}
	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("flush cache: %w", err)
	}
	return results, nil
}
