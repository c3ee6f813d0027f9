package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/jlptdeck/pkg/cache"
	"github.com/japaniel/jlptdeck/pkg/jlpt"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show harvest cache diagnostics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	db, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		exitErr("open cache", err)
	}
	defer db.Close()

	fmt.Printf("%-8s %-12s %8s %8s %8s %8s\n",
		"LEVEL", "STATUS", "CANDS", "PAGES", "SKIPPED", "DUPES")
	for _, level := range jlpt.Graded {
		status, err := cache.GetLevelStatus(db, level)
		if err != nil {
			exitErr("level status", err)
		}
		if status == nil {
			fmt.Printf("%-8s %-12s\n", level.String(), "never run")
			continue
		}
		state := "incomplete"
		if status.Completed {
			state = "completed"
		}
		if status.Truncated {
			state = "truncated"
		}
		fmt.Printf("%-8s %-12s %8d %8d %8d %8d\n",
			level.String(), state, status.Candidates, status.PagesFetched,
			status.SkippedRows, status.Duplicates)
	}

	clips, err := cache.AudioCount(db)
	if err != nil {
		exitErr("audio count", err)
	}
	fmt.Printf("\naudio clips downloaded: %d\n", clips)
}
