package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wavemark/fprint/internal/catalog"
	"github.com/wavemark/fprint/internal/matcher"
	"github.com/wavemark/fprint/internal/pipeline"
	"github.com/wavemark/fprint/internal/wavfixture"
)

var (
	matchIn      string
	matchCatalog string
	matchDebug   bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a WAV query against a catalog",
	RunE:  runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchIn, "in", "", "query WAV file (required)")
	matchCmd.Flags().StringVar(&matchCatalog, "catalog", "", "catalog file to match against (required)")
	matchCmd.Flags().BoolVar(&matchDebug, "debug", false, "print every live session snapshot after matching, not just emitted results")
	_ = matchCmd.MarkFlagRequired("in")
	_ = matchCmd.MarkFlagRequired("catalog")
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(presetName)
	if err != nil {
		return err
	}

	cf, err := os.Open(matchCatalog)
	if err != nil {
		return fmt.Errorf("open %s: %w", matchCatalog, err)
	}
	defer cf.Close()
	cat, err := catalog.Load(cf)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	qf, err := os.Open(matchIn)
	if err != nil {
		return fmt.Errorf("open %s: %w", matchIn, err)
	}
	defer qf.Close()
	pcm, format, err := wavfixture.Load(qf)
	if err != nil {
		return err
	}

	var results []matcher.MatchResult
	mt := matcher.New(cat, cfg.Matching, format.Channels, nil, func(r matcher.MatchResult) {
		results = append(results, r)
	})

	p, err := pipeline.New(format, cfg, nil, nil)
	if err != nil {
		return err
	}
	p.SetPointCallback(mt.ProcessPoint)

	if err := p.AppendStreamBuffer(pcm, 0); err != nil {
		return err
	}
	p.Flush()

	if len(results) == 0 {
		color.New(color.FgYellow).Println("no match found")
	}
	for _, r := range results {
		color.New(color.FgGreen, color.Bold).Printf("match: %s\n", r.MediaItem.Title)
		fmt.Printf("  offset:     %.3fs\n", r.Offset)
		fmt.Printf("  confidence: %.2f\n", r.Confidence)
		fmt.Printf("  matches:    %d (%d unique timestamps)\n", r.MatchCount, r.UniqueTimestampMatchCount)
	}

	if matchDebug {
		snapshots := mt.DebugSessions()
		color.New(color.FgCyan).Printf("\n%d live session(s):\n", len(snapshots))
		for _, s := range snapshots {
			fmt.Printf("  sig=%d offset=%dms count=%d unique=%d meanOffset=%.1fms notified=%v\n",
				s.SignatureRef, s.OffsetMs, s.MatchCount, s.UniqueTimestamps, s.MeanOffsetMs, s.IsNotified)
		}
	}
	return nil
}
