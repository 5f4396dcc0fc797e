package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wavemark/fprint/internal/catalog"
	"github.com/wavemark/fprint/internal/pipeline"
	"github.com/wavemark/fprint/internal/wavfixture"
)

var (
	generateIn       string
	generateCatalog  string
	generateTitle    string
	generateSubtitle string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate signature points from a WAV clip and append them to a catalog",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateIn, "in", "", "input WAV file (required)")
	generateCmd.Flags().StringVar(&generateCatalog, "catalog", "", "catalog file to append to, created if absent (required)")
	generateCmd.Flags().StringVar(&generateTitle, "title", "", "media item title")
	generateCmd.Flags().StringVar(&generateSubtitle, "subtitle", "", "media item subtitle")
	_ = generateCmd.MarkFlagRequired("in")
	_ = generateCmd.MarkFlagRequired("catalog")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(presetName)
	if err != nil {
		return err
	}

	f, err := os.Open(generateIn)
	if err != nil {
		return fmt.Errorf("open %s: %w", generateIn, err)
	}
	defer f.Close()

	pcm, format, err := wavfixture.Load(f)
	if err != nil {
		return err
	}

	p, err := pipeline.New(format, cfg, nil, nil)
	if err != nil {
		return err
	}
	if err := p.AppendStreamBuffer(pcm, 0); err != nil {
		return err
	}
	p.Flush()

	points := p.Signature()
	logger.Info("generated signature", "points", len(points), "file", generateIn)

	cat, err := loadOrNewCatalog(generateCatalog)
	if err != nil {
		return err
	}
	idx := cat.Add(points, catalog.MediaItem{
		Title:      generateTitle,
		Subtitle:   generateSubtitle,
		Channels:   format.Channels,
		CustomInfo: map[string]string{},
	})

	out, err := os.Create(generateCatalog)
	if err != nil {
		return fmt.Errorf("create %s: %w", generateCatalog, err)
	}
	defer out.Close()
	if err := cat.Save(out); err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("added entry %d (%d points) to %s\n", idx, len(points), generateCatalog)
	return nil
}

func loadOrNewCatalog(path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return catalog.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return catalog.Load(f)
}
