package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wavemark/fprint/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect a catalog file",
}

var catalogInspectCmd = &cobra.Command{
	Use:   "inspect <catalog-file>",
	Short: "Print a summary of each catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogInspect,
}

func init() {
	catalogCmd.AddCommand(catalogInspectCmd)
}

func runCatalogInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	cat, err := catalog.Load(f)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	bold := color.New(color.Bold)
	bold.Printf("%s: %d entries\n", args[0], cat.Len())
	for i := 0; i < cat.Len(); i++ {
		points, item := cat.Get(i)
		fmt.Printf("  [%d] %q  %d points  %d ch\n", i, item.Title, len(points), item.Channels)
	}
	return nil
}
