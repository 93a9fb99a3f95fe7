package commands

import (
	"context"
	"fmt"

	"nutriplan/internal/app"
	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/infrastructure/seed"

	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML or JSON reference catalog into the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			noAutoSeed := func(cfg *config.Config) { cfg.Database.SeedFile = "" }
			return withApp(cmd, noAutoSeed, func(ctx context.Context, a *app.App) error {
				report, err := seed.Apply(ctx, a.References, cat)
				if err != nil {
					return err
				}
				return printReport(cmd, report)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "data/reference_seed.yaml", "catalog file (.yaml or .json)")
	return cmd
}

func newImportCommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Download a JSON reference catalog and upsert it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				if url == "" {
					url = a.Config.Importer.URL
				}
				cat, err := seed.NewImporter(a.Config.Importer).Fetch(ctx, url)
				if err != nil {
					return err
				}
				report, err := seed.Apply(ctx, a.References, cat)
				if err != nil {
					return err
				}
				return printReport(cmd, report)
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "catalog URL (defaults to importer.url)")
	return cmd
}

func printReport(cmd *cobra.Command, report *seed.Report) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "references: %d, equivalences: %d\n", report.References, report.Equivalences)
	for _, name := range report.SkippedReferences {
		fmt.Fprintf(out, "skipped reference: %s\n", name)
	}
	for _, name := range report.SkippedEquivalences {
		fmt.Fprintf(out, "skipped equivalence: %s\n", name)
	}
	return nil
}
