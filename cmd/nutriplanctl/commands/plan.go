package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"nutriplan/internal/app"
	"nutriplan/internal/core/ingredient"
	"nutriplan/internal/core/plan"
	"nutriplan/internal/pkg/common"

	"github.com/spf13/cobra"
)

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-line LINE...",
		Short: "Parse ingredient lines into item, quantity and unit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := make([]ingredient.ParsedLine, 0, len(args))
			for _, arg := range args {
				lines = append(lines, ingredient.ParseLine(arg))
			}
			return printJSON(cmd, lines)
		},
	}
}

func newRecipesCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List the recipes and daily dish references of a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			return withApp(cmd, nil, func(_ context.Context, a *app.App) error {
				return printJSON(cmd, a.Plans.Recipes(text))
			})
		},
	}
	cmd.Flags().StringVarP(&file, "plan", "p", "-", "plan text file, - for stdin")
	return cmd
}

func newAnalyzeCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute total and per-serving nutrients of every recipe in a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			return withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				result, err := a.Plans.Analyze(ctx, text)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "plan", "p", "-", "plan text file, - for stdin")
	return cmd
}

func newFavoriteCommand() *cobra.Command {
	var file, identifier string
	cmd := &cobra.Command{
		Use:   "favorite",
		Short: "Turn one recipe of a plan into a preparation with nutrients",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			return withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				prep, err := a.Plans.Favorite(ctx, text, identifier)
				if err != nil {
					return err
				}
				return printJSON(cmd, prep)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "plan", "p", "-", "plan text file, - for stdin")
	cmd.Flags().StringVarP(&identifier, "recipe", "r", "", "recipe number (N°3) or title")
	_ = cmd.MarkFlagRequired("recipe")
	return cmd
}

func newShoppingListCommand() *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "shopping-list",
		Short: "Group the ingredients of all recipes in a plan into a shopping list",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			return withApp(cmd, nil, func(_ context.Context, a *app.App) error {
				list, err := a.Plans.ShoppingList(text)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				for _, c := range list.Categories {
					fmt.Fprintf(out, "%s\n", c.Name)
					for _, item := range c.Items {
						fmt.Fprintf(out, "  - %s\n", item)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "plan", "p", "-", "plan text file, - for stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func newPrepareCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Compute the nutrients of a preparation described in a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				in  plan.PreparationInput
				err error
			)
			if file == "-" {
				err = common.DecodeJSONStrict(cmd.InOrStdin(), &in)
			} else {
				var f *os.File
				if f, err = os.Open(file); err == nil {
					defer f.Close()
					err = common.DecodeJSONStrict(f, &in)
				}
			}
			if err != nil {
				return fmt.Errorf("read preparation: %w", err)
			}
			return withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				prep, err := a.Plans.Preparation(ctx, in)
				if err != nil {
					return err
				}
				if len(prep.Unresolved) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "unresolved: %s\n", strings.Join(prep.Unresolved, ", "))
				}
				return printJSON(cmd, prep)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "preparation JSON file, - for stdin")
	return cmd
}
