// Package commands nutriplanctl 的子命令
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"nutriplan/internal/app"
	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"github.com/spf13/cobra"
)

type options struct {
	cfgFile string
	verbose bool
}

// NewRootCommand 建立根命令與所有子命令
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "nutriplanctl",
		Short:         "Parse meal plans and compute recipe nutrition",
		Long:          "nutriplanctl extracts recipes from generated meal plans, normalizes ingredient quantities and sums their nutrients against the reference catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfgFile != "" {
				if err := os.Setenv("APP_CONFIG_FILE", opts.cfgFile); err != nil {
					return err
				}
			}
			if opts.verbose {
				return common.InitLogger("debug")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newParseCommand(),
		newSeedCommand(),
		newImportCommand(),
		newRecipesCommand(),
		newAnalyzeCommand(),
		newFavoriteCommand(),
		newShoppingListCommand(),
		newPrepareCommand(),
	)
	return root
}

// withApp 載入設定並組裝服務，結束後釋放
func withApp(cmd *cobra.Command, adjust func(*config.Config), fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if adjust != nil {
		adjust(cfg)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// readInput 讀取檔案；路徑為 "-" 時讀取標準輸入
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("input file is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return string(data), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
