// Command fundctl is the operator CLI: classify a photo locally and manage
// the flat-file inventories without the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/fundgrube-api/internal/config"
	"github.com/Brownie44l1/fundgrube-api/internal/inventory"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fundctl",
		Short:         "Lost-and-found and inventory tooling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("articles", "", "article inventory JSON file (default from INVENTORY_PATH)")
	root.PersistentFlags().String("stock", "", "stock table .csv or .xlsx (default from STOCK_PATH)")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(newClassifyCmd(), newInventoryCmd(), newStockCmd())
	return root
}

func inventoryPaths(cmd *cobra.Command) (config.InventoryConfig, error) {
	articles, _ := cmd.Flags().GetString("articles")
	stock, _ := cmd.Flags().GetString("stock")
	if articles != "" && stock != "" {
		return config.InventoryConfig{ArticlesPath: articles, StockPath: stock}, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return config.InventoryConfig{}, err
	}
	paths := cfg.Inventory
	if articles != "" {
		paths.ArticlesPath = articles
	}
	if stock != "" {
		paths.StockPath = stock
	}
	return paths, nil
}

func articleStore(cmd *cobra.Command) (*inventory.ArticleStore, error) {
	paths, err := inventoryPaths(cmd)
	if err != nil {
		return nil, err
	}
	return inventory.NewArticleStore(paths.ArticlesPath), nil
}

func stockStore(cmd *cobra.Command) (*inventory.StockStore, error) {
	paths, err := inventoryPaths(cmd)
	if err != nil {
		return nil, err
	}
	return inventory.NewStockStore(paths.StockPath)
}
