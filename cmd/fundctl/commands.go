package main

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/fundgrube-api/internal/bootstrap"
	"github.com/Brownie44l1/fundgrube-api/internal/config"
	"github.com/Brownie44l1/fundgrube-api/internal/inventory"
	"github.com/Brownie44l1/fundgrube-api/internal/logging"
)

// --- classify ---

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <image>",
		Short: "Classify a JPEG or PNG photo with the configured model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "fundctl", "warn")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer f.Close()
			img, _, err := image.Decode(f)
			if err != nil {
				return fmt.Errorf("decode image %s: %w", args[0], err)
			}

			mdl, err := bootstrap.LoadModel(cfg.Model, logger)
			if err != nil {
				return err
			}
			defer mdl.Close()

			res, err := mdl.Predictor.PredictImage(cmd.Context(), img)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%.2f%%)\n", res.Label, res.Percent)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print the full prediction as JSON")
	return cmd
}

// --- inventory ---

func newInventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Manage the article inventory",
	}
	cmd.AddCommand(
		newInventoryListCmd(),
		newInventoryAddCmd(),
		newInventoryUpdateCmd(),
		newInventoryDeleteCmd(),
	)
	return cmd
}

func newInventoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles, optionally filtered by name or category",
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			store, err := articleStore(cmd)
			if err != nil {
				return err
			}
			list, err := store.List(search)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tName\tKategorie\tMenge\tStandort\tKommentar")
			for _, a := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", a.ID, a.Name, a.Kategorie, a.Menge, a.Standort, a.Kommentar)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("search", "", "case-insensitive substring of name or category")
	return cmd
}

func articleFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "article name")
	cmd.Flags().String("category", "", "category, one of the standard categories")
	cmd.Flags().Int("quantity", 0, "quantity")
	cmd.Flags().String("location", "", "storage location")
	cmd.Flags().String("comment", "", "free-form comment")
}

// applyArticleFlags copies only the flags the user set onto a.
func applyArticleFlags(cmd *cobra.Command, a *inventory.Article) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		a.Name, _ = flags.GetString("name")
	}
	if flags.Changed("category") {
		a.Kategorie, _ = flags.GetString("category")
	}
	if flags.Changed("quantity") {
		a.Menge, _ = flags.GetInt("quantity")
	}
	if flags.Changed("location") {
		a.Standort, _ = flags.GetString("location")
	}
	if flags.Changed("comment") {
		a.Kommentar, _ = flags.GetString("comment")
	}
}

func warnUnknownCategory(cmd *cobra.Command, category string) {
	if category != "" && !slices.Contains(inventory.Categories, category) {
		printWarning(cmd, "category %q is not one of %v", category, inventory.Categories)
	}
}

func newInventoryAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an article",
		RunE: func(cmd *cobra.Command, args []string) error {
			var a inventory.Article
			applyArticleFlags(cmd, &a)
			if a.Name == "" {
				return fmt.Errorf("--name is required")
			}
			warnUnknownCategory(cmd, a.Kategorie)

			store, err := articleStore(cmd)
			if err != nil {
				return err
			}
			created, err := store.Create(a)
			if err != nil {
				return err
			}
			printSuccess(cmd, "Added %s as %s", created.Name, created.ID)
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return nil
		},
	}
	articleFlags(cmd)
	return cmd
}

func newInventoryUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := articleStore(cmd)
			if err != nil {
				return err
			}
			a, err := store.Get(args[0])
			if err != nil {
				return err
			}
			applyArticleFlags(cmd, &a)
			warnUnknownCategory(cmd, a.Kategorie)

			if _, err := store.Update(args[0], a); err != nil {
				return err
			}
			printSuccess(cmd, "Updated %s", args[0])
			return nil
		},
	}
	articleFlags(cmd)
	return cmd
}

func newInventoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := articleStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			printSuccess(cmd, "Deleted %s", args[0])
			return nil
		},
	}
}

// --- stock ---

func newStockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Inspect and edit the stock table",
	}
	cmd.AddCommand(newStockListCmd(), newStockSummaryCmd(), newStockAddCmd(), newStockDeleteCmd())
	return cmd
}

func newStockListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stock rows with their value",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := stockStore(cmd)
			if err != nil {
				return err
			}
			list, err := store.List()
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "Produkt\tKategorie\tMenge\tPreis\tWert")
			for _, it := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\n", it.Produkt, it.Kategorie, it.Menge, it.Preis, it.Value())
			}
			return tw.Flush()
		},
	}
}

func newStockSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show product count, total quantity and total value",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := stockStore(cmd)
			if err != nil {
				return err
			}
			sum, err := store.Summary()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d\n", colorize(cmd, colorBold, "Produkte:"), sum.Products)
			fmt.Fprintf(out, "%s %d\n", colorize(cmd, colorBold, "Gesamtmenge:"), sum.TotalQuantity)
			fmt.Fprintf(out, "%s %.2f\n", colorize(cmd, colorBold, "Gesamtwert:"), sum.TotalValue)
			return nil
		},
	}
}

func newStockAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a stock row",
		RunE: func(cmd *cobra.Command, args []string) error {
			var it inventory.StockItem
			it.Produkt, _ = cmd.Flags().GetString("product")
			it.Kategorie, _ = cmd.Flags().GetString("category")
			it.Menge, _ = cmd.Flags().GetInt("quantity")
			it.Preis, _ = cmd.Flags().GetFloat64("price")

			store, err := stockStore(cmd)
			if err != nil {
				return err
			}
			if _, err := store.Create(it); err != nil {
				return err
			}
			printSuccess(cmd, "Added %s", it.Produkt)
			return nil
		},
	}
	cmd.Flags().String("product", "", "product name, unique per table")
	cmd.Flags().String("category", "", "category")
	cmd.Flags().Int("quantity", 0, "quantity on hand")
	cmd.Flags().Float64("price", 0, "unit price")
	return cmd
}

func newStockDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <product>",
		Short: "Delete a stock row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := stockStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			printSuccess(cmd, "Deleted %s", args[0])
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
