package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/shoplist/internal/model"
	"github.com/vyrodovalexey/shoplist/internal/shoplist"
)

const selectionUsage = "Each item is an ID or a name, optionally followed by =quantity (Milk=2, ID7=3)."

func newPreviewCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <item>[=qty]...",
		Short: "Show the list in store walking order",
		Long:  "Show the list in store walking order. " + selectionUsage,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, _, _, err := flags.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			items, err := resolveSelection(a.Service.Items(ctx), args)
			if err != nil {
				return err
			}

			sorted, err := a.Service.Preview(items)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), shoplist.FormatMessage(sorted))
			return nil
		},
	}
}

func newFinalizeCmd(flags *globalFlags) *cobra.Command {
	var amend bool

	cmd := &cobra.Command{
		Use:   "finalize <item>[=qty]...",
		Short: "Send the list and record it in history",
		Long:  "Send the list and record it in history. " + selectionUsage,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, _, _, err := flags.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			items, err := resolveSelection(a.Service.Items(ctx), args)
			if err != nil {
				return err
			}

			result, err := a.Service.Finalize(ctx, items, amend)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sent %s (%s)\n", result.DeliveryID, result.Outcome)
			if result.Warning != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", result.Warning)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&amend, "amend", false, "Replace the most recent list when it is still editable")
	return cmd
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently sent lists, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}

			ctx := context.Background()
			a, _, _, err := flags.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			records := a.Service.History(ctx, limit)
			if format == formatJSON {
				return outputJSON(cmd, records)
			}

			t := newTable(cmd, table.Row{"Date", "Items", "Total", "Editable"})
			for _, rec := range records {
				editable := "no"
				if rec.IsEditable {
					editable = fmt.Sprintf("yes (%dm ago)", rec.MinutesAgo)
				}
				t.AppendRow(table.Row{rec.DisplayDate, rec.ItemsDisplay, rec.TotalItems, editable})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of lists to show")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}

// resolveSelection turns "name=qty" arguments into list items from catalog.
// Items are matched by ID first, then by case-insensitive name.
func resolveSelection(catalog []model.CatalogItem, args []string) ([]model.ListItem, error) {
	byID := make(map[string]model.CatalogItem, len(catalog))
	byName := make(map[string]model.CatalogItem, len(catalog))
	for _, item := range catalog {
		byID[item.ItemID] = item
		byName[strings.ToLower(item.Name)] = item
	}

	out := make([]model.ListItem, 0, len(args))
	for _, arg := range args {
		key, qty, err := parseSelection(arg)
		if err != nil {
			return nil, err
		}

		item, ok := byID[key]
		if !ok {
			item, ok = byName[strings.ToLower(key)]
		}
		if !ok {
			return nil, fmt.Errorf("unknown item %q", key)
		}
		out = append(out, model.ListItem{CatalogItem: item, Quantity: qty})
	}
	return out, nil
}

func parseSelection(arg string) (string, int, error) {
	key, raw, found := strings.Cut(arg, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", 0, fmt.Errorf("invalid item %q", arg)
	}
	if !found {
		return key, 1, nil
	}

	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty <= 0 {
		return "", 0, fmt.Errorf("invalid quantity in %q", arg)
	}
	return key, qty, nil
}
