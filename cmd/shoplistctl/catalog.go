package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/shoplist/internal/model"
)

func newItemsCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List catalog items, most purchased first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			ctx := context.Background()
			a, _, _, err := flags.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			items := a.Service.Items(ctx)
			if format == formatJSON {
				return outputJSON(cmd, items)
			}

			t := newTable(cmd, table.Row{"ID", "Name", "Category", "Unit", "Aisle", "Bought"})
			for _, item := range items {
				t.AppendRow(table.Row{item.ItemID, item.Name, item.Category, item.UnitType, item.AisleOrder, item.PurchaseCount})
			}
			t.AppendFooter(table.Row{"", "", "", "", "Total", len(items)})
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}

func newCategoriesCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories in store walking order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			ctx := context.Background()
			a, _, _, err := flags.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			categories := a.Service.Categories(ctx)
			if format == formatJSON {
				return outputJSON(cmd, categories)
			}

			t := newTable(cmd, table.Row{"Aisle", "Category"})
			for _, c := range categories {
				t.AppendRow(table.Row{c.AisleOrder, c.Name})
			}
			t.SortBy([]table.SortBy{{Name: "Aisle", Mode: table.AscNumeric}})
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}

func newAddCmd(flags *globalFlags) *cobra.Command {
	var (
		category string
		unit     string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, _, _, err := flags.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			item, err := a.Service.AddItem(ctx, model.AddItemRequest{
				Name:     args[0],
				Category: category,
				UnitType: unit,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, aisle %d)\n", item.ItemID, item.Name, item.Category, item.AisleOrder)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category of the item (required)")
	cmd.Flags().StringVarP(&unit, "unit", "u", "", "Unit type: quantity or weight")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
