package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iliyamo/lab-equipment-reservation/internal/inventory"
)

var candidateSearch string

func init() {
	candidatesCmd := &cobra.Command{
		Use:   "candidates <id> <line>",
		Short: "List inventory items that can fill a requested line",
		Long: `List inventory items that can fill a requested line

Lines are numbered from 1 as printed by "show".  Only items of the
line's type are listed, sorted by name.  Items marked "short" have less
available than the line needs across all groups and cannot be assigned.
`,
		Args: cobra.ExactArgs(2),
		RunE: candidates,
	}
	candidatesCmd.Flags().StringVar(&candidateSearch, "search", "", "Filter by equipment name")

	RootCmd.AddCommand(candidatesCmd)
}

func candidates(cmd *cobra.Command, args []string) error {
	line, err := strconv.Atoi(args[1])
	if err != nil || line < 1 {
		return fmt.Errorf("line must be a positive number, got %q", args[1])
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*timeout)
	defer cancel()

	r, err := fetch(ctx, args[0])
	if err != nil {
		return err
	}
	items, err := api.Inventory(ctx)
	if err != nil {
		return err
	}
	sess := inventory.NewSession(r)
	list, err := sess.Candidates(items, line-1, candidateSearch)
	if err != nil {
		return err
	}
	row := sess.Rows()[line-1]
	fmt.Printf("%s: %s, %d needed (%s)\n\n", r.Code, row.Line.ItemName, row.TotalNeeded, row.Line.ItemType)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Num\tEquipment\tAvailable\t")
	for _, c := range list {
		mark := ""
		if !c.HasEnough {
			mark = "short"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.Item.Num, c.Item.EquipmentName, c.Item.Available, mark)
	}
	return tw.Flush()
}
