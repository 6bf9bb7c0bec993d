package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/lab-equipment-reservation/internal/maintenance"
)

var (
	dueMonth   string
	exportPath string
)

func init() {
	maintenanceCmd := &cobra.Command{
		Use:     "maintenance",
		Aliases: []string{"mnt"},
		Short:   "Show the calibration schedule",
		Long: `Show the calibration schedule with each item's current status

An item is "Calibrate" until it has a date accomplished,
"Completed This Month" when that date falls in the current month and
"Completed" otherwise.  Use --export to write an xlsx workbook instead.
`,
		RunE: maintenanceList,
	}
	maintenanceCmd.Flags().StringVar(&dueMonth, "month", "", "Only items scheduled for this month (Jan..Dec)")
	maintenanceCmd.Flags().StringVarP(&exportPath, "export", "o", "", "Write the schedule to this xlsx file (\"-\" picks a dated name)")

	RootCmd.AddCommand(maintenanceCmd)
}

func maintenanceList(cmd *cobra.Command, args []string) error {
	if err := requireSheets(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	items, err := sheets.Maintenance(ctx)
	if err != nil {
		return err
	}
	if dueMonth != "" {
		m, err := maintenance.ParseMonth(dueMonth)
		if err != nil {
			return err
		}
		items = maintenance.DueIn(items, m)
	}
	now := time.Now()

	if exportPath != "" {
		path := exportPath
		if path == "-" {
			path = maintenance.ExportFileName(now)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := maintenance.Export(items, now, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %d items to %s\n", len(items), path)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "No.\tEquipment\tMonth\tAccomplished\tBy\tStatus")
	for _, r := range maintenance.WithStatus(items, now) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Num, r.EquipmentName, r.Month, r.DateAccomplished, r.AccomplishedBy, r.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	s := maintenance.Summarize(items, now)
	fmt.Printf("\n%d for calibration, %d completed this month, %d completed\n", s.Calibrate, s.CompletedThisMonth, s.Completed)
	return nil
}
