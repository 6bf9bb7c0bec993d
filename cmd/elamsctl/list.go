package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
	"github.com/iliyamo/lab-equipment-reservation/internal/reservation"
)

var (
	statusFilter string
	page         int
	perPage      int
	mine         bool
	jsonOutput   bool
)

func init() {
	listCmd := &cobra.Command{
		Use:     "list [<search>]",
		Aliases: []string{"ls"},
		Short:   "List reservations",
		Long: `List reservations, newest first

The optional search term matches the reservation code, subject,
instructor or course.  Faculty see only their own reservations.
`,
		RunE: list,
	}

	listCmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Only show this status (Pending, Approved, Rejected, Assigned)")
	listCmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	listCmd.Flags().IntVar(&perPage, "per-page", 10, "Rows per page")
	listCmd.Flags().BoolVarP(&mine, "mine", "m", false, "Show your reservations only")
	listCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "JSON output")

	RootCmd.AddCommand(listCmd)
}

func list(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	all, err := api.List(ctx)
	if err != nil {
		return err
	}
	if mine || !me.IsStaff() {
		all = reservation.ForInstructor(all, me.Email)
	}

	q := reservation.Query{Status: model.Status(statusFilter)}
	if len(args) > 0 {
		q.Search = strings.Join(args, " ")
	}
	pg := reservation.Paginate(reservation.Filter(all, q), page, perPage)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pg)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCode\tSubject\tInstructor\tSchedule\tStatus\tUnseen")
	for _, r := range pg.Items {
		unseen := unseenFor(r)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Code, r.Subject, r.Instructor, r.Schedule, r.Status, unseen)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\npage %d of %d (%d reservations)\n", pg.Page, pg.TotalPages, pg.Total)
	return nil
}
