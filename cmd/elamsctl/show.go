package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iliyamo/lab-equipment-reservation/internal/chat"
	"github.com/iliyamo/lab-equipment-reservation/internal/model"
	"github.com/iliyamo/lab-equipment-reservation/internal/reservation"
)

var byCode bool

func init() {
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one reservation",
		Long: `Show one reservation with its requested and assigned items

Use --code to look the reservation up by its human readable code.
`,
		Args: cobra.ExactArgs(1),
		RunE: show,
	}
	showCmd.Flags().BoolVarP(&byCode, "code", "c", false, "Argument is a reservation code")

	RootCmd.AddCommand(showCmd)
}

// fetch loads a reservation by id, or by code when byCode is set.
func fetch(ctx context.Context, key string) (*model.Reservation, error) {
	if byCode {
		return api.GetByCode(ctx, key)
	}
	return api.Get(ctx, key)
}

func show(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	r, err := fetch(ctx, args[0])
	if err != nil {
		return err
	}
	printReservation(r)
	return nil
}

func printReservation(r *model.Reservation) {
	fmt.Printf("%s  %s  [%s]\n", r.Code, r.Subject, r.Status)
	fmt.Printf("  Instructor: %s <%s>\n", r.Instructor, r.InstructorEmail)
	fmt.Printf("  Course:     %s\n", r.Course)
	fmt.Printf("  Room:       %s\n", r.Room)
	fmt.Printf("  Schedule:   %s %s-%s\n", r.Schedule, r.StartTime, r.EndTime)
	fmt.Printf("  Groups:     %d\n", r.GroupCount)
	if len(r.RequestedItems) > 0 {
		fmt.Println("  Requested:")
		for i, it := range r.RequestedItems {
			fmt.Printf("    %d. %s x%d per group (%d total, %s)\n",
				i+1, it.ItemName, it.Quantity, reservation.TotalFor(it, r.GroupCount), it.ItemType)
		}
	}
	if len(r.AssignedItems) > 0 {
		fmt.Printf("  Assigned by %s:\n", r.AssignedBy)
		for _, a := range r.AssignedItems {
			fmt.Printf("    line %d: %s (#%s) x%d\n", a.RequestedItemIndex+1, a.ItemName, a.ItemID, a.Quantity)
		}
	}
	switch r.Status {
	case model.StatusApproved, model.StatusAssigned:
		if r.ApprovedBy != "" {
			fmt.Printf("  Approved by %s\n", r.ApprovedBy)
		}
	case model.StatusRejected:
		fmt.Printf("  Rejected by %s: %s\n", nonEmpty(r.RejectedName, r.RejectedBy), r.RejectReason)
	}
	if n := len(r.Messages); n > 0 {
		fmt.Printf("  Messages:   %d (%s unseen)\n", n, unseenFor(*r))
	}
}

func unseenFor(r model.Reservation) string {
	n := chat.UnseenCount(&r, me.Sender())
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func nonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
