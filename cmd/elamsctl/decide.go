package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/lab-equipment-reservation/internal/reservation"
)

var rejectReason string

func init() {
	approveCmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending reservation",
		Args:  cobra.ExactArgs(1),
		RunE:  approve,
	}

	rejectCmd := &cobra.Command{
		Use:   "reject <id> [--reason <text>]",
		Short: "Reject a pending or approved reservation",
		Long: `Reject a pending or approved reservation

The optional reason is shown to the instructor.
`,
		Args: cobra.ExactArgs(1),
		RunE: reject,
	}
	rejectCmd.Flags().StringVarP(&rejectReason, "reason", "r", "", "Reason shown to the instructor")

	RootCmd.AddCommand(approveCmd, rejectCmd)
}

// staffWorkflow checks the local identity and returns a workflow without
// an event publisher; events are emitted by the server only.
func staffWorkflow() (*reservation.Workflow, error) {
	if !me.IsStaff() {
		return nil, errors.New("only STAFF or ADMIN may decide on reservations (see --role)")
	}
	if me.Email == "" {
		return nil, errors.New("email not set (use --email or ELAMS_EMAIL)")
	}
	return reservation.NewWorkflow(api, nil, log), nil
}

func approve(cmd *cobra.Command, args []string) error {
	wf, err := staffWorkflow()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*timeout)
	defer cancel()

	r, err := fetch(ctx, args[0])
	if err != nil {
		return err
	}
	r, err = wf.Approve(ctx, r, me)
	if err != nil {
		return err
	}
	fmt.Printf("%s approved by %s\n", r.Code, me.Email)
	return nil
}

func reject(cmd *cobra.Command, args []string) error {
	wf, err := staffWorkflow()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*timeout)
	defer cancel()

	r, err := fetch(ctx, args[0])
	if err != nil {
		return err
	}
	r, err = wf.Reject(ctx, r, rejectReason, me)
	if err != nil {
		return err
	}
	if reason := strings.TrimSpace(r.RejectReason); reason != "" {
		fmt.Printf("%s rejected: %s\n", r.Code, reason)
		return nil
	}
	fmt.Printf("%s rejected\n", r.Code)
	return nil
}
