package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/iliyamo/lab-equipment-reservation/internal/chat"
	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

func init() {
	chatCmd := &cobra.Command{
		Use:   "chat <id>",
		Short: "Open the conversation thread of a reservation",
		Long: `Open the conversation thread of a reservation

The thread refreshes in the background.  Type a line and press enter to
send it; an empty line is ignored.  End with /quit or EOF.
`,
		Args: cobra.ExactArgs(1),
		RunE: chatDialog,
	}

	RootCmd.AddCommand(chatCmd)
}

func chatDialog(cmd *cobra.Command, args []string) error {
	if me.Email == "" && me.Name == "" {
		return errors.New("identity not set (use --email or ELAMS_EMAIL)")
	}
	ctx := cmd.Context()
	m := chat.NewMessenger(api, nil, log)

	openCtx, cancel := context.WithTimeout(ctx, 2*timeout)
	r, err := m.Open(openCtx, args[0], me)
	cancel()
	if err != nil {
		return err
	}
	fmt.Printf("-- %s %s [%s] --\n", r.Code, r.Subject, r.Status)

	var mu sync.Mutex
	printed := 0
	render := func(snap *model.Reservation) {
		mu.Lock()
		defer mu.Unlock()
		for ; printed < len(snap.Messages); printed++ {
			msg := snap.Messages[printed]
			fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Local().Format("Jan _2 15:04"), nonEmpty(msg.SenderName, msg.Sender), msg.Message)
		}
	}
	render(r)

	poller := chat.NewPoller(api, cfg.PollInterval, log)
	dlg := poller.Open(r.ID, r, render)
	defer poller.Stop()

	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		text := strings.TrimSpace(in.Text())
		if text == "/quit" {
			break
		}
		if text == "" {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		snap, err := m.Send(sendCtx, r.ID, me, text)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			continue
		}
		dlg.Merge(snap) // renders through the poller's callback
	}
	return in.Err()
}
