package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/lab-equipment-reservation/internal/client"
	"github.com/iliyamo/lab-equipment-reservation/internal/config"
	"github.com/iliyamo/lab-equipment-reservation/internal/logger"
	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// Set with -ldflags "-X main.GitHash=... -X main.BuildTime=...".
var (
	GitHash   = "unknown"
	BuildTime = "unknown"
)

var RootCmd = &cobra.Command{
	Use:   "elamsctl",
	Short: "Work with laboratory equipment reservations",
	Long: `Work with laboratory equipment reservations from a shell

environment:
    RESERVATION_API_URL  base URL of the reservation API
    SHEET_API_URL        URL of the spreadsheet endpoint
    ELAMS_EMAIL          email used as your identity
    ELAMS_NAME           display name used on messages and decisions
    ELAMS_ROLE           FACULTY, STAFF or ADMIN
`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfg = config.LoadClient()

	apiURL   string
	sheetURL string
	timeout  time.Duration
	me       model.Identity

	log    *zap.Logger
	api    *client.ReservationClient
	sheets *client.SheetClient
)

func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	var err error
	log, err = logger.New("dev", cfg.LogLevel)
	if err != nil {
		return err
	}
	if apiURL == "" {
		return fmt.Errorf("reservation API URL not set")
	}
	api, err = client.NewReservationClient(apiURL, timeout, log)
	if err != nil {
		return fmt.Errorf("reservation API URL invalid: %w", err)
	}
	if sheetURL != "" {
		sheets, err = client.NewSheetClient(sheetURL, timeout, log)
		if err != nil {
			return fmt.Errorf("sheet URL invalid: %w", err)
		}
	}
	me.Role = model.NormalizeRole(me.Role)
	return nil
}

// requireSheets fails commands that need the spreadsheet endpoint when it
// is not configured.
func requireSheets() error {
	if sheets == nil {
		return fmt.Errorf("sheet URL not set (use --sheet or SHEET_API_URL)")
	}
	return nil
}

func main() {
	pf := RootCmd.PersistentFlags()
	pf.StringVar(&apiURL, "api", cfg.ReservationAPIURL, "reservation API base URL")
	pf.StringVar(&sheetURL, "sheet", cfg.SheetAPIURL, "spreadsheet endpoint URL")
	pf.DurationVar(&timeout, "timeout", cfg.HTTPTimeout, "timeout for each remote call")
	pf.StringVar(&me.Email, "email", os.Getenv("ELAMS_EMAIL"), "your email")
	pf.StringVar(&me.Name, "name", os.Getenv("ELAMS_NAME"), "your display name")
	pf.StringVar(&me.Role, "role", envOr("ELAMS_ROLE", model.RoleFaculty), "your role")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Display git hash and build data",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Git Commit Hash: %s\n", GitHash)
			fmt.Printf("Build Time:      %s\n", BuildTime)
		},
	}
	RootCmd.AddCommand(versionCmd)

	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
