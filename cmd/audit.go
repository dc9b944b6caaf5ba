package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/geoscope-ai/geoscope/internal/poller"
)

func auditCMD() *cobra.Command {
	var serverURL string
	var token string
	var pages []string
	var interval time.Duration
	var noWait bool

	var audit = &cobra.Command{
		Use:   "audit [domain]",
		Short: "Start a multi-page audit against a running server and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := args[0]
			if len(pages) == 0 {
				pages = []string{"/"}
			}
			if token == "" {
				token = os.Getenv("GEOSCOPE_TOKEN")
			}

			client := poller.New(strings.TrimRight(serverURL, "/"), token, interval)
			ctx := cmd.Context()

			sessionID, err := client.Start(ctx, domain, pages)
			if err != nil {
				return err
			}
			fmt.Printf("session: %s\n", sessionID)
			if noWait {
				return nil
			}

			snap, err := client.Wait(ctx, sessionID)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if snap.Error != "" {
				return fmt.Errorf("audit failed: %s", snap.Error)
			}
			return nil
		},
	}
	audit.Flags().StringVar(&serverURL, "server", "http://localhost:10020", "geoscope server base URL")
	audit.Flags().StringVar(&token, "token", "", "bearer token (or GEOSCOPE_TOKEN)")
	audit.Flags().StringSliceVar(&pages, "page", nil, "page path to audit (repeatable, default /)")
	audit.Flags().DurationVar(&interval, "interval", 3*time.Second, "poll interval")
	audit.Flags().BoolVar(&noWait, "no-wait", false, "print the session ID and exit")

	return audit
}
