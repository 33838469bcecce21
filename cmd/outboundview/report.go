package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesm/outboundview/internal/dashboard"
	"github.com/wesm/outboundview/internal/render"
)

func newReportCmd() *cobra.Command {
	var (
		q      dashboard.Query
		format string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard for a filter to the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}

			e, err := setupEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			v, err := newService(e, nil).Build(cmd.Context(), q)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			return render.Text(out, v, render.DefaultStyles())
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.From, "from", "", "Start date YYYY-MM-DD (default: the 30 days ending at --to)")
	f.StringVar(&q.To, "to", "", "End date YYYY-MM-DD (default today)")
	f.StringVar(&q.Account, "account", dashboard.AllValue, "Account filter")
	f.StringVar(&q.Origin, "origin", dashboard.AllValue, "Origin filter")
	f.StringVar(&q.Funnel, "funnel", dashboard.AllValue, "Funnel filter")
	f.StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}
