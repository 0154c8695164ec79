package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"cattle-chatbot/internal/chatbot"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		window string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkWindow(window); err != nil {
				return err
			}
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ans := a.Chatbot.Answer(cmd.Context(), chatbot.Request{
				Question:   strings.Join(args, " "),
				TimeWindow: window,
			})
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ans)
			}

			fmt.Fprintln(cmd.OutOrStdout(), ans.Text)
			if opts.verbose > 0 {
				pterm.Info.Printfln("metric=%s window=%s rows=%d outcome=%s",
					ans.Intent.Metric, ans.Intent.TimeWindow, ans.RowCount, ans.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", "", "Override the time window")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full answer as JSON")
	return cmd
}
