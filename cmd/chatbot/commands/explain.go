package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newExplainCmd(opts *rootOptions) *cobra.Command {
	var (
		window string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "explain <question>",
		Short: "Show the intent and SQL a question compiles to, without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkWindow(window); err != nil {
				return err
			}
			bot, err := opts.offlineChatbot()
			if err != nil {
				return err
			}

			exp := bot.Explain(strings.Join(args, " "), window)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(exp)
			}

			entity := exp.Intent.Entity()
			if entity == "" {
				entity = "(whole herd)"
			}
			err = pterm.DefaultTable.WithWriter(out).WithHasHeader().WithData(pterm.TableData{
				{"Cow", "Metric", "Window", "Dialect"},
				{entity, string(exp.Intent.Metric), string(exp.Intent.TimeWindow), exp.Dialect},
			}).Render()
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, exp.Statement)
			for i, arg := range exp.Args {
				fmt.Fprintf(out, "  arg %d: %v\n", i+1, arg)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", "", "Override the time window")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the explanation as JSON")
	return cmd
}
