package commands

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"cattle-chatbot/internal/models"
)

func newCowsCmd(opts *rootOptions) *cobra.Command {
	var (
		refresh bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "cows",
		Short: "List the cows the data store knows about",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var cows []models.Entity
			if refresh {
				cows, err = a.Store.RefreshCatalog(cmd.Context())
			} else {
				cows, err = a.Chatbot.Catalog(cmd.Context())
			}
			if err != nil {
				return errors.Wrap(err, "failed to list cows")
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(cows)
			}
			if len(cows) == 0 {
				pterm.Warning.Println("No cows registered")
				return nil
			}

			data := pterm.TableData{{"ID", "Name"}}
			for _, c := range cows {
				data = append(data, []string{c.ID, c.DisplayName})
			}
			return pterm.DefaultTable.WithWriter(out).WithHasHeader().WithData(data).Render()
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the catalog cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}
