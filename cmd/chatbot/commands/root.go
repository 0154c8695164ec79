// Package commands implements the chatbot command line.
package commands

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"cattle-chatbot/internal/app"
	"cattle-chatbot/internal/chatbot"
	"cattle-chatbot/internal/chatbot/querybuilder"
	"cattle-chatbot/internal/common/config"
	"cattle-chatbot/internal/common/database"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/models"
)

type rootOptions struct {
	configPath string
	verbose    int
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "chatbot",
		Short: "Ask questions about the herd's sensor readings",
		Long: `chatbot answers plain-language questions about cattle sensor data.

Examples:
  chatbot ask "What's the temperature of cow_101?"
  chatbot ask "Is cow-102 healthy?" --window yesterday
  chatbot explain "Where is cow 7?"
  chatbot cows
  chatbot chat
  chatbot registry validate configs/activity-registry.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (defaults to configs/config.yaml)")
	root.PersistentFlags().CountVarP(&opts.verbose, "verbose", "v", "Increase log output (-v info, -vv debug)")

	root.AddCommand(
		newAskCmd(opts),
		newExplainCmd(opts),
		newCowsCmd(opts),
		newChatCmd(opts),
		newRegistryCmd(),
	)
	return root
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return cfg, nil
}

// logger stays quiet unless asked; answers go to stdout.
func (o *rootOptions) logger() logger.Logger {
	level := "warn"
	switch {
	case o.verbose >= 2:
		level = "debug"
	case o.verbose == 1:
		level = "info"
	}
	return logger.NewStructured(level, "console", "stderr")
}

func (o *rootOptions) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, o.logger(), app.Options{ConnectAttempts: 1})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s data store", cfg.Database.Driver)
	}
	return a, nil
}

// offlineChatbot can extract and build but has no store behind it.
func (o *rootOptions) offlineChatbot() (*chatbot.Chatbot, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	dialect, err := querybuilder.DialectFor(database.NormalizeDriver(cfg.Database.Driver))
	if err != nil {
		return nil, errors.Wrap(err, "unsupported database driver")
	}
	schema := querybuilder.Schema{
		ReadingsTable: cfg.Database.Schema.ReadingsTable,
		EntitiesTable: cfg.Database.Schema.EntitiesTable,
	}
	return chatbot.New(chatbot.Config{}, querybuilder.NewBuilder(dialect, schema), nil, o.logger()), nil
}

func checkWindow(window string) error {
	if window == "" {
		return nil
	}
	if _, ok := models.ParseTimeWindow(window); !ok {
		return errors.Newf("unknown time window %q (use current, today, yesterday, last_hour or last_week)", window)
	}
	return nil
}
