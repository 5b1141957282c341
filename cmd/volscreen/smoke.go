package main

import (
	"fmt"

	"github.com/newthinker/volscreen/internal/notifier"
	"github.com/newthinker/volscreen/internal/notifier/telegram"
	"github.com/spf13/cobra"
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Send a test message to check the Telegram credentials",
	RunE:  runSmoke,
}

func init() {
	rootCmd.AddCommand(smokeCmd)
}

func runSmoke(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.ValidateTelegram(); err != nil {
		return err
	}

	tg := newTelegram(cfg, telegram.WithParseMode(""))
	d, sendErr := tg.Send(cmd.Context(), notifier.SmokeMessage)

	out := cmd.OutOrStdout()
	if d.StatusCode != 0 {
		fmt.Fprintln(out, "status:", d.StatusCode)
		fmt.Fprintln(out, d.Body)
	}
	if sendErr != nil {
		return fmt.Errorf("send failed, check bot token, chat id and whether the bot is blocked: %w", sendErr)
	}
	return nil
}
