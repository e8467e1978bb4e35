package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentryd/sentryd/internal/store"
)

var previewCmd = &cobra.Command{
	Use:   "preview <account>",
	Short: "Classify an account's mailbox without deleting anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountCmd(store.ModePreview),
}

var processCmd = &cobra.Command{
	Use:   "process <account>",
	Short: "Classify and dispose of an account's mailbox",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountCmd(store.ModeProcess),
}

func runAccountCmd(mode store.SessionMode) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		account, err := a.account(args[0])
		if err != nil {
			return err
		}

		accountID, err := a.store.UpsertAccount(account.Email, account.Name, account.Provider)
		if err != nil {
			return fmt.Errorf("resolve account: %w", err)
		}

		client := a.dial(account)
		sess, err := a.controller.Run(context.Background(), client, accountID, account, a.cfg.Classifier, mode)
		if err != nil {
			return fmt.Errorf("run %s: %w", mode, err)
		}
		return printJSON(sess)
	}
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions <account>",
	Short: "List recent processing sessions for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		account, err := a.account(args[0])
		if err != nil {
			return err
		}
		accountID, err := a.store.UpsertAccount(account.Email, account.Name, account.Provider)
		if err != nil {
			return fmt.Errorf("resolve account: %w", err)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		sessions, err := a.store.ListSessions(accountID, limit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		return printJSON(sessions)
	},
}

func init() {
	sessionsCmd.Flags().Int("limit", 20, "maximum number of sessions to list")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
