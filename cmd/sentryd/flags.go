package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sentryd/sentryd/internal/store"
)

var flagCmd = &cobra.Command{
	Use:   "flag <message-id>",
	Short: "Set a manual override flag on a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		accountName, _ := cmd.Flags().GetString("account")
		flagType, _ := cmd.Flags().GetString("type")
		reason, _ := cmd.Flags().GetString("reason")

		account, err := a.account(accountName)
		if err != nil {
			return err
		}
		accountID, err := a.store.UpsertAccount(account.Email, account.Name, account.Provider)
		if err != nil {
			return fmt.Errorf("resolve account: %w", err)
		}

		if err := a.overrides.Set(args[0], store.FlagType(flagType), reason, accountID); err != nil {
			return fmt.Errorf("set flag: %w", err)
		}
		fmt.Println("ok")
		return nil
	},
}

var unflagCmd = &cobra.Command{
	Use:   "unflag <message-id>",
	Short: "Clear a manual override flag on a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		flagType, _ := cmd.Flags().GetString("type")
		if err := a.overrides.Clear(args[0], store.FlagType(flagType)); err != nil {
			return fmt.Errorf("clear flag: %w", err)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	flagCmd.Flags().String("account", "", "account the message belongs to (required)")
	flagCmd.Flags().String("type", string(store.FlagProtect), "flag type: PROTECT, DELETE, or RESEARCH")
	flagCmd.Flags().String("reason", "", "human-readable reason recorded with the override")
	_ = flagCmd.MarkFlagRequired("account")

	unflagCmd.Flags().String("type", string(store.FlagProtect), "flag type to clear: PROTECT, DELETE, or RESEARCH")
}
