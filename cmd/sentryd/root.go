// Command sentryd is the tiered spam-classification and email-disposition
// engine's CLI: it starts the batch scheduler and HTTP control surface
// (serve), drives ad hoc account runs (preview, process), inspects session
// history, manages manual overrides (flag, unflag), and drives the
// feedback/retrain/promote loop (spec.md §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentryd/sentryd/internal/buildinfo"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "sentryd",
	Short: "Tiered spam classification and email disposition engine",
	Long: `sentryd classifies incoming mail across a three-tier pipeline
(instant rules plus a trainable ensemble, a geographic signal, and a
strategic weighted scorer) and disposes of it (delete or preserve)
according to each account's configured policy and any manual overrides.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (searches standard locations if unset)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(flagCmd)
	rootCmd.AddCommand(unflagCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(retrainCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(buildinfo.String())
		for k, v := range buildinfo.BuildInfo() {
			fmt.Printf("  %-12s %s\n", k+":", v)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
