package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/lakegate/pkg/storage"
)

var realmsCmd = &cobra.Command{
	Use:   "realms",
	Short: "Manage registered realms",
}

var realmsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered realms",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := newStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		realms, err := store.ListRealms(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range realms {
			fmt.Fprintln(cmd.OutOrStdout(), r)
		}
		return nil
	},
}

var realmsAddCmd = &cobra.Command{
	Use:   "add <realm>",
	Short: "Register a realm",
	Long: `Register a realm in the configured storage. With the memory store the
registration only lasts for this invocation; use realm.known instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := storage.ValidateRealmID(args[0]); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := newStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EnsureRealm(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "realm %s registered\n", args[0])
		return nil
	},
}

func init() {
	realmsCmd.AddCommand(realmsListCmd, realmsAddCmd)
	rootCmd.AddCommand(realmsCmd)
}
