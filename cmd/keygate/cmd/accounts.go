package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Offline account store tools",
	Long:  `Commands for inspecting the account store directly, without going through the server.`,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts in the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		accounts, err := repo.Accounts()
		if err != nil {
			return fmt.Errorf("listing accounts: %w", err)
		}

		credentials := make([]string, 0, len(accounts))
		for cred := range accounts {
			credentials = append(credentials, cred)
		}
		sort.Strings(credentials)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CREDENTIAL\tROLE\tEXPIRY DAYS\tACTIVE\tLAST LOGIN")
		for _, cred := range credentials {
			acct := accounts[cred]
			lastLogin := "never"
			if acct.LastLogin > 0 {
				lastLogin = time.UnixMilli(acct.LastLogin).UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n", cred, acct.Role, acct.ExpiryDays, acct.Active, lastLogin)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)

	accountsCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	accountsCmd.PersistentFlags().StringVar(&backend, "storage", "bbolt", "Storage backend: bbolt, file, postgres or memory")
	accountsCmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL DSN (with --storage postgres)")
}
