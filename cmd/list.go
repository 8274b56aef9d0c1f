package cmd

import (
	"fmt"

	"github.com/KaramelBytes/biasloom-cli/internal/audit"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [audit-name]",
	Short: "List audits, or the runs recorded in one audit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			a, err := loadAuditByName(args[0])
			if err != nil {
				return err
			}
			fmt.Print(a.Report())
			return nil
		}
		root, err := defaultAuditsDir()
		if err != nil {
			return err
		}
		names, err := audit.List(root)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("(no audits)")
			return nil
		}
		for _, name := range names {
			a, err := loadAuditByName(name)
			if err != nil {
				fmt.Printf("- %s (unreadable: %v)\n", name, err)
				continue
			}
			fmt.Printf("- %s: %d run(s)", name, len(a.Runs))
			if a.Description != "" {
				fmt.Printf(" (%s)", a.Description)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
