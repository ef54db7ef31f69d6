package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"glucolog/internal/db"
)

func (a *app) migrator(ctx context.Context) (*db.Migrator, func(), error) {
	conn, dialect, err := db.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(conn, dialect, db.ReadingsLedger(), a.log), func() { conn.Close() }, nil
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, revert or inspect schema revisions",
	}

	up := &cobra.Command{
		Use:   "up [revision]",
		Short: "Upgrade to revision (default: head)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, closeDB, err := a.migrator(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			target := "head"
			if len(args) == 1 {
				target = args[0]
			}
			if err := m.Upgrade(ctx, target); err != nil {
				return err
			}
			return printCurrent(cmd, m)
		},
	}

	down := &cobra.Command{
		Use:   "down [revision|base]",
		Short: "Downgrade to revision (default: one step back)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, closeDB, err := a.migrator(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			var target string
			if len(args) == 1 {
				target = args[0]
			} else {
				current, err := m.Current(ctx)
				if err != nil {
					return err
				}
				if current == db.Base {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to downgrade")
					return nil
				}
				if target, err = m.Ledger().Parent(current); err != nil {
					return err
				}
			}
			if err := m.Downgrade(ctx, target); err != nil {
				return err
			}
			return printCurrent(cmd, m)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "List revisions and mark the applied ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, closeDB, err := a.migrator(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			steps, err := m.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			applied := color.New(color.FgGreen).SprintFunc()
			pending := color.New(color.FgYellow).SprintFunc()
			for _, st := range steps {
				mark, state := " ", pending("pending")
				if st.Applied {
					state = applied("applied")
				}
				if st.Current {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-40s %s  %s\n", mark, st.Step.Revision, state, st.Step.Description)
			}
			return nil
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func printCurrent(cmd *cobra.Command, m *db.Migrator) error {
	current, err := m.Current(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "current revision: %s\n", current)
	return nil
}
