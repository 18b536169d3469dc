package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// execute runs the command line and releases the app's resources whatever
// the outcome. cobra skips post-run hooks when RunE fails.
func execute(ctx context.Context, a *app, args []string) error {
	defer a.close()
	root := newRootCmd(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "golfctl",
		Short:         "Golf society league standings and society to club migration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
	}
	root.AddCommand(newMigrateCmd(a), newVerifyCmd(a), newStandingsCmd(a))
	return root
}

func newMigrateCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Convert legacy societies into clubs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			run := a.migrator.Up
			if dryRun {
				run = a.migrator.DryRun
			}
			result, err := run(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the migration in a transaction that is always rolled back")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Report club, membership and participant counts after migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			version, err := a.migrator.Version(ctx)
			if err != nil {
				return err
			}
			report, err := a.reports.MigrationReport(ctx)
			if err != nil {
				return err
			}
			out := struct {
				SchemaVersion int64 `json:"schema_version"`
				Consistent    bool  `json:"consistent"`
				Report        any   `json:"report"`
			}{SchemaVersion: version, Consistent: report.Consistent(), Report: report}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !out.Consistent {
				return errors.New("migration report is not consistent")
			}
			return nil
		},
	}
}

type standingsOptions struct {
	leagueID     int
	userID       int
	tournamentID int
}

func newStandingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Compute and inspect league standings",
	}

	var opts standingsOptions
	cmd.PersistentFlags().IntVar(&opts.leagueID, "league", 0, "League ID (required)")
	_ = cmd.MarkPersistentFlagRequired("league")

	calculate := &cobra.Command{
		Use:   "calculate",
		Short: "Recompute member points from every completed tournament",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			standings, err := a.standings.CalculateLeagueStandings(cmd.Context(), opts.leagueID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), standings)
		},
	}

	recalculate := &cobra.Command{
		Use:   "recalculate",
		Short: "Reset every member of the league and rebuild the standings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			standings, err := a.standings.RecalculateLeagueStandings(cmd.Context(), opts.leagueID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), standings)
		},
	}

	update := &cobra.Command{
		Use:   "update",
		Short: "Credit one completed tournament to a member",
		Long:  "Credit one completed tournament to a member. Run it at most once per member and tournament, a repeated run counts the tournament twice.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.userID <= 0 || opts.tournamentID <= 0 {
				return fmt.Errorf("--user and --tournament must be positive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.standings.UpdateMemberPoints(cmd.Context(), opts.leagueID, opts.userID, opts.tournamentID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	update.Flags().IntVar(&opts.userID, "user", 0, "User ID (required)")
	update.Flags().IntVar(&opts.tournamentID, "tournament", 0, "Tournament ID (required)")
	_ = update.MarkFlagRequired("user")
	_ = update.MarkFlagRequired("tournament")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored league table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := a.standings.LeagueTable(cmd.Context(), opts.leagueID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), members)
		},
	}

	cmd.AddCommand(calculate, recalculate, update, show)
	return cmd
}
