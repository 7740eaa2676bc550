package cli

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"woori-codeshare/internal/client/votes"
	"woori-codeshare/internal/domain"
)

var voteWatch bool

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Understanding votes on a snapshot",
}

var voteCastCmd = &cobra.Command{
	Use:       "cast <roomId> <snapshotId> <POSITIVE|NEUTRAL|NEGATIVE>",
	Short:     "Cast your vote, once per snapshot",
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{string(domain.VotePositive), string(domain.VoteNeutral), string(domain.VoteNegative)},
	RunE:      runVoteCast,
}

var voteResultsCmd = &cobra.Command{
	Use:   "results <roomId> <snapshotId>",
	Short: "Show vote percentages",
	Args:  cobra.ExactArgs(2),
	RunE:  runVoteResults,
}

func init() {
	voteResultsCmd.Flags().BoolVarP(&voteWatch, "watch", "w", false, "keep polling until interrupted")

	voteCmd.AddCommand(voteCastCmd, voteResultsCmd)
	rootCmd.AddCommand(voteCmd)
}

func openAggregator(cmd *cobra.Command, roomID string) (*env, *votes.Aggregator, error) {
	e, err := openEnv()
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if err := e.authorize(ctx, roomID); err != nil {
		e.close()
		return nil, nil, err
	}
	voterID, err := e.voterID(ctx)
	if err != nil {
		e.close()
		return nil, nil, err
	}
	agg := votes.NewAggregator(e.api, e.store, roomID, voterID, viper.GetDuration("votes.poll_interval"))
	return e, agg, nil
}

func runVoteCast(cmd *cobra.Command, args []string) error {
	e, agg, err := openAggregator(cmd, args[0])
	if err != nil {
		return err
	}
	defer e.close()

	if err := agg.Cast(cmd.Context(), args[1], args[2]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Vote recorded.")
	counts, err := agg.Results(cmd.Context(), args[1])
	if err != nil {
		return nil
	}
	printResults(cmd.OutOrStdout(), counts)
	return nil
}

func runVoteResults(cmd *cobra.Command, args []string) error {
	e, agg, err := openAggregator(cmd, args[0])
	if err != nil {
		return err
	}
	defer e.close()
	snapshotID := args[1]
	out := cmd.OutOrStdout()

	if !voteWatch {
		counts, err := agg.Results(cmd.Context(), snapshotID)
		if err != nil {
			return fmt.Errorf("vote results: %w", err)
		}
		if v, ok, _ := agg.VotedFor(cmd.Context(), snapshotID); ok {
			fmt.Fprintf(out, "You voted %s\n", v)
		}
		printResults(out, counts)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	agg.Watch(ctx, snapshotID, func(c domain.VoteCounts) { printResults(out, c) })
	<-ctx.Done()
	agg.Stop()
	return nil
}

func printResults(w io.Writer, c domain.VoteCounts) {
	fmt.Fprintf(w, "total %d:", c.Total())
	for _, t := range domain.VoteTypes {
		fmt.Fprintf(w, " %s %d%% (%d)", t, c.Percentage(t), c[t])
	}
	fmt.Fprintln(w)
}
