package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"woori-codeshare/internal/client/snapshots"
)

var (
	snapshotTitle       string
	snapshotDescription string
	snapshotCode        string
	snapshotFile        string
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Aliases: []string{"snap"},
	Short:   "List and create room snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list <roomId>",
	Short: "List snapshots, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotList,
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <roomId>",
	Short: "Capture code into a new snapshot",
	Long: `Capture code into a new snapshot. The code comes from --code or --file;
when neither is given the room's current live code is captured.`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshotCreate,
}

func init() {
	snapshotCreateCmd.Flags().StringVar(&snapshotTitle, "title", "", "snapshot title (default \"Snapshot <n>\")")
	snapshotCreateCmd.Flags().StringVar(&snapshotDescription, "description", "", "snapshot description")
	snapshotCreateCmd.Flags().StringVar(&snapshotCode, "code", "", "code to capture")
	snapshotCreateCmd.Flags().StringVar(&snapshotFile, "file", "", "read code to capture from a file")
	snapshotCreateCmd.MarkFlagsMutuallyExclusive("code", "file")

	snapshotCmd.AddCommand(snapshotListCmd, snapshotCreateCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	roomID := args[0]
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()
	ctx := cmd.Context()
	if err := e.authorize(ctx, roomID); err != nil {
		return err
	}

	store := snapshots.NewStore(e.api, roomID)
	if err := store.Refresh(ctx); err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if store.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tID\tTITLE\tCREATED")
	for i, s := range store.List() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, s.ID, s.Title, s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runSnapshotCreate(cmd *cobra.Command, args []string) error {
	roomID := args[0]
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()
	ctx := cmd.Context()
	if err := e.authorize(ctx, roomID); err != nil {
		return err
	}

	code := snapshotCode
	if snapshotFile != "" {
		raw, err := os.ReadFile(snapshotFile)
		if err != nil {
			return fmt.Errorf("read code file: %w", err)
		}
		code = string(raw)
	}
	if code == "" {
		state, err := e.api.CurrentCode(ctx, roomID)
		if err != nil {
			return fmt.Errorf("load live code: %w", err)
		}
		code = state.Code
	}

	store := snapshots.NewStore(e.api, roomID)
	if err := store.Refresh(ctx); err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	snap, err := store.Create(ctx, code, snapshotTitle, snapshotDescription)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Snapshot created: %s (%s)\n", snap.Title, snap.ID)
	return nil
}
