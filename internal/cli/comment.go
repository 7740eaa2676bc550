package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"woori-codeshare/internal/client/comments"
	"woori-codeshare/internal/domain"
)

var (
	commentParent   string
	commentUnsolved bool
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Question and answer threads on a snapshot",
}

var commentListCmd = &cobra.Command{
	Use:   "list <roomId> <snapshotId>",
	Short: "Show the threads of a snapshot",
	Args:  cobra.ExactArgs(2),
	RunE:  runCommentList,
}

var commentPostCmd = &cobra.Command{
	Use:   "post <roomId> <snapshotId> <content>",
	Short: "Ask a question, or reply to one with --parent",
	Args:  cobra.ExactArgs(3),
	RunE:  runCommentPost,
}

var commentEditCmd = &cobra.Command{
	Use:   "edit <roomId> <snapshotId> <commentId> <content>",
	Short: "Edit a question that has no replies yet",
	Args:  cobra.ExactArgs(4),
	RunE:  runCommentEdit,
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <roomId> <snapshotId> <commentId>",
	Short: "Delete a comment",
	Args:  cobra.ExactArgs(3),
	RunE:  runCommentDelete,
}

var commentResolveCmd = &cobra.Command{
	Use:   "resolve <roomId> <snapshotId> <commentId>",
	Short: "Mark a question as resolved (or --unsolved to reopen it)",
	Args:  cobra.ExactArgs(3),
	RunE:  runCommentResolve,
}

func init() {
	commentPostCmd.Flags().StringVar(&commentParent, "parent", "", "question id to reply to")
	commentResolveCmd.Flags().BoolVar(&commentUnsolved, "unsolved", false, "reopen the question")

	commentCmd.AddCommand(commentListCmd, commentPostCmd, commentEditCmd, commentDeleteCmd, commentResolveCmd)
	rootCmd.AddCommand(commentCmd)
}

// loadComments 打开环境并加载快照的评论
func loadComments(cmd *cobra.Command, roomID, snapshotID string) (*env, *comments.Store, error) {
	e, err := openEnv()
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if err := e.authorize(ctx, roomID); err != nil {
		e.close()
		return nil, nil, err
	}
	store := comments.NewStore(e.api, roomID)
	if err := store.Load(ctx, snapshotID); err != nil {
		e.close()
		return nil, nil, fmt.Errorf("load comments: %w", err)
	}
	return e, store, nil
}

func runCommentList(cmd *cobra.Command, args []string) error {
	e, store, err := loadComments(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer e.close()
	printThreads(cmd.OutOrStdout(), store.Threads())
	return nil
}

func printThreads(w io.Writer, threads []domain.Thread) {
	if len(threads) == 0 {
		fmt.Fprintln(w, "No questions yet.")
		return
	}
	for _, t := range threads {
		status := "open"
		if t.Solved {
			status = "resolved"
		}
		fmt.Fprintf(w, "[%s] %s (%s)\n", t.ID, t.Content, status)
		for _, r := range t.Replies {
			fmt.Fprintf(w, "    [%s] %s\n", r.ID, r.Content)
		}
	}
}

func runCommentPost(cmd *cobra.Command, args []string) error {
	e, store, err := loadComments(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer e.close()

	var parentID *string
	if commentParent != "" {
		parentID = &commentParent
	}
	c, msg, err := store.Post(cmd.Context(), args[2], parentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\n", msg, c.ID)
	return nil
}

func runCommentEdit(cmd *cobra.Command, args []string) error {
	e, store, err := loadComments(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := store.Edit(cmd.Context(), args[2], args[3]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Comment updated.")
	return nil
}

func runCommentDelete(cmd *cobra.Command, args []string) error {
	e, store, err := loadComments(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer e.close()

	if err := store.Delete(cmd.Context(), args[2]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Comment deleted.")
	return nil
}

func runCommentResolve(cmd *cobra.Command, args []string) error {
	e, store, err := loadComments(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer e.close()

	c, err := store.SetResolved(cmd.Context(), args[2], !commentUnsolved)
	if err != nil {
		return err
	}
	if c.Solved {
		fmt.Fprintln(cmd.OutOrStdout(), "Question resolved.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Question reopened.")
	}
	return nil
}
