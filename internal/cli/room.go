package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"woori-codeshare/internal/client/kv"
)

var (
	roomTitle    string
	roomPassword string
)

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Create or enter rooms",
}

var roomCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a room and enter it",
	Args:  cobra.NoArgs,
	RunE:  runRoomCreate,
}

var roomEnterCmd = &cobra.Command{
	Use:   "enter <roomId>",
	Short: "Pass the room password gate and remember the room pass",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoomEnter,
}

func init() {
	roomCreateCmd.Flags().StringVar(&roomTitle, "title", "", "room title")
	roomCreateCmd.Flags().StringVar(&roomPassword, "password", "", "room password")
	_ = roomCreateCmd.MarkFlagRequired("title")
	_ = roomCreateCmd.MarkFlagRequired("password")

	roomEnterCmd.Flags().StringVar(&roomPassword, "password", "", "room password")
	_ = roomEnterCmd.MarkFlagRequired("password")

	roomCmd.AddCommand(roomCreateCmd, roomEnterCmd)
	rootCmd.AddCommand(roomCmd)
}

func runRoomCreate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()
	ctx := cmd.Context()

	roomID, err := e.api.CreateRoom(ctx, roomTitle, roomPassword)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	if err := e.store.Set(ctx, kv.CreatorKey(roomID), "true"); err != nil {
		return err
	}
	// 创建者直接进入房间
	if err := enterRoom(cmd, e, roomID, roomPassword); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Room created: %s\n", roomID)
	return nil
}

func runRoomEnter(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()
	if err := enterRoom(cmd, e, args[0], roomPassword); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Entered room %s\n", args[0])
	return nil
}

func enterRoom(cmd *cobra.Command, e *env, roomID, password string) error {
	ctx := cmd.Context()
	resp, err := e.api.EnterRoom(ctx, roomID, password)
	if err != nil {
		return fmt.Errorf("enter room: %w", err)
	}
	if err := e.store.Set(ctx, kv.AuthKey(roomID), resp.Token); err != nil {
		return fmt.Errorf("save room pass: %w", err)
	}
	if resp.Title != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Title: %s\n", resp.Title)
	}
	return nil
}
