package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"woori-codeshare/internal/client/channel"
	"woori-codeshare/internal/client/presence"
	"woori-codeshare/internal/client/session"
	"woori-codeshare/internal/client/snapshots"
	"woori-codeshare/internal/domain"
)

const joinHelp = `commands:
  /set <code>          replace the live code (\n for new lines)
  /version <n>         view snapshot n read-only (0 is the newest)
  /live                return to the live session
  /snapshot [title]    capture the live code as a snapshot
  /list                list snapshots
  /who                 show who is online
  /quit                leave the room`

var joinCmd = &cobra.Command{
	Use:   "join <roomId>",
	Short: "Join the live session of a room",
	Long: `Join the live session of a room. Code edits from other participants
are printed as they arrive; edits typed here are published to them.

` + joinHelp,
	Args: cobra.ExactArgs(1),
	RunE: runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
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

	user := userName()
	conn, err := channel.Dial(ctx, e.api.WebSocketURL(roomID, user), nil)
	if err != nil {
		return fmt.Errorf("connect to room: %w", err)
	}
	defer conn.Close()

	store := snapshots.NewStore(e.api, roomID)
	if err := store.Refresh(ctx); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to load snapshots")
	}
	r := newLiveRoom(roomID, conn, store, func(ctx context.Context) (domain.CodeState, error) {
		return e.api.CurrentCode(ctx, roomID)
	}, cmd.OutOrStdout())

	fmt.Fprintf(cmd.OutOrStdout(), "Joined %s as %s. Type /help for commands.\n", roomID, user)
	go func() {
		<-conn.Done()
		r.printf("! connection closed, edits are no longer shared\n")
	}()
	return r.run(ctx, cmd.InOrStdin())
}

// liveRoom 把会话、在线列表和快照列表接到一个行式终端上
type liveRoom struct {
	session   *session.Session
	presence  *presence.Tracker
	snapshots *snapshots.Store
	roomID    string

	mu  sync.Mutex
	out io.Writer
}

func newLiveRoom(roomID string, conn channel.Conn, store *snapshots.Store, initial func(context.Context) (domain.CodeState, error), out io.Writer) *liveRoom {
	r := &liveRoom{
		roomID:    roomID,
		snapshots: store,
		presence:  presence.NewTracker(conn),
		out:       out,
	}
	r.session = session.New(session.Config{
		RoomID:      roomID,
		Channel:     channel.NewCodeChannel(conn),
		Snapshots:   store,
		InitialCode: initial,
	})
	r.session.OnRender(r.render)
	r.presence.OnChange(func(p domain.Presence) {
		r.printf("* %d online: %s\n", p.UserCount, strings.Join(p.Users, ", "))
	})
	return r
}

// printf 回调来自通道的读协程，输出需要串行
func (r *liveRoom) printf(format string, a ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, a...)
}

func (r *liveRoom) render(v session.View) {
	if v.Mode == session.ModeSnapshotView {
		r.printf("--- version %d: %s (read-only, %s) ---\n%s\n", *v.Version, v.Snapshot, v.Language, v.Code)
		return
	}
	r.printf("--- live (%s) ---\n%s\n", v.Language, v.Code)
}

func (r *liveRoom) run(ctx context.Context, in io.Reader) error {
	if err := r.session.Start(ctx); err != nil {
		return err
	}
	defer r.session.Close()
	if err := r.presence.Join(r.roomID); err != nil {
		logrus.WithError(err).WithField("room_id", r.roomID).Warn("Failed to join presence")
	}
	defer r.presence.Leave()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := r.handle(ctx, line); quit {
			return nil
		}
	}
	return scanner.Err()
}

// handle 执行一行输入，返回是否退出
func (r *liveRoom) handle(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		r.printf("%s\n", joinHelp)
	case "/set":
		code := strings.ReplaceAll(arg, `\n`, "\n")
		if err := r.session.Edit(code); err != nil {
			if errors.Is(err, session.ErrReadOnly) {
				r.printf("! read-only while viewing a snapshot, use /live to edit\n")
				return false
			}
			r.printf("! %v\n", err)
		}
	case "/version":
		n, err := strconv.Atoi(arg)
		if err != nil {
			r.printf("! usage: /version <n>\n")
			return false
		}
		if err := r.session.SelectVersion(&n); err != nil {
			r.printf("! %v\n", err)
		}
	case "/live":
		if err := r.session.SelectVersion(nil); err != nil {
			r.printf("! %v\n", err)
		}
	case "/snapshot":
		snap, err := r.session.CreateSnapshot(ctx, arg, "")
		if err != nil {
			r.printf("! %v\n", err)
			return false
		}
		r.printf("Snapshot created: %s (%s)\n", snap.Title, snap.ID)
	case "/list":
		list := r.snapshots.List()
		if len(list) == 0 {
			r.printf("No snapshots yet.\n")
		}
		for i, s := range list {
			r.printf("%d  %s  %s\n", i, s.ID, s.Title)
		}
	case "/who":
		p := r.presence.Current()
		r.printf("* %d online: %s\n", p.UserCount, strings.Join(p.Users, ", "))
	default:
		r.printf("! unknown command %q, type /help\n", name)
	}
	return false
}
