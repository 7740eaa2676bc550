package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/client/channel"
	"woori-codeshare/internal/client/snapshots"
	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/langdetect"
)

// Mode 是客户端本地的编辑模式
type Mode string

const (
	ModeLive         Mode = "LIVE"
	ModeSnapshotView Mode = "SNAPSHOT_VIEW"
)

var (
	// ErrReadOnly 快照浏览模式下不接受编辑
	ErrReadOnly = errors.New("editor is read-only while viewing a snapshot")
	// ErrSnapshotNotFound 选择的版本不存在
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrClosed 会话已关闭
	ErrClosed = errors.New("session closed")
)

// View 是当前渲染在编辑器上的内容
type View struct {
	Mode     Mode
	Code     string
	Language string
	ReadOnly bool
	Version  *int   // nil 表示实时会话
	Snapshot string // 快照浏览时为快照标题
}

// Config 会话依赖
type Config struct {
	RoomID    string
	Channel   *channel.CodeChannel
	Snapshots *snapshots.Store
	// InitialCode 在会话开始时加载 CodeState，可以为 nil
	InitialCode func(ctx context.Context) (domain.CodeState, error)
}

// Session 管理一个客户端在房间内的 LIVE / SNAPSHOT_VIEW 状态。
// CodeState 只会被本地编辑和通道事件修改，浏览快照不会覆盖它。
type Session struct {
	roomID    string
	channel   *channel.CodeChannel
	snapshots *snapshots.Store
	initial   func(ctx context.Context) (domain.CodeState, error)
	log       *logrus.Entry

	// opMu 串行化 Edit、SelectVersion 和 Close，发布时模式不会被切换
	opMu sync.Mutex

	mu        sync.Mutex
	code      string
	language  string
	mode      Mode
	version   *int
	viewed    domain.Snapshot
	sub       *channel.Subscription
	closed    bool
	listeners []func(View)
}

func New(cfg Config) *Session {
	return &Session{
		roomID:    cfg.RoomID,
		channel:   cfg.Channel,
		snapshots: cfg.Snapshots,
		initial:   cfg.InitialCode,
		language:  domain.DefaultLanguage,
		mode:      ModeLive,
		log:       logrus.WithFields(logrus.Fields{"component": "session", "room_id": cfg.RoomID}),
	}
}

// OnRender 注册渲染回调，每次显示内容变化后调用
func (s *Session) OnRender(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Start 加载初始 CodeState 并接入实时通道
func (s *Session) Start(ctx context.Context) error {
	if s.initial != nil {
		state, err := s.initial(ctx)
		if err != nil {
			s.log.WithError(err).Warn("Failed to load initial code state")
			return err
		}
		s.mu.Lock()
		s.code = state.Code
		s.language = state.Language
		if s.language == "" {
			s.language = langdetect.Detect(s.code)
		}
		s.mu.Unlock()
	}

	if err := s.attach(); err != nil {
		return err
	}
	s.render()
	return nil
}

func (s *Session) attach() error {
	sub, err := s.channel.Attach(s.roomID, s.onRemote)
	if err != nil {
		s.log.WithError(err).Warn("Failed to attach to code channel")
		return err
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return nil
}

func (s *Session) detach() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	s.channel.Detach(sub)
}

// onRemote 处理其他参与者的编辑：最后到达的事件胜出
func (s *Session) onRemote(code string) {
	s.mu.Lock()
	if s.closed || s.mode != ModeLive {
		s.mu.Unlock()
		return
	}
	// 与本地状态相同的事件直接忽略
	if code == s.code {
		s.mu.Unlock()
		return
	}
	s.code = code
	s.language = langdetect.Detect(code)
	s.mu.Unlock()
	s.render()
}

// Edit 本地编辑，整篇替换 CodeState 并发布到通道
func (s *Session) Edit(code string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.mode != ModeLive {
		s.mu.Unlock()
		return ErrReadOnly
	}
	if code == s.code {
		s.mu.Unlock()
		return nil
	}
	s.code = code
	s.language = langdetect.Detect(code)
	s.mu.Unlock()

	s.channel.Publish(s.roomID, code)
	s.render()
	return nil
}

// SelectVersion 切换显示的版本。nil 回到实时会话并重新接入通道；
// 否则脱离通道并只读显示第 idx 个快照。版本不存在时状态不变。
func (s *Session) SelectVersion(idx *int) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	wasLive := s.mode == ModeLive
	s.mu.Unlock()

	if idx == nil {
		if wasLive {
			return nil
		}
		s.mu.Lock()
		s.mode = ModeLive
		s.version = nil
		s.viewed = domain.Snapshot{}
		s.mu.Unlock()
		// 接入失败时仍处于 LIVE，之后的发布会被静默丢弃
		err := s.attach()
		s.render()
		return err
	}

	snap, ok := s.snapshots.At(*idx)
	if !ok {
		return ErrSnapshotNotFound
	}
	if wasLive {
		s.detach()
	}
	v := *idx
	s.mu.Lock()
	s.mode = ModeSnapshotView
	s.version = &v
	s.viewed = snap
	s.mu.Unlock()
	s.render()
	return nil
}

// CreateSnapshot 以当前 CodeState 创建快照，与正在显示的内容无关
func (s *Session) CreateSnapshot(ctx context.Context, title, description string) (domain.Snapshot, error) {
	return s.snapshots.Create(ctx, s.Code(), title, description)
}

// Code 返回 CodeState 的当前内容
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// View 返回当前显示的内容
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	if s.mode == ModeSnapshotView {
		v := *s.version
		return View{
			Mode:     ModeSnapshotView,
			Code:     s.viewed.Code,
			Language: langdetect.Detect(s.viewed.Code),
			ReadOnly: true,
			Version:  &v,
			Snapshot: s.viewed.Title,
		}
	}
	return View{Mode: ModeLive, Code: s.code, Language: s.language}
}

func (s *Session) render() {
	s.mu.Lock()
	view := s.viewLocked()
	listeners := append([]func(View){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(view)
	}
}

// Close 脱离通道，之后的编辑返回 ErrClosed
func (s *Session) Close() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.detach()
}
