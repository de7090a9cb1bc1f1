package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"resumeBuilder/internal/resume"
)

// Options 配置一个编辑会话。零值字段使用默认值。
type Options struct {
	HistoryLimit   int
	DebounceDelay  time.Duration
	RequestTimeout time.Duration
	Clock          Clock
	Logger         *slog.Logger
	Observer       Observer
}

// State 是暴露给界面层的只读视图。
type State struct {
	Document    Document
	CanUndo     bool
	CanRedo     bool
	PastDepth   int
	FutureDepth int
	Save        SyncState
}

// Session 是一次编辑会话：串行处理意图，本地立即生效，远端写在后台镜像。
type Session struct {
	api    RemoteAPI
	clock  Clock
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	resumeID uint
	store    *Store
	history  *Tracker
	debounce *Debouncer
	sync     *Coordinator

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// NewSession 创建编辑会话，调用 Load 或 Open 之后才有文档。
func NewSession(api RemoteAPI, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		api:     api,
		clock:   opts.Clock,
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
		store:   NewStore(),
		history: NewTracker(opts.HistoryLimit),
		subs:    make(map[int]func(State)),
	}
	s.debounce = NewDebouncer(opts.Clock, opts.DebounceDelay, s.exec)
	s.sync = NewCoordinator(ctx, api, CoordinatorOptions{
		Timeout:  opts.RequestTimeout,
		Clock:    opts.Clock,
		Logger:   opts.Logger,
		Observer: opts.Observer,
		OnChange: s.notify,
	})
	return s
}

// Load 从远端拉取简历与设计配置并开始编辑。
func (s *Session) Load(ctx context.Context, resumeID uint) error {
	r, err := s.api.FetchResume(ctx, resumeID)
	if err != nil {
		return fmt.Errorf("fetch resume: %w", err)
	}
	design, err := s.api.FetchDesign(ctx, resumeID)
	if err != nil {
		return fmt.Errorf("fetch design: %w", err)
	}
	s.Open(Document{Resume: r, Design: design})
	s.logger.Info("editor session loaded", "resume_id", resumeID, "sections", len(r.Sections))
	return nil
}

// Open 用给定文档开始编辑，历史被清空，该文档成为 baseline。
func (s *Session) Open(doc Document) {
	s.mu.Lock()
	s.debounce.Cancel()
	s.resumeID = doc.Resume.ID
	s.store.Apply(SetResume{Resume: doc.Resume})
	s.store.Apply(SetDesign{Design: doc.Design})
	s.history.Reset(Entry{Document: s.store.Document(), Timestamp: s.clock.Now()})
	s.mu.Unlock()
	s.notify()
}

// ResumeID 返回当前会话的简历 id。
func (s *Session) ResumeID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeID
}

// Dispatch 处理一个意图：先更新本地文档，再按需记录历史并派发远端写。
func (s *Session) Dispatch(in Intent) {
	s.mu.Lock()
	s.dispatchLocked(in)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) dispatchLocked(in Intent) {
	kind := in.Kind()
	if kind.Trackable() && !kind.Debounced() {
		// 保证历史顺序与变更顺序一致。
		s.debounce.FlushAll()
	}

	if s.store.Apply(in) && kind.Trackable() {
		s.record(kind)
	}
	if cmd, ok := commandFor(s.resumeID, in); ok {
		s.sync.Submit(cmd)
	}
}

func (s *Session) record(kind Kind) {
	at := s.clock.Now()
	if !kind.Debounced() {
		s.history.Record(Entry{Document: s.store.Document(), Timestamp: at})
		return
	}
	// 到期时读取当前文档：窗口内的其它跟踪变更都会先触发 Flush，
	// 能落在这里的只有 id 重映射这类非跟踪变更。
	s.debounce.Trigger(kind, func() {
		s.history.Record(Entry{Document: s.store.Document(), Timestamp: at})
	})
}

// CreateSection 先在远端创建区块，成功后以服务端返回的实体执行本地 AddSection。
// 未指定 position 时追加到末尾。
func (s *Session) CreateSection(ctx context.Context, in resume.NewSection) (resume.Section, error) {
	s.mu.Lock()
	resumeID := s.resumeID
	if in.Position == nil {
		pos := NextSectionPosition(s.store.doc.Resume)
		in.Position = &pos
	}
	s.mu.Unlock()

	var created resume.Section
	err := s.sync.Do(ctx, Command{Op: "create_section", Run: func(ctx context.Context, api RemoteAPI) error {
		var err error
		created, err = api.CreateSection(ctx, resumeID, in)
		return err
	}})
	if err != nil {
		return resume.Section{}, fmt.Errorf("create section: %w", err)
	}
	s.Dispatch(AddSection{Section: created})
	return created, nil
}

// CreateItem 先在远端创建条目，成功后以服务端返回的实体执行本地 AddItem。
func (s *Session) CreateItem(ctx context.Context, sectionID uint, in resume.NewItem) (resume.SectionItem, error) {
	s.mu.Lock()
	resumeID := s.resumeID
	if in.Position == nil {
		if sec, ok := s.store.Section(sectionID); ok {
			pos := NextItemPosition(sec)
			in.Position = &pos
		}
	}
	s.mu.Unlock()

	var created resume.SectionItem
	err := s.sync.Do(ctx, Command{Op: "create_item", Run: func(ctx context.Context, api RemoteAPI) error {
		var err error
		created, err = api.CreateItem(ctx, resumeID, sectionID, in)
		return err
	}})
	if err != nil {
		return resume.SectionItem{}, fmt.Errorf("create item: %w", err)
	}
	s.Dispatch(AddItem{SectionID: sectionID, Item: created})
	return created, nil
}

// MoveSection 处理区块拖拽，from/to 是可见区块视图中的下标。原地放下时不产生任何操作。
func (s *Session) MoveSection(from, to int) []resume.PositionPair {
	s.mu.Lock()
	pairs := MoveVisible(SectionOrder(s.store.doc.Resume), from, to)
	if len(pairs) > 0 {
		s.dispatchLocked(ReorderSections{Pairs: pairs})
	}
	s.mu.Unlock()

	if len(pairs) > 0 {
		s.notify()
	}
	return pairs
}

// MoveItem 处理条目拖拽。区块不存在或原地放下时不产生任何操作。
func (s *Session) MoveItem(sectionID uint, from, to int) []resume.PositionPair {
	s.mu.Lock()
	var pairs []resume.PositionPair
	if sec, ok := s.store.Section(sectionID); ok {
		pairs = Move(ItemIDs(sec), from, to)
	}
	if len(pairs) > 0 {
		s.dispatchLocked(ReorderItems{SectionID: sectionID, Pairs: pairs})
	}
	s.mu.Unlock()

	if len(pairs) > 0 {
		s.notify()
	}
	return pairs
}

// Undo 恢复到上一个快照，并把差异同步到远端。没有可撤销的历史时返回 false。
func (s *Session) Undo() bool {
	return s.travel("undo", s.history.Undo)
}

// Redo 恢复到下一个快照，并把差异同步到远端。没有可重做的历史时返回 false。
func (s *Session) Redo() bool {
	return s.travel("redo", s.history.Redo)
}

func (s *Session) travel(op string, step func() (Entry, bool)) bool {
	s.mu.Lock()
	s.debounce.FlushAll()
	entry, ok := step()
	if !ok {
		s.mu.Unlock()
		return false
	}

	prev := s.store.Document()
	s.store.Apply(SetResume{Resume: entry.Resume})
	s.store.Apply(SetDesign{Design: entry.Design})
	cmds := reconcile(s.resumeID, prev, entry.Document, s.remap)
	for _, cmd := range cmds {
		s.sync.Submit(cmd)
	}
	s.mu.Unlock()

	s.logger.Debug("editor history travel", "op", op, "resume_id", entry.Resume.ID, "remote_writes", len(cmds))
	s.notify()
	return true
}

// remap 在远端重建实体后回写服务端分配的 id，作用于当前文档与全部历史快照。
func (s *Session) remap(in Intent) {
	s.mu.Lock()
	s.store.Apply(in)
	s.history.Rewrite(func(doc *Document) { reduce(doc, in) })
	s.mu.Unlock()
	s.notify()
}

// HandleKey 执行快捷键对应的动作。
func (s *Session) HandleKey(ev KeyEvent) Action {
	action := Shortcut(ev)
	switch action {
	case ActionUndo:
		s.Undo()
	case ActionRedo:
		s.Redo()
	case ActionSave:
		s.Flush()
	}
	return action
}

// Flush 立即写入待合并的历史记录。
func (s *Session) Flush() {
	s.mu.Lock()
	s.debounce.FlushAll()
	s.mu.Unlock()
	s.notify()
}

// State 返回当前状态快照。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	past, future := s.history.Depth()
	return State{
		Document:    s.store.Document(),
		CanUndo:     s.history.CanUndo(),
		CanRedo:     s.history.CanRedo(),
		PastDepth:   past,
		FutureDepth: future,
		Save:        s.sync.State(),
	}
}

// History 返回 past 栈的拷贝，从旧到新。
func (s *Session) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Past()
}

// Subscribe 注册状态监听，返回取消函数。监听函数可能在任意 goroutine 中被调用。
func (s *Session) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) notify() {
	s.subMu.Lock()
	if len(s.subs) == 0 {
		s.subMu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	st := s.State()
	for _, fn := range fns {
		fn(st)
	}
}

// exec 在会话锁内执行防抖回调。
func (s *Session) exec(f func()) {
	s.mu.Lock()
	f()
	s.mu.Unlock()
	s.notify()
}

// Wait 阻塞直到所有已派发的远端写完成。
func (s *Session) Wait() {
	s.sync.Wait()
}

// Close 写入待合并的历史，等待远端写完成后释放资源。
func (s *Session) Close() {
	s.Flush()
	s.Wait()
	s.cancel()
}
