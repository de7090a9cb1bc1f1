package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"resumeBuilder/internal/resume"
)

// SaveStatus 是面向界面的保存状态，不做持久化。
type SaveStatus string

const (
	StatusIdle   SaveStatus = "idle"
	StatusSaving SaveStatus = "saving"
	StatusSaved  SaveStatus = "saved"
	StatusError  SaveStatus = "error"
)

// RemoteAPI 是编辑器依赖的远端持久化接口。
type RemoteAPI interface {
	FetchResume(ctx context.Context, resumeID uint) (resume.Resume, error)
	UpdateResume(ctx context.Context, resumeID uint, patch resume.ResumePatch) (resume.Resume, error)
	CreateSection(ctx context.Context, resumeID uint, in resume.NewSection) (resume.Section, error)
	UpdateSection(ctx context.Context, resumeID, sectionID uint, patch resume.SectionPatch) (resume.Section, error)
	DeleteSection(ctx context.Context, resumeID, sectionID uint) error
	ReorderSections(ctx context.Context, resumeID uint, pairs []resume.PositionPair) error
	CreateItem(ctx context.Context, resumeID, sectionID uint, in resume.NewItem) (resume.SectionItem, error)
	UpdateItem(ctx context.Context, resumeID, sectionID, itemID uint, patch resume.ItemPatch) (resume.SectionItem, error)
	DeleteItem(ctx context.Context, resumeID, sectionID, itemID uint) error
	ReorderItems(ctx context.Context, resumeID, sectionID uint, pairs []resume.PositionPair) error
	FetchDesign(ctx context.Context, resumeID uint) (resume.DesignConfig, error)
	UpdateDesign(ctx context.Context, resumeID uint, patch resume.DesignPatch) error
}

// Command 是一次远端写操作。
type Command struct {
	Op  string
	Run func(ctx context.Context, api RemoteAPI) error
}

// Observer 接收每次远端写的结果，通常用于指标统计。
type Observer interface {
	ObserveRemoteWrite(op string, elapsed time.Duration, err error)
}

// SyncState 是 Coordinator 对外暴露的状态快照。
type SyncState struct {
	Status      SaveStatus
	LastSavedAt time.Time
	LastError   error
	InFlight    int
}

// Coordinator 把本地变更镜像到远端：立即派发，不排队、不重试、不回滚。
// 状态以最后一个到达的响应为准。
type Coordinator struct {
	api      RemoteAPI
	ctx      context.Context
	timeout  time.Duration
	clock    Clock
	logger   *slog.Logger
	observer Observer
	onChange func()

	wg conc.WaitGroup

	mu          sync.Mutex
	status      SaveStatus
	lastSavedAt time.Time
	lastErr     error
	inFlight    int
}

// CoordinatorOptions 配置 Coordinator。OnChange 在每个请求完成后调用，可能来自任意 goroutine。
type CoordinatorOptions struct {
	Timeout  time.Duration
	Clock    Clock
	Logger   *slog.Logger
	Observer Observer
	OnChange func()
}

// NewCoordinator 创建 Coordinator。ctx 取消后尚未完成的请求随之取消。
func NewCoordinator(ctx context.Context, api RemoteAPI, opts CoordinatorOptions) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OnChange == nil {
		opts.OnChange = func() {}
	}
	return &Coordinator{
		api:      api,
		ctx:      ctx,
		timeout:  opts.Timeout,
		clock:    opts.Clock,
		logger:   opts.Logger,
		observer: opts.Observer,
		onChange: opts.OnChange,
		status:   StatusIdle,
	}
}

// Submit 立即在后台派发 cmd，不等待之前的请求完成。
func (c *Coordinator) Submit(cmd Command) {
	c.dispatch()
	c.wg.Go(func() {
		c.complete(cmd.Op, c.run(c.ctx, cmd))
	})
}

// Do 同步执行一次远端写，并和 Submit 一样更新保存状态。用于需要服务端返回 id 的创建操作。
func (c *Coordinator) Do(ctx context.Context, cmd Command) error {
	c.dispatch()
	err := c.run(ctx, cmd)
	c.complete(cmd.Op, err)
	return err
}

func (c *Coordinator) dispatch() {
	c.mu.Lock()
	c.status = StatusSaving
	c.inFlight++
	c.mu.Unlock()
}

func (c *Coordinator) run(ctx context.Context, cmd Command) (err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := c.clock.Now()
	if recovered := panics.Try(func() { err = cmd.Run(ctx, c.api) }); recovered != nil {
		err = recovered.AsError()
	}
	if c.observer != nil {
		c.observer.ObserveRemoteWrite(cmd.Op, c.clock.Now().Sub(start), err)
	}
	return err
}

func (c *Coordinator) complete(op string, err error) {
	c.mu.Lock()
	c.inFlight--
	if err != nil {
		c.status = StatusError
		c.lastErr = err
	} else {
		c.status = StatusSaved
		c.lastSavedAt = c.clock.Now()
		c.lastErr = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("remote write failed", "op", op, "error", err)
	} else {
		c.logger.Debug("remote write saved", "op", op)
	}
	c.onChange()
}

// State 返回当前保存状态。
func (c *Coordinator) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SyncState{
		Status:      c.status,
		LastSavedAt: c.lastSavedAt,
		LastError:   c.lastErr,
		InFlight:    c.inFlight,
	}
}

// Wait 阻塞直到所有已派发的请求完成。不要与 Submit 并发调用。
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
