package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	deep "github.com/brunoga/deep/v5"

	"resumeBuilder/internal/resume"
)

var errRemoteDown = errors.New("remote down")

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance 推进时间并在当前 goroutine 中执行到期的定时器。
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeRemote 记录所有调用；fail 中的 op 返回错误，gates 中的 op 阻塞到通道关闭。
// 重排与补丁的参数另外按调用顺序保存。
type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	sectionOrders  [][]resume.PositionPair
	itemOrders     [][]resume.PositionPair
	sectionPatches []resume.SectionPatch
	designPatches  []resume.DesignPatch

	fail   map[string]error
	gates  map[string]chan struct{}
	panics map[string]bool
	nextID uint
	resume resume.Resume
	design resume.DesignConfig
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		fail:   map[string]error{},
		gates:  map[string]chan struct{}{},
		panics: map[string]bool{},
		nextID: 1000,
	}
}

func (f *fakeRemote) enter(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	gate := f.gates[op]
	err := f.fail[op]
	shouldPanic := f.panics[op]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if shouldPanic {
		panic("boom: " + op)
	}
	return err
}

func (f *fakeRemote) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *fakeRemote) gate(op string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[op] = ch
	return ch
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) count(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeRemote) id() uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

func (f *fakeRemote) FetchResume(_ context.Context, resumeID uint) (resume.Resume, error) {
	if err := f.enter("fetch_resume"); err != nil {
		return resume.Resume{}, err
	}
	if f.resume.ID != resumeID {
		return resume.Resume{}, fmt.Errorf("resume %d: not found", resumeID)
	}
	return deep.Clone(f.resume), nil
}

func (f *fakeRemote) UpdateResume(_ context.Context, _ uint, patch resume.ResumePatch) (resume.Resume, error) {
	if err := f.enter("update_resume"); err != nil {
		return resume.Resume{}, err
	}
	r := deep.Clone(f.resume)
	r.Apply(patch)
	return r, nil
}

func (f *fakeRemote) CreateSection(_ context.Context, resumeID uint, in resume.NewSection) (resume.Section, error) {
	if err := f.enter("create_section"); err != nil {
		return resume.Section{}, err
	}
	pos := 1
	if in.Position != nil {
		pos = *in.Position
	}
	return resume.Section{
		ID:            f.id(),
		ResumeID:      resumeID,
		SectionTypeID: in.SectionTypeID,
		Heading:       in.Heading,
		Position:      pos,
		Visible:       true,
		Items:         []resume.SectionItem{},
	}, nil
}

func (f *fakeRemote) UpdateSection(_ context.Context, _, sectionID uint, patch resume.SectionPatch) (resume.Section, error) {
	if err := f.enter("update_section"); err != nil {
		return resume.Section{}, err
	}
	f.mu.Lock()
	f.sectionPatches = append(f.sectionPatches, patch)
	f.mu.Unlock()
	return resume.Section{ID: sectionID}, nil
}

func (f *fakeRemote) DeleteSection(context.Context, uint, uint) error {
	return f.enter("delete_section")
}

func (f *fakeRemote) ReorderSections(_ context.Context, _ uint, pairs []resume.PositionPair) error {
	if err := f.enter("reorder_sections"); err != nil {
		return err
	}
	f.mu.Lock()
	f.sectionOrders = append(f.sectionOrders, pairs)
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) CreateItem(_ context.Context, _, sectionID uint, in resume.NewItem) (resume.SectionItem, error) {
	if err := f.enter("create_item"); err != nil {
		return resume.SectionItem{}, err
	}
	pos := 1
	if in.Position != nil {
		pos = *in.Position
	}
	return resume.SectionItem{ID: f.id(), SectionID: sectionID, Position: pos, DataJSON: in.DataJSON}, nil
}

func (f *fakeRemote) UpdateItem(_ context.Context, _, sectionID, itemID uint, patch resume.ItemPatch) (resume.SectionItem, error) {
	if err := f.enter("update_item"); err != nil {
		return resume.SectionItem{}, err
	}
	return resume.SectionItem{ID: itemID, SectionID: sectionID, DataJSON: patch.DataJSON}, nil
}

func (f *fakeRemote) DeleteItem(context.Context, uint, uint, uint) error {
	return f.enter("delete_item")
}

func (f *fakeRemote) ReorderItems(_ context.Context, _, _ uint, pairs []resume.PositionPair) error {
	if err := f.enter("reorder_items"); err != nil {
		return err
	}
	f.mu.Lock()
	f.itemOrders = append(f.itemOrders, pairs)
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) FetchDesign(context.Context, uint) (resume.DesignConfig, error) {
	if err := f.enter("fetch_design"); err != nil {
		return resume.DesignConfig{}, err
	}
	return deep.Clone(f.design), nil
}

func (f *fakeRemote) UpdateDesign(_ context.Context, _ uint, patch resume.DesignPatch) error {
	if err := f.enter("update_design"); err != nil {
		return err
	}
	f.mu.Lock()
	f.designPatches = append(f.designPatches, patch)
	f.mu.Unlock()
	return nil
}

var _ RemoteAPI = (*fakeRemote)(nil)

// sampleDocument 构造一份包含三个区块 A(1) B(2) C(3) 的文档，B 下有三个条目。
func sampleDocument() Document {
	return Document{
		Resume: resume.Resume{
			ID:     7,
			Title:  "Backend Engineer",
			Status: resume.StatusDraft,
			Sections: []resume.Section{
				{ID: 1, ResumeID: 7, SectionTypeID: 1, Heading: "Summary", Position: 1, Visible: true, Items: []resume.SectionItem{
					{ID: 11, SectionID: 1, Position: 1, DataJSON: json.RawMessage(`{"text":"hi"}`)},
				}},
				{ID: 2, ResumeID: 7, SectionTypeID: 2, Heading: "Experience", Position: 2, Visible: true, Items: []resume.SectionItem{
					{ID: 21, SectionID: 2, Position: 1, DataJSON: json.RawMessage(`{"company":"A"}`)},
					{ID: 22, SectionID: 2, Position: 2, DataJSON: json.RawMessage(`{"company":"B"}`)},
					{ID: 23, SectionID: 2, Position: 3, DataJSON: json.RawMessage(`{"company":"C"}`)},
				}},
				{ID: 3, ResumeID: 7, SectionTypeID: 4, Heading: "Skills", Position: 3, Visible: true, Items: []resume.SectionItem{}},
			},
		},
		Design: resume.DesignConfig{TemplateID: 1, CustomOverrides: map[string]any{"font": "Inter"}},
	}
}

func sectionIDs(doc Document) []uint {
	out := make([]uint, len(doc.Resume.Sections))
	for i, s := range doc.Resume.Sections {
		out[i] = s.ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }
