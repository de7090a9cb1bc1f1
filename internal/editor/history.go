package editor

import (
	"time"

	deep "github.com/brunoga/deep/v5"
)

// DefaultHistoryLimit 是撤销栈的默认深度。
const DefaultHistoryLimit = 50

// Entry 是某一时刻的文档快照。Tracker 持有的是值拷贝，修改实时文档不会影响已存快照。
type Entry struct {
	Document
	Timestamp time.Time `json:"timestamp"`
}

// Tracker 维护撤销/重做栈。
//
// 快照在变更之后记录；baseline 是加载时的文档。undo 弹出 past 栈顶并恢复到
// 新的栈顶，past 为空时恢复到 baseline。超出深度时最旧的快照被淘汰并成为新的 baseline。
type Tracker struct {
	limit    int
	baseline Entry
	past     []Entry
	future   []Entry // 栈顶在末尾，即下一次 redo 的目标
}

// NewTracker 创建指定深度的 Tracker，limit <= 0 时使用默认值。
func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Tracker{limit: limit}
}

// Reset 清空两个栈并设置新的 baseline。
func (t *Tracker) Reset(baseline Entry) {
	t.baseline = deep.Clone(baseline)
	t.past = nil
	t.future = nil
}

// Record 压入一个快照并清空 future。
func (t *Tracker) Record(e Entry) {
	t.past = append(t.past, deep.Clone(e))
	if over := len(t.past) - t.limit; over > 0 {
		t.baseline = t.past[over-1]
		t.past = append([]Entry(nil), t.past[over:]...)
	}
	t.future = nil
}

// Undo 撤销最近一次记录，返回需要恢复到的快照。past 为空时返回 false。
func (t *Tracker) Undo() (Entry, bool) {
	if len(t.past) == 0 {
		return Entry{}, false
	}
	top := t.past[len(t.past)-1]
	t.past = t.past[:len(t.past)-1]
	t.future = append(t.future, top)
	return deep.Clone(t.current()), true
}

// Redo 重做最近一次撤销，返回需要恢复到的快照。future 为空时返回 false。
func (t *Tracker) Redo() (Entry, bool) {
	if len(t.future) == 0 {
		return Entry{}, false
	}
	next := t.future[len(t.future)-1]
	t.future = t.future[:len(t.future)-1]
	t.past = append(t.past, next)
	return deep.Clone(next), true
}

func (t *Tracker) current() Entry {
	if len(t.past) == 0 {
		return t.baseline
	}
	return t.past[len(t.past)-1]
}

// CanUndo 报告 past 是否非空。
func (t *Tracker) CanUndo() bool { return len(t.past) > 0 }

// CanRedo 报告 future 是否非空。
func (t *Tracker) CanRedo() bool { return len(t.future) > 0 }

// Depth 返回 past 与 future 的长度。
func (t *Tracker) Depth() (past, future int) { return len(t.past), len(t.future) }

// Past 按从旧到新的顺序返回 past 的拷贝。
func (t *Tracker) Past() []Entry {
	if len(t.past) == 0 {
		return []Entry{}
	}
	return deep.Clone(t.past)
}

// Baseline 返回当前 baseline 的拷贝。
func (t *Tracker) Baseline() Entry { return deep.Clone(t.baseline) }

// Rewrite 对 baseline 与两个栈中的每个快照执行 fn，用于服务端重新分配 id 后的同步替换。
func (t *Tracker) Rewrite(fn func(*Document)) {
	fn(&t.baseline.Document)
	for i := range t.past {
		fn(&t.past[i].Document)
	}
	for i := range t.future {
		fn(&t.future[i].Document)
	}
}
