package editor

import "resumeBuilder/internal/resume"

// Positions 按列表顺序分配 1..n 的 position。
func Positions(ids []uint) []resume.PositionPair {
	pairs := make([]resume.PositionPair, len(ids))
	for i, id := range ids {
		pairs[i] = resume.PositionPair{ID: id, Position: i + 1}
	}
	return pairs
}

// Move 把 from 处的元素拖到 to 处并返回整表重新编号后的 pairs。
// from == to 或下标越界时返回 nil，调用方不应产生任何写操作。
func Move(ids []uint, from, to int) []resume.PositionPair {
	if from == to || from < 0 || to < 0 || from >= len(ids) || to >= len(ids) {
		return nil
	}
	return Positions(moveIndex(ids, from, to))
}

// Orderable 是参与过滤视图重排的实体。
type Orderable struct {
	ID      uint
	Visible bool
}

// MoveVisible 在只展示可见实体的视图中执行拖拽，from/to 是可见视图中的下标。
//
// 隐藏实体保留它们在完整列表中的槽位，可见实体只在可见槽位之间移动，
// 随后整表按 1..n 重新编号并输出全部 pairs。
func MoveVisible(all []Orderable, from, to int) []resume.PositionPair {
	var slots []int
	var visible []uint
	for i, o := range all {
		if o.Visible {
			slots = append(slots, i)
			visible = append(visible, o.ID)
		}
	}
	if from == to || from < 0 || to < 0 || from >= len(visible) || to >= len(visible) {
		return nil
	}
	moved := moveIndex(visible, from, to)

	ids := make([]uint, len(all))
	for i, o := range all {
		ids[i] = o.ID
	}
	for i, slot := range slots {
		ids[slot] = moved[i]
	}
	return Positions(ids)
}

// NextSectionPosition 返回追加区块时使用的 position：max(existing)+1。
func NextSectionPosition(r resume.Resume) int {
	next := 1
	for _, s := range r.Sections {
		if s.Position >= next {
			next = s.Position + 1
		}
	}
	return next
}

// NextItemPosition 返回追加条目时使用的 position：max(existing)+1。
func NextItemPosition(s resume.Section) int {
	next := 1
	for _, it := range s.Items {
		if it.Position >= next {
			next = it.Position + 1
		}
	}
	return next
}

// SectionOrder 返回区块的可见性视图，顺序与文档一致。
func SectionOrder(r resume.Resume) []Orderable {
	out := make([]Orderable, len(r.Sections))
	for i, s := range r.Sections {
		out[i] = Orderable{ID: s.ID, Visible: s.Visible}
	}
	return out
}

// ItemIDs 返回区块内条目 id，顺序与文档一致。
func ItemIDs(s resume.Section) []uint {
	out := make([]uint, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.ID
	}
	return out
}

func moveIndex(ids []uint, from, to int) []uint {
	out := make([]uint, 0, len(ids))
	moving := ids[from]
	for i, id := range ids {
		if i != from {
			out = append(out, id)
		}
	}
	out = append(out[:to], append([]uint{moving}, out[to:]...)...)
	return out
}
