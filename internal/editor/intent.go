package editor

import "resumeBuilder/internal/resume"

// Kind 标识一种编辑意图。是否进入历史、是否防抖都由 Kind 决定。
type Kind int

const (
	KindSetResume Kind = iota
	KindSetDesign
	KindUpdateResumeMeta
	KindAddSection
	KindUpdateSection
	KindDeleteSection
	KindReorderSections
	KindAddItem
	KindUpdateItem
	KindDeleteItem
	KindReorderItems
	KindUpdateDesign
	KindRemapSection
	KindRemapItem
)

var kindNames = map[Kind]string{
	KindSetResume:        "set_resume",
	KindSetDesign:        "set_design",
	KindUpdateResumeMeta: "update_resume_meta",
	KindAddSection:       "add_section",
	KindUpdateSection:    "update_section",
	KindDeleteSection:    "delete_section",
	KindReorderSections:  "reorder_sections",
	KindAddItem:          "add_item",
	KindUpdateItem:       "update_item",
	KindDeleteItem:       "delete_item",
	KindReorderItems:     "reorder_items",
	KindUpdateDesign:     "update_design",
	KindRemapSection:     "remap_section",
	KindRemapItem:        "remap_item",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Trackable 报告该类意图是否会产生历史记录。
func (k Kind) Trackable() bool {
	switch k {
	case KindUpdateResumeMeta,
		KindAddSection, KindUpdateSection, KindDeleteSection, KindReorderSections,
		KindAddItem, KindUpdateItem, KindDeleteItem, KindReorderItems,
		KindUpdateDesign:
		return true
	}
	return false
}

// Debounced 报告该类意图的历史记录是否需要合并。只有条目内容更新是逐键触发的。
func (k Kind) Debounced() bool {
	return k == KindUpdateItem
}

// Intent 是一次编辑动作。
type Intent interface {
	Kind() Kind
}

// SetResume 整体替换当前简历。
type SetResume struct {
	Resume resume.Resume
}

// SetDesign 整体替换设计配置。
type SetDesign struct {
	Design resume.DesignConfig
}

// UpdateResumeMeta 合并标题、状态等顶层字段。
type UpdateResumeMeta struct {
	Patch resume.ResumePatch
}

// AddSection 插入一个由调用方分配好 position 的区块。
type AddSection struct {
	Section resume.Section
}

// UpdateSection 合并区块字段。
type UpdateSection struct {
	SectionID uint
	Patch     resume.SectionPatch
}

// DeleteSection 删除区块，剩余区块不重新编号。
type DeleteSection struct {
	SectionID uint
}

// ReorderSections 为区块写入新的 position。
type ReorderSections struct {
	Pairs []resume.PositionPair
}

// AddItem 向区块插入条目。
type AddItem struct {
	SectionID uint
	Item      resume.SectionItem
}

// UpdateItem 合并条目内容。
type UpdateItem struct {
	SectionID uint
	ItemID    uint
	Patch     resume.ItemPatch
}

// DeleteItem 删除条目，剩余条目不重新编号。
type DeleteItem struct {
	SectionID uint
	ItemID    uint
}

// ReorderItems 为区块内的条目写入新的 position。
type ReorderItems struct {
	SectionID uint
	Pairs     []resume.PositionPair
}

// UpdateDesign 稀疏合并设计配置。
type UpdateDesign struct {
	Patch resume.DesignPatch
}

// RemapSection 把本地区块 id 替换为服务端重新分配的 id。
type RemapSection struct {
	From uint
	To   uint
}

// RemapItem 把本地条目 id 替换为服务端重新分配的 id。
type RemapItem struct {
	SectionID uint
	From      uint
	To        uint
}

func (SetResume) Kind() Kind        { return KindSetResume }
func (SetDesign) Kind() Kind        { return KindSetDesign }
func (UpdateResumeMeta) Kind() Kind { return KindUpdateResumeMeta }
func (AddSection) Kind() Kind       { return KindAddSection }
func (UpdateSection) Kind() Kind    { return KindUpdateSection }
func (DeleteSection) Kind() Kind    { return KindDeleteSection }
func (ReorderSections) Kind() Kind  { return KindReorderSections }
func (AddItem) Kind() Kind          { return KindAddItem }
func (UpdateItem) Kind() Kind       { return KindUpdateItem }
func (DeleteItem) Kind() Kind       { return KindDeleteItem }
func (ReorderItems) Kind() Kind     { return KindReorderItems }
func (UpdateDesign) Kind() Kind     { return KindUpdateDesign }
func (RemapSection) Kind() Kind     { return KindRemapSection }
func (RemapItem) Kind() Kind        { return KindRemapItem }
