package editor

import (
	"slices"

	deep "github.com/brunoga/deep/v5"

	"resumeBuilder/internal/resume"
)

// Document 是编辑会话中的完整文档：简历树加设计配置。
type Document struct {
	Resume resume.Resume       `json:"resume"`
	Design resume.DesignConfig `json:"design"`
}

// Store 持有当前正在编辑的文档，是本地状态的唯一来源。
// Store 本身不加锁，由 Session 串行调用。
type Store struct {
	doc Document
}

// NewStore 创建一个空的 Store。
func NewStore() *Store {
	return &Store{}
}

// Apply 执行一次变更并报告文档是否发生变化。目标不存在时静默忽略。
func (s *Store) Apply(in Intent) bool {
	return reduce(&s.doc, in)
}

// Document 返回当前文档的拷贝，调用方可以随意修改。
func (s *Store) Document() Document {
	return deep.Clone(s.doc)
}

// Section 返回指定区块的拷贝。
func (s *Store) Section(id uint) (resume.Section, bool) {
	idx := s.doc.Resume.SectionIndex(id)
	if idx < 0 {
		return resume.Section{}, false
	}
	return deep.Clone(s.doc.Resume.Sections[idx]), true
}

func reduce(doc *Document, in Intent) bool {
	switch in := in.(type) {
	case SetResume:
		doc.Resume = deep.Clone(in.Resume)
		doc.Resume.SortSections()
		for i := range doc.Resume.Sections {
			doc.Resume.Sections[i].SortItems()
		}
		return true
	case SetDesign:
		doc.Design = deep.Clone(in.Design)
		return true
	case UpdateResumeMeta:
		return doc.Resume.Apply(in.Patch)
	case AddSection:
		return addSection(&doc.Resume, in.Section)
	case UpdateSection:
		idx := doc.Resume.SectionIndex(in.SectionID)
		if idx < 0 {
			return false
		}
		return doc.Resume.Sections[idx].Apply(in.Patch)
	case DeleteSection:
		idx := doc.Resume.SectionIndex(in.SectionID)
		if idx < 0 {
			return false
		}
		doc.Resume.Sections = slices.Delete(doc.Resume.Sections, idx, idx+1)
		return true
	case ReorderSections:
		return reorderSections(&doc.Resume, in.Pairs)
	case AddItem:
		sec := findSection(&doc.Resume, in.SectionID)
		if sec == nil {
			return false
		}
		return addItem(sec, in.Item)
	case UpdateItem:
		sec := findSection(&doc.Resume, in.SectionID)
		if sec == nil {
			return false
		}
		idx := sec.ItemIndex(in.ItemID)
		if idx < 0 {
			return false
		}
		return sec.Items[idx].Apply(in.Patch)
	case DeleteItem:
		sec := findSection(&doc.Resume, in.SectionID)
		if sec == nil {
			return false
		}
		idx := sec.ItemIndex(in.ItemID)
		if idx < 0 {
			return false
		}
		sec.Items = slices.Delete(sec.Items, idx, idx+1)
		return true
	case ReorderItems:
		sec := findSection(&doc.Resume, in.SectionID)
		if sec == nil {
			return false
		}
		return reorderItems(sec, in.Pairs)
	case UpdateDesign:
		return doc.Design.Apply(in.Patch)
	case RemapSection:
		sec := findSection(&doc.Resume, in.From)
		if sec == nil || doc.Resume.SectionIndex(in.To) >= 0 {
			return false
		}
		sec.ID = in.To
		for i := range sec.Items {
			sec.Items[i].SectionID = in.To
		}
		return true
	case RemapItem:
		sec := findSection(&doc.Resume, in.SectionID)
		if sec == nil {
			return false
		}
		idx := sec.ItemIndex(in.From)
		if idx < 0 || sec.ItemIndex(in.To) >= 0 {
			return false
		}
		sec.Items[idx].ID = in.To
		return true
	}
	return false
}

func findSection(r *resume.Resume, id uint) *resume.Section {
	idx := r.SectionIndex(id)
	if idx < 0 {
		return nil
	}
	return &r.Sections[idx]
}

func addSection(r *resume.Resume, sec resume.Section) bool {
	if r.SectionIndex(sec.ID) >= 0 {
		return false
	}
	sec = deep.Clone(sec)
	sec.ResumeID = r.ID
	if sec.Items == nil {
		sec.Items = []resume.SectionItem{}
	}
	sec.SortItems()
	r.Sections = append(r.Sections, sec)
	r.SortSections()
	return true
}

func addItem(sec *resume.Section, item resume.SectionItem) bool {
	if sec.ItemIndex(item.ID) >= 0 {
		return false
	}
	item = deep.Clone(item)
	item.SectionID = sec.ID
	sec.Items = append(sec.Items, item)
	sec.SortItems()
	return true
}

func reorderSections(r *resume.Resume, pairs []resume.PositionPair) bool {
	changed := false
	for _, p := range pairs {
		idx := r.SectionIndex(p.ID)
		if idx < 0 || r.Sections[idx].Position == p.Position {
			continue
		}
		r.Sections[idx].Position = p.Position
		changed = true
	}
	if changed {
		r.SortSections()
	}
	return changed
}

func reorderItems(sec *resume.Section, pairs []resume.PositionPair) bool {
	changed := false
	for _, p := range pairs {
		idx := sec.ItemIndex(p.ID)
		if idx < 0 || sec.Items[idx].Position == p.Position {
			continue
		}
		sec.Items[idx].Position = p.Position
		changed = true
	}
	if changed {
		sec.SortItems()
	}
	return changed
}
