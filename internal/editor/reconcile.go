package editor

import (
	"context"
	"fmt"

	deep "github.com/brunoga/deep/v5"

	"resumeBuilder/internal/resume"
)

// reconcile 计算把远端从 from 带到 to 所需的写操作，用于撤销/重做之后的同步。
// 重新出现的实体会在远端重建，服务端分配的新 id 通过 remap 回写到本地。
//
// 服务端删除时会把后面的兄弟前移，重建又只按旧位置插入，所以一旦有删除或重建，
// 同级实体的删除、重建和一次完整重排放进同一个命令按顺序执行。
func reconcile(resumeID uint, from, to Document, remap func(Intent)) []Command {
	var cmds []Command

	if patch := diffMeta(from.Resume, to.Resume); !patch.IsEmpty() {
		cmd, _ := commandFor(resumeID, UpdateResumeMeta{Patch: patch})
		cmds = append(cmds, cmd)
	}
	if patch := diffDesign(from.Design, to.Design); !patch.IsEmpty() {
		cmd, _ := commandFor(resumeID, UpdateDesign{Patch: patch})
		cmds = append(cmds, cmd)
	}

	var removed []uint
	for _, s := range from.Resume.Sections {
		if to.Resume.SectionIndex(s.ID) < 0 {
			removed = append(removed, s.ID)
		}
	}

	var (
		created []resume.Section
		moved   []resume.PositionPair
	)
	for _, want := range to.Resume.Sections {
		idx := from.Resume.SectionIndex(want.ID)
		if idx < 0 {
			created = append(created, deep.Clone(want))
			continue
		}
		have := from.Resume.Sections[idx]
		if have.Position != want.Position {
			moved = append(moved, resume.PositionPair{ID: want.ID, Position: want.Position})
		}
		if patch := diffSection(have, want); !patch.IsEmpty() {
			cmd, _ := commandFor(resumeID, UpdateSection{SectionID: want.ID, Patch: patch})
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, reconcileItems(resumeID, have, want, remap)...)
	}

	switch {
	case len(removed) > 0 || len(created) > 0:
		cmds = append(cmds, restoreSections(resumeID, removed, created, sectionPositions(to.Resume), remap))
	case len(moved) > 0:
		cmd, _ := commandFor(resumeID, ReorderSections{Pairs: moved})
		cmds = append(cmds, cmd)
	}
	return cmds
}

func reconcileItems(resumeID uint, have, want resume.Section, remap func(Intent)) []Command {
	var cmds []Command

	var removed []uint
	for _, it := range have.Items {
		if want.ItemIndex(it.ID) < 0 {
			removed = append(removed, it.ID)
		}
	}

	var (
		created []resume.SectionItem
		moved   []resume.PositionPair
	)
	for _, it := range want.Items {
		idx := have.ItemIndex(it.ID)
		if idx < 0 {
			created = append(created, deep.Clone(it))
			continue
		}
		prev := have.Items[idx]
		if prev.Position != it.Position {
			moved = append(moved, resume.PositionPair{ID: it.ID, Position: it.Position})
		}
		if !resume.JSONEqual(prev.DataJSON, it.DataJSON) {
			cmd, _ := commandFor(resumeID, UpdateItem{
				SectionID: want.ID,
				ItemID:    it.ID,
				Patch:     resume.ItemPatch{DataJSON: it.DataJSON},
			})
			cmds = append(cmds, cmd)
		}
	}

	switch {
	case len(removed) > 0 || len(created) > 0:
		cmds = append(cmds, restoreItems(resumeID, want.ID, removed, created, itemPositions(want), remap))
	case len(moved) > 0:
		cmd, _ := commandFor(resumeID, ReorderItems{SectionID: want.ID, Pairs: moved})
		cmds = append(cmds, cmd)
	}
	return cmds
}

// restoreSections 依次删除、重建区块，最后按 order 重排全部区块。order 中的旧 id 会换成重建后的 id。
func restoreSections(resumeID uint, removed []uint, created []resume.Section, order []resume.PositionPair, remap func(Intent)) Command {
	return Command{Op: "restore_sections", Run: func(ctx context.Context, api RemoteAPI) error {
		for _, id := range removed {
			if err := api.DeleteSection(ctx, resumeID, id); err != nil {
				return fmt.Errorf("delete section %d: %w", id, err)
			}
		}
		ids := make(map[uint]uint, len(created))
		for _, sec := range created {
			newID, err := recreateSection(ctx, api, resumeID, sec, remap)
			if err != nil {
				return err
			}
			ids[sec.ID] = newID
		}
		return api.ReorderSections(ctx, resumeID, remapPairs(order, ids))
	}}
}

// restoreItems 与 restoreSections 相同，作用于一个区块内的条目。
func restoreItems(resumeID, sectionID uint, removed []uint, created []resume.SectionItem, order []resume.PositionPair, remap func(Intent)) Command {
	return Command{Op: "restore_items", Run: func(ctx context.Context, api RemoteAPI) error {
		for _, id := range removed {
			if err := api.DeleteItem(ctx, resumeID, sectionID, id); err != nil {
				return fmt.Errorf("delete item %d: %w", id, err)
			}
		}
		ids := make(map[uint]uint, len(created))
		for _, it := range created {
			newID, err := createItem(ctx, api, resumeID, sectionID, it, remap)
			if err != nil {
				return err
			}
			ids[it.ID] = newID
		}
		return api.ReorderItems(ctx, resumeID, sectionID, remapPairs(order, ids))
	}}
}

// recreateSection 在远端重建区块及其条目。新区块里的条目按原位置创建，不需要再重排。
func recreateSection(ctx context.Context, api RemoteAPI, resumeID uint, sec resume.Section, remap func(Intent)) (uint, error) {
	pos := sec.Position
	created, err := api.CreateSection(ctx, resumeID, resume.NewSection{
		SectionTypeID: sec.SectionTypeID,
		Heading:       sec.Heading,
		Position:      &pos,
	})
	if err != nil {
		return 0, fmt.Errorf("recreate section %d: %w", sec.ID, err)
	}
	remap(RemapSection{From: sec.ID, To: created.ID})

	patch := resume.SectionPatch{LayoutConfig: sec.LayoutConfig}
	if !sec.Visible {
		visible := false
		patch.Visible = &visible
	}
	if !patch.IsEmpty() {
		if _, err := api.UpdateSection(ctx, resumeID, created.ID, patch); err != nil {
			return 0, fmt.Errorf("restore section %d: %w", created.ID, err)
		}
	}
	for _, it := range sec.Items {
		if _, err := createItem(ctx, api, resumeID, created.ID, it, remap); err != nil {
			return 0, err
		}
	}
	return created.ID, nil
}

func createItem(ctx context.Context, api RemoteAPI, resumeID, sectionID uint, it resume.SectionItem, remap func(Intent)) (uint, error) {
	pos := it.Position
	created, err := api.CreateItem(ctx, resumeID, sectionID, resume.NewItem{DataJSON: it.DataJSON, Position: &pos})
	if err != nil {
		return 0, fmt.Errorf("recreate item %d: %w", it.ID, err)
	}
	remap(RemapItem{SectionID: sectionID, From: it.ID, To: created.ID})
	return created.ID, nil
}

func sectionPositions(r resume.Resume) []resume.PositionPair {
	pairs := make([]resume.PositionPair, len(r.Sections))
	for i, s := range r.Sections {
		pairs[i] = resume.PositionPair{ID: s.ID, Position: s.Position}
	}
	return pairs
}

func itemPositions(s resume.Section) []resume.PositionPair {
	pairs := make([]resume.PositionPair, len(s.Items))
	for i, it := range s.Items {
		pairs[i] = resume.PositionPair{ID: it.ID, Position: it.Position}
	}
	return pairs
}

func remapPairs(pairs []resume.PositionPair, ids map[uint]uint) []resume.PositionPair {
	out := make([]resume.PositionPair, len(pairs))
	for i, p := range pairs {
		if id, ok := ids[p.ID]; ok {
			p.ID = id
		}
		out[i] = p
	}
	return out
}

func diffMeta(from, to resume.Resume) resume.ResumePatch {
	var patch resume.ResumePatch
	if from.Title != to.Title {
		title := to.Title
		patch.Title = &title
	}
	if from.Status != to.Status {
		status := to.Status
		patch.Status = &status
	}
	return patch
}

func diffSection(from, to resume.Section) resume.SectionPatch {
	var patch resume.SectionPatch
	if from.Heading != to.Heading {
		heading := to.Heading
		patch.Heading = &heading
	}
	if from.Visible != to.Visible {
		visible := to.Visible
		patch.Visible = &visible
	}
	if !resume.JSONEqual(from.LayoutConfig, to.LayoutConfig) {
		if to.LayoutConfig == nil {
			patch.ClearLayoutConfig = true
		} else {
			patch.LayoutConfig = to.LayoutConfig
		}
	}
	return patch
}

func diffDesign(from, to resume.DesignConfig) resume.DesignPatch {
	var patch resume.DesignPatch
	if from.Equal(to) {
		return patch
	}
	if from.TemplateID != to.TemplateID {
		id := to.TemplateID
		patch.TemplateID = &id
	}
	switch {
	case to.ThemeID == nil:
		patch.ClearTheme = from.ThemeID != nil
	case from.ThemeID == nil || *from.ThemeID != *to.ThemeID:
		id := *to.ThemeID
		patch.ThemeID = &id
	}
	overrides := map[string]any{}
	for k, v := range to.CustomOverrides {
		if old, ok := from.CustomOverrides[k]; !ok || !resume.ValueEqual(old, v) {
			overrides[k] = v
		}
	}
	for k := range from.CustomOverrides {
		if _, ok := to.CustomOverrides[k]; !ok {
			overrides[k] = nil
		}
	}
	if len(overrides) > 0 {
		patch.CustomOverrides = overrides
	}
	return patch
}
