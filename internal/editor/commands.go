package editor

import (
	"context"
	"slices"

	deep "github.com/brunoga/deep/v5"
)

// commandFor 返回与本地意图配对的远端写操作。创建类意图由 Session 先走远端，
// 替换与 id 重映射只影响本地，它们都没有配对命令。
func commandFor(resumeID uint, in Intent) (Command, bool) {
	switch in := in.(type) {
	case UpdateResumeMeta:
		patch := deep.Clone(in.Patch)
		return Command{Op: "update_resume", Run: func(ctx context.Context, api RemoteAPI) error {
			_, err := api.UpdateResume(ctx, resumeID, patch)
			return err
		}}, true
	case UpdateSection:
		patch, id := deep.Clone(in.Patch), in.SectionID
		return Command{Op: "update_section", Run: func(ctx context.Context, api RemoteAPI) error {
			_, err := api.UpdateSection(ctx, resumeID, id, patch)
			return err
		}}, true
	case DeleteSection:
		id := in.SectionID
		return Command{Op: "delete_section", Run: func(ctx context.Context, api RemoteAPI) error {
			return api.DeleteSection(ctx, resumeID, id)
		}}, true
	case ReorderSections:
		pairs := slices.Clone(in.Pairs)
		return Command{Op: "reorder_sections", Run: func(ctx context.Context, api RemoteAPI) error {
			return api.ReorderSections(ctx, resumeID, pairs)
		}}, true
	case UpdateItem:
		patch, sectionID, itemID := deep.Clone(in.Patch), in.SectionID, in.ItemID
		return Command{Op: "update_item", Run: func(ctx context.Context, api RemoteAPI) error {
			_, err := api.UpdateItem(ctx, resumeID, sectionID, itemID, patch)
			return err
		}}, true
	case DeleteItem:
		sectionID, itemID := in.SectionID, in.ItemID
		return Command{Op: "delete_item", Run: func(ctx context.Context, api RemoteAPI) error {
			return api.DeleteItem(ctx, resumeID, sectionID, itemID)
		}}, true
	case ReorderItems:
		pairs, sectionID := slices.Clone(in.Pairs), in.SectionID
		return Command{Op: "reorder_items", Run: func(ctx context.Context, api RemoteAPI) error {
			return api.ReorderItems(ctx, resumeID, sectionID, pairs)
		}}, true
	case UpdateDesign:
		patch := deep.Clone(in.Patch)
		return Command{Op: "update_design", Run: func(ctx context.Context, api RemoteAPI) error {
			return api.UpdateDesign(ctx, resumeID, patch)
		}}, true
	}
	return Command{}, false
}
