package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"resumeBuilder/internal/editor"
	"resumeBuilder/internal/resume"
)

// Script 是 replay 命令读取的 YAML 脚本。
//
//	steps:
//	  - op: add_section
//	    as: exp
//	    section_type_id: 2
//	    heading: Experience
//	  - op: add_item
//	    section: exp
//	    data: {company: Acme, role: Engineer}
//	  - op: key
//	    combo: ctrl+z
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step 是脚本中的一步。section/item 可以是数字 id，也可以是前面步骤用 as 起的名字。
type Step struct {
	Op            string         `yaml:"op"`
	As            string         `yaml:"as"`
	Section       string         `yaml:"section"`
	Item          string         `yaml:"item"`
	Title         *string        `yaml:"title"`
	Status        *string        `yaml:"status"`
	SectionTypeID uint           `yaml:"section_type_id"`
	Heading       *string        `yaml:"heading"`
	Visible       *bool          `yaml:"visible"`
	Data          map[string]any `yaml:"data"`
	From          int            `yaml:"from"`
	To            int            `yaml:"to"`
	TemplateID    *uint          `yaml:"template_id"`
	ThemeID       *uint          `yaml:"theme_id"`
	Overrides     map[string]any `yaml:"overrides"`
	Combo         string         `yaml:"combo"`
}

// LoadScript 解析脚本，空脚本视为错误。
func LoadScript(r io.Reader) (Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	if len(s.Steps) == 0 {
		return Script{}, fmt.Errorf("script has no steps")
	}
	return s, nil
}

type replayer struct {
	session *editor.Session
	refs    map[string]uint
}

func newReplayer(session *editor.Session) *replayer {
	return &replayer{session: session, refs: make(map[string]uint)}
}

// Run 依次执行全部步骤，遇到第一个错误即停止。
func (r *replayer) Run(ctx context.Context, s Script) error {
	for i, step := range s.Steps {
		if err := r.step(ctx, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return nil
}

func (r *replayer) step(ctx context.Context, st Step) error {
	switch st.Op {
	case "update_meta":
		patch := resume.ResumePatch{Title: st.Title}
		if st.Status != nil {
			status := resume.Status(*st.Status)
			if !status.Valid() {
				return fmt.Errorf("invalid status %q", *st.Status)
			}
			patch.Status = &status
		}
		r.session.Dispatch(editor.UpdateResumeMeta{Patch: patch})

	case "add_section":
		heading := ""
		if st.Heading != nil {
			heading = *st.Heading
		}
		sec, err := r.session.CreateSection(ctx, resume.NewSection{SectionTypeID: st.SectionTypeID, Heading: heading})
		if err != nil {
			return err
		}
		r.bind(st.As, sec.ID)

	case "update_section":
		id, err := r.resolve(st.Section)
		if err != nil {
			return err
		}
		r.session.Dispatch(editor.UpdateSection{
			SectionID: id,
			Patch:     resume.SectionPatch{Heading: st.Heading, Visible: st.Visible},
		})

	case "delete_section":
		id, err := r.resolve(st.Section)
		if err != nil {
			return err
		}
		r.session.Dispatch(editor.DeleteSection{SectionID: id})

	case "move_section":
		r.session.MoveSection(st.From, st.To)

	case "add_item":
		sectionID, err := r.resolve(st.Section)
		if err != nil {
			return err
		}
		data, err := marshalData(st.Data)
		if err != nil {
			return err
		}
		item, err := r.session.CreateItem(ctx, sectionID, resume.NewItem{DataJSON: data})
		if err != nil {
			return err
		}
		r.bind(st.As, item.ID)

	case "update_item":
		sectionID, err := r.resolve(st.Section)
		if err != nil {
			return err
		}
		itemID, err := r.resolve(st.Item)
		if err != nil {
			return err
		}
		data, err := marshalData(st.Data)
		if err != nil {
			return err
		}
		r.session.Dispatch(editor.UpdateItem{SectionID: sectionID, ItemID: itemID, Patch: resume.ItemPatch{DataJSON: data}})

	case "delete_item":
		sectionID, err := r.resolve(st.Section)
		if err != nil {
			return err
		}
		itemID, err := r.resolve(st.Item)
		if err != nil {
			return err
		}
		r.session.Dispatch(editor.DeleteItem{SectionID: sectionID, ItemID: itemID})

	case "move_item":
		sectionID, err := r.resolve(st.Section)
		if err != nil {
			return err
		}
		r.session.MoveItem(sectionID, st.From, st.To)

	case "update_design":
		r.session.Dispatch(editor.UpdateDesign{Patch: resume.DesignPatch{
			TemplateID:      st.TemplateID,
			ThemeID:         st.ThemeID,
			CustomOverrides: st.Overrides,
		}})

	case "undo":
		r.session.Undo()
	case "redo":
		r.session.Redo()
	case "key":
		if strings.TrimSpace(st.Combo) == "" {
			return fmt.Errorf("key step needs combo")
		}
		r.session.HandleKey(editor.ParseKey(st.Combo))

	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}

func (r *replayer) bind(name string, id uint) {
	if name = strings.TrimSpace(name); name != "" {
		r.refs[name] = id
	}
}

// resolve 把 id 或引用名解析为 id。撤销重建后的实体 id 会变化，引用名始终指向创建时的 id。
func (r *replayer) resolve(ref string) (uint, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("missing id")
	}
	if id, ok := r.refs[ref]; ok {
		return id, nil
	}
	id, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown reference %q", ref)
	}
	return uint(id), nil
}

func marshalData(data map[string]any) (json.RawMessage, error) {
	if data == nil {
		return json.RawMessage(`{}`), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}
	return raw, nil
}
