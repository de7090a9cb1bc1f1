package editor

import "strings"

// Action 是快捷键映射出的编辑器动作。
type Action int

const (
	ActionNone Action = iota
	ActionUndo
	ActionRedo
	ActionSave
)

func (a Action) String() string {
	switch a {
	case ActionUndo:
		return "undo"
	case ActionRedo:
		return "redo"
	case ActionSave:
		return "save"
	}
	return "none"
}

// KeyEvent 描述一次按键，Key 为按键字符本身。
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Meta  bool
	Shift bool
}

// ParseKey 解析 "ctrl+shift+z"、"cmd+y" 这类写法。
func ParseKey(combo string) KeyEvent {
	var ev KeyEvent
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		switch strings.TrimSpace(part) {
		case "ctrl", "control":
			ev.Ctrl = true
		case "cmd", "meta", "command":
			ev.Meta = true
		case "shift":
			ev.Shift = true
		default:
			ev.Key = strings.TrimSpace(part)
		}
	}
	return ev
}

// Shortcut 返回按键对应的动作：Ctrl/Cmd+Z 撤销，Ctrl/Cmd+Shift+Z 与 Ctrl/Cmd+Y 重做，Ctrl/Cmd+S 保存。
func Shortcut(ev KeyEvent) Action {
	if !ev.Ctrl && !ev.Meta {
		return ActionNone
	}
	switch strings.ToLower(ev.Key) {
	case "z":
		if ev.Shift {
			return ActionRedo
		}
		return ActionUndo
	case "y":
		return ActionRedo
	case "s":
		return ActionSave
	}
	return ActionNone
}
