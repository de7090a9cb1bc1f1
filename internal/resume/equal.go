package resume

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Equal 判断两份设计配置在语义上是否一致。
func (d DesignConfig) Equal(other DesignConfig) bool {
	if d.TemplateID != other.TemplateID {
		return false
	}
	if (d.ThemeID == nil) != (other.ThemeID == nil) {
		return false
	}
	if d.ThemeID != nil && *d.ThemeID != *other.ThemeID {
		return false
	}
	if len(d.CustomOverrides) != len(other.CustomOverrides) {
		return false
	}
	for k, v := range d.CustomOverrides {
		ov, ok := other.CustomOverrides[k]
		if !ok || !valueEqual(v, ov) {
			return false
		}
	}
	return true
}

// JSONEqual 按语义比较两段 JSON，忽略空白与 key 顺序。
func JSONEqual(a, b json.RawMessage) bool {
	return jsonEqual(a, b)
}

// ValueEqual 按 JSON 语义比较两个覆盖项取值。
func ValueEqual(a, b any) bool {
	return valueEqual(a, b)
}

func jsonEqual(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func valueEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	// 来自 JSON 的数字是 float64，调用方传入的可能是 int，统一编码后再比较。
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return jsonEqual(ab, bb)
}
