package logschema

import (
	"fmt"
	"sort"
	"strings"
)

// Schema 定义每个日志事件所需的关键字段，便于集中校验。
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	"alert_event": {
		Event:    "alert_event",
		Required: []string{"action", "symbol", "outcome"},
	},
	"order_event": {
		Event:    "order_event",
		Required: []string{"symbol", "side", "qty", "order_link_id"},
	},
	"dedup_event": {
		Event:    "dedup_event",
		Required: []string{"action", "symbol", "key"},
	},
	"error_event": {
		Event:    "error_event",
		Required: []string{"error"},
	},
}

// Known 返回所有事件名，便于外部生成文档。
func Known() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate 检查日志字段是否包含 schema 中要求的 key。
func Validate(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, k := range s.Required {
		if _, ok := fields[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("event %s missing fields: %s", event, strings.Join(missing, ","))
	}
	return nil
}
