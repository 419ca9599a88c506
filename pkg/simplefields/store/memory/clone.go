package memory

import (
	"errors"
	"fmt"

	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
)

var errItemExists = errors.New("item already exists")

func cloneItem(item *simplefields.Item) *simplefields.Item {
	out := *item
	out.Meta = nil
	return &out
}

func cloneMeta(meta map[string][]interface{}) map[string][]interface{} {
	if meta == nil {
		return nil
	}
	out := make(map[string][]interface{}, len(meta))
	for k, values := range meta {
		vs := make([]interface{}, len(values))
		copy(vs, values)
		out[k] = vs
	}
	return out
}

func toComparable(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}
