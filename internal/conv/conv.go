package conv

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// AsKey normalises a JSON-RPC id so that 1, 1.0 and json.Number("1") map to
// the same key while string ids keep their own namespace.
func AsKey(value interface{}) string {
	switch actual := value.(type) {
	case nil:
		return ""
	case string:
		return "s:" + actual
	case json.RawMessage:
		var decoded interface{}
		if err := json.Unmarshal(actual, &decoded); err != nil {
			return "r:" + string(actual)
		}
		return AsKey(decoded)
	case float64:
		if actual == float64(int64(actual)) {
			return "n:" + strconv.FormatInt(int64(actual), 10)
		}
		return "n:" + strconv.FormatFloat(actual, 'g', -1, 64)
	case json.Number:
		if v, err := actual.Int64(); err == nil {
			return "n:" + strconv.FormatInt(v, 10)
		}
		return "n:" + actual.String()
	case int, int64, int32, uint64, uint32, uint:
		return fmt.Sprintf("n:%d", actual)
	}
	return fmt.Sprintf("v:%v", value)
}
