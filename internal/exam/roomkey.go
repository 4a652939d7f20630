package exam

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeRoomKey canonicalizes a client-supplied room identifier into
// a stable string key. Numeric and string forms of the same id collapse
// to one key: 42, 42.0, json.Number("42") and "42" all normalize to
// "42". Identifiers that are absent or blank yield ErrMissingRoomID.
//
// Every boundary (HTTP body, socket payload, internal lookup) must go
// through this function before touching the registry.
func NormalizeRoomKey(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", ErrMissingRoomID
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", ErrMissingRoomID
		}
		// Collapse numeric strings to their decimal form so "042" and
		// 42 address the same room.
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
		return s, nil
	case json.Number:
		return NormalizeRoomKey(v.String())
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		// encoding/json decodes all JSON numbers as float64.
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: unsupported room id type %T", ErrMissingRoomID, raw)
	}
}
