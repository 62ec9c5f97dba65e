package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

type routeKeySerializer struct{}

// NewDefaultKeySerializer returns the serializer used for client lookups. It
// understands the argument shapes a call carries: path parameter maps, query
// values, strings and scalars. Maps and query values are rendered with sorted
// keys so equal calls share a key.
func NewDefaultKeySerializer() KeySerializer {
	return routeKeySerializer{}
}

func (routeKeySerializer) SerializeKey(target string, args ...any) string {
	if len(args) == 0 {
		return target
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, target)
	for _, arg := range args {
		parts = append(parts, serializeArg(arg))
	}
	return strings.Join(parts, KeySeparator)
}

func serializeArg(v any) string {
	switch arg := v.(type) {
	case nil:
		return "nil"
	case string:
		return arg
	case map[string]string:
		if len(arg) == 0 {
			return "{}"
		}
		keys := make([]string, 0, len(arg))
		for k := range arg {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + arg[k]
		}
		return "{" + strings.Join(pairs, ",") + "}"
	case url.Values:
		// Encode sorts by key.
		return "?" + arg.Encode()
	case []string:
		return "[" + strings.Join(arg, ",") + "]"
	case fmt.Stringer:
		return arg.String()
	default:
		return fmt.Sprintf("%v", arg)
	}
}
