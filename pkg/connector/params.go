package connector

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ParamEncoder flattens a nested parameter set into query or form values.
// The backend's key conventions live here so a different backend contract
// only needs a different encoder.
type ParamEncoder interface {
	Encode(params map[string]any) url.Values
}

// BracketEncoder produces the bracketed keys the Neos backend expects:
//
//	{"dimensions": {"language": ["en_US"]}}  →  dimensions[language][]=en_US
//
// Maps become key[sub], slices become key[] and scalars are written as-is.
// Map keys are visited in sorted order; nil values are skipped.
type BracketEncoder struct{}

// Encode implements ParamEncoder.
func (BracketEncoder) Encode(params map[string]any) url.Values {
	out := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		encodeParam(out, k, reflect.ValueOf(params[k]))
	}
	return out
}

func encodeParam(out url.Values, key string, v reflect.Value) {
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return
		}
		encodeParam(out, key, v.Elem())
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, mk := range keys {
			encodeParam(out, key+"["+fmt.Sprint(mk.Interface())+"]", v.MapIndex(mk))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			encodeParam(out, key+"[]", v.Index(i))
		}
	case reflect.Bool:
		out.Add(key, strconv.FormatBool(v.Bool()))
	default:
		out.Add(key, fmt.Sprint(v.Interface()))
	}
}

// urlWithParams appends encoded params to target.
func urlWithParams(target string, params url.Values) string {
	if len(params) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + params.Encode()
}

// joinPath appends escaped path segments to a route.
func joinPath(route string, segments ...string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(route, "/"))
	for _, s := range segments {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(s))
	}
	return sb.String()
}
