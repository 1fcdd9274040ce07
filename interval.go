package sheetdb

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/reoring/sheetdb/storage"
)

// ExpandDocIDs turns a mixed list of document references into a
// deduplicated, ascending id list. A reference is either a single integer
// id or a two-element inclusive range:
//
//	ExpandDocIDs([]any{1, []any{3, 7}, 5})  →  [1 3 4 5 6 7]
//
// Range endpoints may come in either order. Anything else, including one-
// or three-element ranges, fails with ErrInvalidInterval.
func ExpandDocIDs(refs []any) ([]int64, error) {
	seen := map[int64]struct{}{}
	for _, ref := range refs {
		if id, ok := asDocID(ref); ok {
			seen[id] = struct{}{}
			continue
		}
		lo, hi, ok := asDocIDRange(ref)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, ref)
		}
		for id := lo; id <= hi; id++ {
			seen[id] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func asDocID(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		if float32(int64(n)) == n {
			return int64(n), true
		}
	case float64:
		if float64(int64(n)) == n {
			return int64(n), true
		}
	case json.Number:
		id, err := n.Int64()
		return id, err == nil
	}
	return 0, false
}

func asDocIDRange(v any) (lo, hi int64, ok bool) {
	var a, b int64
	switch pair := v.(type) {
	case []any:
		if len(pair) != 2 {
			return 0, 0, false
		}
		var aok, bok bool
		a, aok = asDocID(pair[0])
		b, bok = asDocID(pair[1])
		if !aok || !bok {
			return 0, 0, false
		}
	case []int64:
		if len(pair) != 2 {
			return 0, 0, false
		}
		a, b = pair[0], pair[1]
	case []int:
		if len(pair) != 2 {
			return 0, 0, false
		}
		a, b = int64(pair[0]), int64(pair[1])
	default:
		return 0, 0, false
	}
	if a > b {
		a, b = b, a
	}
	return a, b, true
}

// OrderBy sorts records by the named fields, comparing values the way
// conditions do. Records missing a sort field order after records that have
// it, regardless of direction; ties keep their input order.
func OrderBy(records []storage.Record, by []string, reverse bool) []storage.Record {
	out := make([]storage.Record, len(records))
	copy(out, records)
	if len(by) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Doc, out[j].Doc
		for _, field := range by {
			av, aok := a[field]
			bv, bok := b[field]
			switch {
			case !aok && !bok:
				continue
			case !aok:
				return false
			case !bok:
				return true
			}
			c, cok := storage.Compare(av, bv)
			if !cok || c == 0 {
				continue
			}
			if reverse {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}
