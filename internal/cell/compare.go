package cell

import "strings"

// kindRank orders kinds for cross-kind comparison.
var kindRank = map[Kind]int{
	KindEmpty: 0,
	KindBool:  1,
	KindInt:   2,
	KindText:  3,
	KindTags:  4,
}

// Compare returns -1, 0 or +1 ordering a before, equal to, or after b.
//
// Rules:
//   - different kinds order by Empty < Bool < Int < Text < Tags
//   - Int compares numerically, Bool orders false before true
//   - Text compares by folded form first, raw bytes second, so "apple"
//     sorts before "Banana" and "A" and "a" still have a fixed order
//   - Tags compares by primary (first) tag using the Text rule; an empty
//     list sorts before any non-empty list; equal primaries fall back to
//     list length
//
// An empty Text or empty Tags value is treated as Empty so that cleared
// cells group together regardless of the column kind.
func Compare(a, b Value) int {
	a, b = normalizeEmpty(a), normalizeEmpty(b)

	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return cmpInt(int64(kindRank[ka]), int64(kindRank[kb]))
	}

	switch av := a.(type) {
	case Int:
		return cmpInt(int64(av), int64(b.(Int)))
	case Bool:
		bv := b.(Bool)
		switch {
		case av == bv:
			return 0
		case !bool(av):
			return -1
		default:
			return 1
		}
	case Text:
		return compareText(string(av), string(b.(Text)))
	case Tags:
		bv := b.(Tags)
		if c := compareText(av.Primary(), bv.Primary()); c != 0 {
			return c
		}
		return cmpInt(int64(len(av)), int64(len(bv)))
	default:
		return 0
	}
}

func normalizeEmpty(v Value) Value {
	if IsEmpty(v) {
		return Empty{}
	}
	return v
}

func compareText(a, b string) int {
	if c := strings.Compare(Fold(a), Fold(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
