package join

import (
	"cmp"
	"slices"
	"strings"

	"S3Joiner/internal/objstore"
)

// KeyComparator orders shard keys shaped like <dir>/part-<PartNo>-<SplitNo>[.ext].
// Keys are grouped by directory, then ordered by the dash-separated filename
// tokens from last to first, so the split number dominates and the part number
// breaks ties: part-0-9 < part-0-10 < part-1-10.
type KeyComparator struct{}

func (KeyComparator) Compare(a, b string) int {
	return CompareKeys(a, b)
}

// CompareKeys is the three-way comparison behind KeyComparator. It never fails:
// tokens that are not purely numeric are compared as strings, and sort after
// numeric tokens at the same position.
func CompareKeys(a, b string) int {
	dirA, nameA := splitKey(a)
	dirB, nameB := splitKey(b)
	if c := strings.Compare(dirA, dirB); c != 0 {
		return c
	}

	ta, tb := nameTokens(nameA), nameTokens(nameB)
	if len(ta) != len(tb) {
		return cmp.Compare(len(ta), len(tb))
	}
	for i := len(ta) - 1; i >= 0; i-- {
		if c := compareToken(ta[i], tb[i]); c != 0 {
			return c
		}
	}
	return 0
}

// SortObjects sorts objects in place by CompareKeys. Keys the comparator
// considers equal (part-01-1 and part-1-1) fall back to byte order so the result
// does not depend on listing order.
func SortObjects(objects []objstore.Object) {
	slices.SortStableFunc(objects, func(a, b objstore.Object) int {
		if c := (KeyComparator{}).Compare(a.Key, b.Key); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
}

// TotalSize is the declared length of the joined stream.
func TotalSize(objects []objstore.Object) int64 {
	var n int64
	for _, o := range objects {
		n += o.Size
	}
	return n
}

func splitKey(key string) (dir, name string) {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

func nameTokens(name string) []string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return strings.FieldsFunc(name, func(r rune) bool { return r == '-' })
}

func compareToken(a, b string) int {
	numA, numB := isDigits(a), isDigits(b)
	switch {
	case numA && numB:
		return compareDigits(a, b)
	case numA:
		return -1
	case numB:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// compareDigits compares two digit strings as unbounded integers.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return cmp.Compare(len(a), len(b))
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
