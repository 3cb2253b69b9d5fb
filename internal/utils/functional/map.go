package functional

import (
	"github.com/puzpuzpuz/xsync/v3"
)

type Map[KT comparable, VT any] struct {
	*xsync.MapOf[KT, VT]
}

func NewMapOf[KT comparable, VT any](options ...func(*xsync.MapConfig)) Map[KT, VT] {
	return Map[KT, VT]{xsync.NewMapOf[KT, VT](options...)}
}

// RangeAll calls do for every key-value pair, without early return.
func (m Map[KT, VT]) RangeAll(do func(k KT, v VT)) {
	m.Range(func(k KT, v VT) bool {
		do(k, v)
		return true
	})
}

// RemoveAll deletes every entry whose key satisfies criteria,
// and returns the deleted keys.
func (m Map[KT, VT]) RemoveAll(criteria func(KT) bool) (removed []KT) {
	m.Range(func(k KT, _ VT) bool {
		if criteria(k) {
			m.Delete(k)
			removed = append(removed, k)
		}
		return true
	})
	return
}
