// Package linktable keeps the process-wide mapping from a message id to the
// link group it belongs to.
//
// Groups live in an arena keyed by a slot id; every member message id indexes
// the same slot, so a group is stored once no matter how many members it has.
// The table is optionally bounded: when it holds more than MaxGroups groups the
// least recently touched group is evicted together with its index entries.
package linktable

import (
	"container/list"
	"sync"

	"github.com/fpt/polyglot/pkg/relay/domain"
)

// DefaultMaxGroups bounds the table when no explicit limit is configured.
const DefaultMaxGroups = 10000

type slot struct {
	id    uint64
	group domain.LinkGroup
	elem  *list.Element
}

// Table is a mutex-guarded link store. The zero value is not usable; call New.
type Table struct {
	mu        sync.Mutex
	slots     map[uint64]*slot
	index     map[string]uint64
	lru       *list.List // front = most recently touched slot id
	nextID    uint64
	maxGroups int
	evicted   uint64
}

// New creates a table holding at most maxGroups groups (0 means unbounded).
func New(maxGroups int) *Table {
	if maxGroups < 0 {
		maxGroups = 0
	}
	return &Table{
		slots:     make(map[uint64]*slot),
		index:     make(map[string]uint64),
		lru:       list.New(),
		maxGroups: maxGroups,
	}
}

// Link registers every member of group under a single lock, so concurrent
// lookups observe either none or all of its members.
//
// A member id that already belonged to an older group is re-pointed at the new
// one and removed from the older group, which keeps its remaining members.
func (t *Table) Link(group domain.LinkGroup) error {
	if group.Len() < 2 {
		return domain.ErrGroupTooSmall
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	s := &slot{id: t.nextID, group: group}
	s.elem = t.lru.PushFront(s.id)
	t.slots[s.id] = s

	for _, m := range group.Members() {
		if prev, ok := t.index[m.MessageID]; ok && prev != s.id {
			t.release(prev, m.MessageID)
		}
		t.index[m.MessageID] = s.id
	}

	for t.maxGroups > 0 && len(t.slots) > t.maxGroups {
		oldest := t.lru.Back()
		if oldest == nil {
			break
		}
		t.evict(oldest.Value.(uint64))
	}
	return nil
}

// Lookup returns the group messageID belongs to and marks it recently used.
func (t *Table) Lookup(messageID string) (domain.LinkGroup, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.index[messageID]
	if !ok {
		return domain.LinkGroup{}, false
	}
	s := t.slots[id]
	t.lru.MoveToFront(s.elem)
	return s.group, true
}

// Len returns the number of live groups.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

// Indexed returns the number of message ids that resolve to a group.
func (t *Table) Indexed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.index)
}

// Evicted returns how many groups were dropped by the size bound.
func (t *Table) Evicted() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evicted
}

// release removes takenID from an older group. A group left with fewer than
// two members links nothing and is dropped with its index entries.
func (t *Table) release(id uint64, takenID string) {
	s, ok := t.slots[id]
	if !ok {
		return
	}
	var rest []domain.LinkedMessage
	for _, m := range s.group.Members() {
		if m.MessageID != takenID && t.index[m.MessageID] == id {
			rest = append(rest, m)
		}
	}
	if g, err := domain.NewLinkGroup(rest...); err == nil {
		s.group = g
		return
	}
	for _, m := range rest {
		delete(t.index, m.MessageID)
	}
	t.lru.Remove(s.elem)
	delete(t.slots, id)
}

func (t *Table) evict(id uint64) {
	s, ok := t.slots[id]
	if !ok {
		return
	}
	for _, m := range s.group.Members() {
		if t.index[m.MessageID] == id {
			delete(t.index, m.MessageID)
		}
	}
	t.lru.Remove(s.elem)
	delete(t.slots, id)
	t.evicted++
}

var _ domain.LinkStore = (*Table)(nil)
