// Package interest implements the deduplicated per-client interest queue:
// the ordered worklist of (entity, component-kind) pairs still owed to a
// client, plus the Interest key type itself.
package interest

import (
	"container/list"

	"replicore/ids"
)

// Interest uniquely identifies one replication unit: a single component of
// a single entity, as seen by one client.
type Interest struct {
	Entity ids.StableId
	Kind   ids.ComponentKind
}

// Queue is a deduplicated FIFO: a set S of Interests plus an ordered list L
// with the invariant that L contains each element of S exactly once, in
// insertion (or promotion) order. Backed by container/list + an index map
// so PushFront is O(1) rather than the O(n) a slice-based deque would need
// to relocate an existing element — an improvement on the reference
// algorithm's complexity, not a behavior change.
type Queue struct {
	order *list.List
	index map[Interest]*list.Element
}

// NewQueue returns an empty interest queue.
func NewQueue() *Queue {
	return &Queue{
		order: list.New(),
		index: make(map[Interest]*list.Element),
	}
}

// Len reports the number of distinct interests currently queued.
func (q *Queue) Len() int { return q.order.Len() }

// Contains reports whether x is currently queued (in S).
func (q *Queue) Contains(x Interest) bool {
	_, ok := q.index[x]
	return ok
}

// PushBack appends x to the tail if it is not already queued; a no-op
// otherwise. Used by low-priority producers: baseload sweeps and per-tick
// change detection.
func (q *Queue) PushBack(x Interest) {
	if _, ok := q.index[x]; ok {
		return
	}
	q.index[x] = q.order.PushBack(x)
}

// PushFront moves x to the head, inserting it if not already queued.
// Existing entries are relocated rather than duplicated. Used by the resend
// path to promote an unacked interest ahead of fresh traffic.
func (q *Queue) PushFront(x Interest) {
	if el, ok := q.index[x]; ok {
		q.order.MoveToFront(el)
		return
	}
	q.index[x] = q.order.PushFront(x)
}

// Remove drops x from the queue if present, wherever it sits. Used when a
// dependency group pulls in an interest that was independently queued, so
// it is not processed twice in the same pass.
func (q *Queue) Remove(x Interest) bool {
	el, ok := q.index[x]
	if !ok {
		return false
	}
	q.order.Remove(el)
	delete(q.index, x)
	return true
}

// PopFront removes and returns the head interest. ok is false on an empty
// queue.
func (q *Queue) PopFront() (x Interest, ok bool) {
	el := q.order.Front()
	if el == nil {
		return Interest{}, false
	}
	q.order.Remove(el)
	x = el.Value.(Interest)
	delete(q.index, x)
	return x, true
}

// PeekFirst returns the head interest without removing it.
func (q *Queue) PeekFirst() (Interest, bool) {
	el := q.order.Front()
	if el == nil {
		return Interest{}, false
	}
	return el.Value.(Interest), true
}

// PeekLast returns the tail interest without removing it.
func (q *Queue) PeekLast() (Interest, bool) {
	el := q.order.Back()
	if el == nil {
		return Interest{}, false
	}
	return el.Value.(Interest), true
}

// Iter calls fn for every queued interest in order, head to tail. fn must
// not mutate the queue.
func (q *Queue) Iter(fn func(Interest)) {
	for el := q.order.Front(); el != nil; el = el.Next() {
		fn(el.Value.(Interest))
	}
}
