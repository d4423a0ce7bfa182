package kern

import "testing"

func names(head *Task) []string {
	var out []string
	for t := head; t != nil; t = t.schedNext {
		out = append(out, t.name)
	}
	return out
}

func waitNames(w *waitList) []string {
	var out []string
	for t := w.head; t != nil; t = t.waitNext {
		out = append(out, t.name)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTaskListFIFO(t *testing.T) {
	var l taskList
	a := &Task{name: "a"}
	b := &Task{name: "b"}
	c := &Task{name: "c"}
	l.pushBack(a)
	l.pushBack(b)
	l.pushBack(c)

	if got := names(l.head); !equalStrings(got, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v", got)
	}
	if l.count != 3 || l.tail != c {
		t.Fatalf("count=%d tail=%v", l.count, l.tail)
	}

	l.remove(b)
	if got := names(l.head); !equalStrings(got, []string{"a", "c"}) {
		t.Fatalf("after middle remove: %v", got)
	}
	l.remove(a)
	l.remove(c)
	if !l.empty() || l.count != 0 || l.tail != nil {
		t.Fatalf("list not empty after removals: count=%d", l.count)
	}
}

func TestTaskListRemoveForeignIsNoop(t *testing.T) {
	var l taskList
	a := &Task{name: "a"}
	l.pushBack(a)
	stranger := &Task{name: "x"}
	l.remove(stranger)
	if l.count != 1 || l.head != a {
		t.Fatal("foreign remove corrupted list")
	}
}

func TestInsertByWakeSorted(t *testing.T) {
	var l taskList
	mk := func(name string, wake uint32) *Task { return &Task{name: name, wakeTick: wake} }

	l.insertByWake(mk("c", 30))
	l.insertByWake(mk("a", 10))
	l.insertByWake(mk("b", 20))
	l.insertByWake(mk("b2", 20)) // equal wake keeps FIFO order

	if got := names(l.head); !equalStrings(got, []string{"a", "b", "b2", "c"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestInsertByWakeWrapSafe(t *testing.T) {
	var l taskList
	near := &Task{name: "near", wakeTick: ^uint32(0) - 5}
	wrapped := &Task{name: "wrapped", wakeTick: 10} // after the wrap, later than near

	l.insertByWake(wrapped)
	l.insertByWake(near)

	if got := names(l.head); !equalStrings(got, []string{"near", "wrapped"}) {
		t.Fatalf("wrap order = %v", got)
	}
}

func TestWaitListPriorityOrder(t *testing.T) {
	var w waitList
	low := &Task{name: "low", prio: 1}
	mid := &Task{name: "mid", prio: 2}
	mid2 := &Task{name: "mid2", prio: 2}
	high := &Task{name: "high", prio: 3}

	w.insert(mid)
	w.insert(low)
	w.insert(high)
	w.insert(mid2) // equal priority goes behind its peer

	if got := waitNames(&w); !equalStrings(got, []string{"high", "mid", "mid2", "low"}) {
		t.Fatalf("order = %v", got)
	}

	if got := w.pop(); got != high {
		t.Fatalf("pop = %v, want high", got.name)
	}
	if high.blockedTag != SyncNone || high.blockedOn != nil {
		t.Fatal("pop did not clear blocked-on reference")
	}
}

func TestWaitListRemoveClearsBlockedOn(t *testing.T) {
	var w waitList
	obj := &Semaphore{}
	a := &Task{name: "a", prio: 1, blockedOn: obj, blockedTag: SyncSemaphore}
	b := &Task{name: "b", prio: 2, blockedOn: obj, blockedTag: SyncSemaphore}
	w.insert(a)
	w.insert(b)

	w.remove(a)
	if a.blockedOn != nil || a.blockedTag != SyncNone {
		t.Fatal("remove did not clear blocked-on reference")
	}
	if got := waitNames(&w); !equalStrings(got, []string{"b"}) {
		t.Fatalf("remaining = %v", got)
	}
}

func TestTickComparisonWrap(t *testing.T) {
	if !tickBefore(^uint32(0), 1) {
		t.Fatal("wrap: max tick should be before 1")
	}
	if tickBefore(1, ^uint32(0)) {
		t.Fatal("wrap: 1 should not be before max tick")
	}
	if !tickReached(5, 5) {
		t.Fatal("tickReached should include equality")
	}
	if tickReached(4, 5) {
		t.Fatal("tickReached(4, 5) should be false")
	}
}
