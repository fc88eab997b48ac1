package discord

import "testing"

func TestBoundedQueuePushPop(t *testing.T) {
	q := newBoundedQueue[int](3)
	for _, v := range []int{1, 2, 3} {
		if dropped, ok := q.push(v); dropped || !ok {
			t.Fatalf("push(%d) = (%v,%v), want (false,true)", v, dropped, ok)
		}
	}
	if q.len() != 3 {
		t.Fatalf("len() = %d, want 3", q.len())
	}
	v, ok := q.pop()
	if !ok || v != 1 {
		t.Fatalf("pop() = (%d,%v), want (1,true)", v, ok)
	}
}

func TestBoundedQueueDropOldest(t *testing.T) {
	q := newBoundedQueue[int](2)
	q.push(1)
	q.push(2)
	dropped, ok := q.push(3)
	if !dropped || !ok {
		t.Fatalf("push(3) = (%v,%v), want (true,true)", dropped, ok)
	}
	v, _ := q.pop()
	if v != 2 {
		t.Errorf("pop() after overflow = %d, want 2 (oldest dropped)", v)
	}
	v, _ = q.pop()
	if v != 3 {
		t.Errorf("pop() = %d, want 3", v)
	}
}

func TestBoundedQueueDisabledAtZeroCapacity(t *testing.T) {
	q := newBoundedQueue[int](0)
	dropped, ok := q.push(1)
	if dropped || ok {
		t.Errorf("push on disabled queue = (%v,%v), want (false,false)", dropped, ok)
	}
	if q.len() != 0 {
		t.Errorf("len() = %d, want 0", q.len())
	}
}

func TestBoundedQueueNegativeCapacityTreatedAsZero(t *testing.T) {
	q := newBoundedQueue[int](-5)
	if q.capacity != 0 {
		t.Errorf("capacity = %d, want 0", q.capacity)
	}
}

func TestBoundedQueuePeekDoesNotRemove(t *testing.T) {
	q := newBoundedQueue[string](2)
	q.push("a")
	v, ok := q.peek()
	if !ok || v != "a" {
		t.Fatalf("peek() = (%q,%v), want (a,true)", v, ok)
	}
	if q.len() != 1 {
		t.Errorf("len() after peek = %d, want 1", q.len())
	}
}

func TestBoundedQueuePopEmpty(t *testing.T) {
	q := newBoundedQueue[int](2)
	if _, ok := q.pop(); ok {
		t.Error("pop() on empty queue reported ok=true")
	}
	if _, ok := q.peek(); ok {
		t.Error("peek() on empty queue reported ok=true")
	}
}

func TestBoundedQueueDrainAll(t *testing.T) {
	q := newBoundedQueue[int](5)
	q.push(1)
	q.push(2)
	q.push(3)
	drained := q.drainAll()
	if len(drained) != 3 || drained[0] != 1 || drained[2] != 3 {
		t.Errorf("drainAll() = %v, want [1 2 3]", drained)
	}
	if q.len() != 0 {
		t.Errorf("len() after drainAll = %d, want 0", q.len())
	}
	if drained := q.drainAll(); drained != nil {
		t.Errorf("drainAll() on empty queue = %v, want nil", drained)
	}
}

func TestBoundedQueueClear(t *testing.T) {
	q := newBoundedQueue[int](5)
	q.push(1)
	q.push(2)
	q.clear()
	if q.len() != 0 {
		t.Errorf("len() after clear = %d, want 0", q.len())
	}
}
