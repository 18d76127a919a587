package rules

import (
	"errors"
	"testing"
)

func TestCardStackPushPop(t *testing.T) {
	var cs CardStack
	cs.Push(10)
	cs.Push(11)

	top, ok := cs.Peek()
	if !ok || top != 11 {
		t.Fatalf("expected 11 on top, got %d", top)
	}

	id, err := cs.Pop()
	if err != nil {
		t.Fatalf("unexpected error popping top: %v", err)
	}
	if id != 11 {
		t.Fatalf("expected LIFO order (11), got %d", id)
	}
	id, err = cs.Pop()
	if err != nil || id != 10 {
		t.Fatalf("expected 10, got %d (%v)", id, err)
	}

	if _, err := cs.Pop(); !errors.Is(err, ErrStackEmpty) {
		t.Fatalf("expected ErrStackEmpty, got %v", err)
	}
	if !cs.IsEmpty() {
		t.Fatalf("expected empty stack")
	}
}

func TestCardStackBelowAndRemove(t *testing.T) {
	cs := CardStack{1, 2, 3}

	if below, ok := cs.Below(3); !ok || below != 2 {
		t.Fatalf("expected 2 below 3, got %d", below)
	}
	if _, ok := cs.Below(1); ok {
		t.Fatalf("nothing is below the bottom card")
	}

	if !cs.Remove(2) {
		t.Fatalf("expected to remove 2")
	}
	if cs.Contains(2) || len(cs.List()) != 2 {
		t.Fatalf("unexpected stack after remove: %v", cs)
	}
	if cs.Remove(99) {
		t.Fatalf("removing a missing card must fail")
	}
}
