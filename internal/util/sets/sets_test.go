package sets

import "testing"

func TestSetBasics(t *testing.T) {
	s := New("a", "b")
	if !s.Has("a") || !s.Has("b") {
		t.Fatal("seed values missing")
	}
	s.Add("c")
	if !s.Has("c") {
		t.Fatal("Add failed")
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 members, got %d", s.Len())
	}
	s.Delete("a")
	if s.Has("a") {
		t.Fatal("Delete failed")
	}
}
