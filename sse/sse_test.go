package sse

import "testing"

func TestFormatWithGroup(t *testing.T) {
	got := Format(Event{Group: "status", Content: "line1\nline2"}, 1000)
	want := "id: 1000\r\nevent: status\r\ndata: line1\r\ndata: line2\r\n\r\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFormatWithoutGroup(t *testing.T) {
	got := Format(Event{Content: "hi"}, 42)
	want := "id: 42\r\ndata: hi\r\n\r\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
