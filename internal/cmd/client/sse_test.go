package client

import (
	"errors"
	"strings"
	"testing"
)

func TestReadSSEFrames(t *testing.T) {
	body := "event: event\ndata: {\"id\":1}\n\n" +
		"event: replay_complete\ndata: {\"watermark\":1}\n\n" +
		": keep-alive\n\n" +
		"event: event\ndata: {\"id\":2}\n\n"

	var got [][2]string
	err := readSSE(strings.NewReader(body), func(event, data string) error {
		got = append(got, [2]string{event, data})
		return nil
	})
	if err != nil {
		t.Fatalf("readSSE: %v", err)
	}
	want := [][2]string{
		{"event", `{"id":1}`},
		{"replay_complete", `{"watermark":1}`},
		{"event", `{"id":2}`},
	}
	if len(got) != len(want) {
		t.Fatalf("frames: got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestReadSSEMultilineData(t *testing.T) {
	body := "event: event\ndata: line1\ndata: line2\n\n"
	var data string
	if err := readSSE(strings.NewReader(body), func(_, d string) error {
		data = d
		return nil
	}); err != nil {
		t.Fatalf("readSSE: %v", err)
	}
	if data != "line1\nline2" {
		t.Fatalf("data: %q", data)
	}
}

func TestReadSSECallbackErrorStops(t *testing.T) {
	body := "event: error\ndata: boom\n\nevent: event\ndata: x\n\n"
	calls := 0
	sentinel := errors.New("stop")
	err := readSSE(strings.NewReader(body), func(event, _ string) error {
		calls++
		if event == "error" {
			return sentinel
		}
		return nil
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("want sentinel, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("callback calls: %d", calls)
	}
}
