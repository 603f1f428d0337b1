package console

import (
	"errors"
	"testing"
)

type recordingSink struct {
	lines []string
	fail  bool
}

func (s *recordingSink) WriteString(str string) error {
	if s.fail {
		return errors.New("sink broken")
	}
	s.lines = append(s.lines, str)
	return nil
}

func TestWriteLineFansOutToAllSinks(t *testing.T) {
	serial := &recordingSink{}
	framebuffer := &recordingSink{}

	c := New()
	c.AddSink(serial)
	c.AddSink(framebuffer)
	c.WriteLine("hello")

	for _, sink := range []*recordingSink{serial, framebuffer} {
		if len(sink.lines) != 2 || sink.lines[0] != "hello" || sink.lines[1] != "\n" {
			t.Fatalf("sink saw %q", sink.lines)
		}
	}
}

func TestAddSinkIgnoresNil(t *testing.T) {
	c := New()
	c.AddSink(nil)
	c.WriteLine("no sinks, no panic")
}

func TestWriteLineSwallowsSinkErrors(t *testing.T) {
	broken := &recordingSink{fail: true}
	working := &recordingSink{}

	c := New()
	c.AddSink(broken)
	c.AddSink(working)
	c.WriteLine("still delivered")

	if len(working.lines) != 2 || working.lines[0] != "still delivered" {
		t.Fatalf("working sink saw %q", working.lines)
	}
}
