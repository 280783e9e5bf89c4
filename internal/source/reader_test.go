package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type failingReader struct {
	data string
	read bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.read {
		f.read = true
		return copy(p, f.data), nil
	}
	return 0, errors.New("device disconnected")
}

func TestReader_DeliversTrimmedLines(t *testing.T) {
	input := "first\r\n\n   \n  second  \nthird"

	var lines []string
	r := NewReader("test", strings.NewReader(input))
	if err := r.Run(context.Background(), LineHandlerFunc(func(line string) {
		lines = append(lines, line)
	})); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []string{"first", "second", "third"}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d: %q", len(expected), len(lines), lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("Line %d: expected %q, got %q", i, expected[i], lines[i])
		}
	}
	if r.Lines() != 3 {
		t.Errorf("Expected 3 counted lines, got %d", r.Lines())
	}
}

func TestReader_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var lines []string
	r := NewReader("test", strings.NewReader("a\nb\nc\n"))
	err := r.Run(ctx, LineHandlerFunc(func(line string) {
		lines = append(lines, line)
		cancel()
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("Expected delivery to stop after cancel, got %q", lines)
	}
	if r.IsReading() {
		t.Error("Reader should not be reading after Run returned")
	}
}

func TestReader_ReadError(t *testing.T) {
	var lines []string
	r := NewReader("serial", &failingReader{data: "one\ntwo\n"})
	err := r.Run(context.Background(), LineHandlerFunc(func(line string) {
		lines = append(lines, line)
	}))

	if !errors.Is(err, ErrBrokenPipe) {
		t.Errorf("Expected ErrBrokenPipe, got %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("Expected lines read before the error to be delivered, got %q", lines)
	}
}

func TestReader_DropsOversizedLines(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		max      int
		expected []string
	}{
		{
			name:     "between valid lines",
			input:    "first\n" + strings.Repeat("x", 5000) + "\nsecond\nthird\n",
			max:      4096,
			expected: []string{"first", "second", "third"},
		},
		{
			name:     "spanning several reads",
			input:    strings.Repeat("y", 64) + "\r\nok\n",
			max:      16,
			expected: []string{"ok"},
		},
		{
			name:     "unterminated at end of stream",
			input:    "ok\n" + strings.Repeat("z", 64),
			max:      16,
			expected: []string{"ok"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))

			var lines []string
			r := NewReader("serial", strings.NewReader(tc.input), WithLogger(logger), WithMaxLineLength(tc.max))
			if err := r.Run(context.Background(), LineHandlerFunc(func(line string) {
				lines = append(lines, line)
			})); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if strings.Join(lines, "|") != strings.Join(tc.expected, "|") {
				t.Errorf("Expected lines %q, got %q", tc.expected, lines)
			}
			if r.Dropped() != 1 {
				t.Errorf("Expected 1 dropped line, got %d", r.Dropped())
			}
			if out := logs.String(); !strings.Contains(out, "level=WARN") || !strings.Contains(out, "source=serial") {
				t.Errorf("Expected a warning tagged with the source, got:\n%s", out)
			}
		})
	}
}

func TestReader_LineAtLimit(t *testing.T) {
	line := strings.Repeat("x", 16)

	var lines []string
	r := NewReader("test", strings.NewReader(line+"\r\n"), WithMaxLineLength(16))
	if err := r.Run(context.Background(), LineHandlerFunc(func(l string) {
		lines = append(lines, l)
	})); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(lines) != 1 || lines[0] != line || r.Dropped() != 0 {
		t.Errorf("Expected the line at the limit to be delivered, got %q (dropped %d)", lines, r.Dropped())
	}
}

func TestReader_EOFIsNotAnError(t *testing.T) {
	r := NewReader("test", io.LimitReader(strings.NewReader("x\n"), 0))
	if err := r.Run(context.Background(), LineHandlerFunc(func(string) {})); err != nil {
		t.Errorf("Expected nil error on empty stream, got %v", err)
	}
}
