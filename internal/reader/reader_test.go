package reader

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLineReader_Next(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantTexts   []string
		wantNumbers []int
	}{
		{
			name:        "multiple lines",
			input:       "line1\nline2\nline3",
			wantTexts:   []string{"line1", "line2", "line3"},
			wantNumbers: []int{1, 2, 3},
		},
		{
			name:        "empty input",
			input:       "",
			wantTexts:   nil,
			wantNumbers: nil,
		},
		{
			name:        "single line without newline",
			input:       "only line",
			wantTexts:   []string{"only line"},
			wantNumbers: []int{1},
		},
		{
			name:        "windows line endings stripped",
			input:       "a\r\nb\r\n",
			wantTexts:   []string{"a", "b"},
			wantNumbers: []int{1, 2},
		},
		{
			name:        "blank lines keep numbering",
			input:       "a\n\nc\n",
			wantTexts:   []string{"a", "", "c"},
			wantNumbers: []int{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(strings.NewReader(tt.input))
			var texts []string
			var numbers []int
			for {
				line, err := r.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Next() error = %v", err)
				}
				texts = append(texts, line.Text)
				numbers = append(numbers, line.Number)
			}

			if len(texts) != len(tt.wantTexts) {
				t.Fatalf("got %d lines, want %d", len(texts), len(tt.wantTexts))
			}
			for i := range texts {
				if texts[i] != tt.wantTexts[i] {
					t.Errorf("line %d text = %q, want %q", i, texts[i], tt.wantTexts[i])
				}
				if numbers[i] != tt.wantNumbers[i] {
					t.Errorf("line %d number = %d, want %d", i, numbers[i], tt.wantNumbers[i])
				}
			}
		})
	}
}

func TestLineReader_EOFIsSticky(t *testing.T) {
	r := New(strings.NewReader("one\n"))
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := r.Next(); err != io.EOF {
			t.Fatalf("Next() after exhaustion = %v, want io.EOF", err)
		}
	}
}

func TestLineReader_NextAfterClose(t *testing.T) {
	r := New(strings.NewReader("one\ntwo\n"))
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, ErrClosed) {
		t.Errorf("Next() after Close = %v, want ErrClosed", err)
	}
}

func TestLineReader_MaxLineSize(t *testing.T) {
	long := strings.Repeat("x", 256)
	r := New(strings.NewReader(long+"\n"), WithMaxLineSize(64))
	_, err := r.Next()
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Errorf("Next() on oversized line = %v, want bufio.ErrTooLong", err)
	}
}
