package timewindow

import (
	"reflect"
	"testing"
	"time"
)

func w(startHour, startMin, endHour, endMin int) Window {
	day := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	return Window{
		Start: day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute),
		End:   day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute),
	}
}

func TestNew(t *testing.T) {
	day := time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC)

	if _, err := New(day, day.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := New(day, day); err != ErrInvalidWindow {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}

	if _, err := New(day.Add(time.Hour), day); err != ErrInvalidWindow {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Window
		expected bool
	}{
		{"partial overlap", w(9, 0, 10, 0), w(9, 30, 10, 30), true},
		{"touching endpoints do not overlap", w(9, 0, 10, 0), w(10, 0, 11, 0), false},
		{"disjoint", w(9, 0, 10, 0), w(11, 0, 12, 0), false},
		{"contained", w(9, 0, 12, 0), w(10, 0, 11, 0), true},
		{"identical", w(9, 0, 10, 0), w(9, 0, 10, 0), true},
	}

	for _, c := range cases {
		if got := c.a.Overlaps(c.b); got != c.expected {
			t.Fatalf("%s: expected %v, got %v", c.name, c.expected, got)
		}
		if got := c.b.Overlaps(c.a); got != c.expected {
			t.Fatalf("%s (reversed): expected %v, got %v", c.name, c.expected, got)
		}
	}
}

func TestContains(t *testing.T) {
	block := w(9, 0, 17, 0)

	cases := []struct {
		name     string
		inner    Window
		expected bool
	}{
		{"fully inside", w(10, 0, 11, 0), true},
		{"equal to block", w(9, 0, 17, 0), true},
		{"starts before", w(8, 30, 10, 0), false},
		{"ends after", w(16, 30, 17, 30), false},
		{"fully outside", w(18, 0, 19, 0), false},
	}

	for _, c := range cases {
		if got := block.Contains(c.inner); got != c.expected {
			t.Fatalf("%s: expected %v, got %v", c.name, c.expected, got)
		}
	}
}

func TestSubtract(t *testing.T) {
	block := w(9, 0, 17, 0)

	cases := []struct {
		name     string
		occupied []Window
		expected []Window
	}{
		{
			name:     "empty occupied returns block unchanged",
			occupied: nil,
			expected: []Window{block},
		},
		{
			name:     "block minus itself is empty",
			occupied: []Window{block},
			expected: []Window{},
		},
		{
			name:     "single occupied in the middle",
			occupied: []Window{w(12, 0, 13, 0)},
			expected: []Window{w(9, 0, 12, 0), w(13, 0, 17, 0)},
		},
		{
			name:     "occupied at the start",
			occupied: []Window{w(9, 0, 10, 0)},
			expected: []Window{w(10, 0, 17, 0)},
		},
		{
			name:     "occupied at the end",
			occupied: []Window{w(16, 0, 17, 0)},
			expected: []Window{w(9, 0, 16, 0)},
		},
		{
			name:     "unsorted overlapping occupied windows are merged",
			occupied: []Window{w(13, 0, 14, 30), w(10, 0, 11, 0), w(14, 0, 15, 0)},
			expected: []Window{w(9, 0, 10, 0), w(11, 0, 13, 0), w(15, 0, 17, 0)},
		},
		{
			name:     "occupied extends beyond both ends",
			occupied: []Window{w(8, 0, 18, 0)},
			expected: []Window{},
		},
		{
			name:     "occupied partially before block",
			occupied: []Window{w(8, 0, 9, 30)},
			expected: []Window{w(9, 30, 17, 0)},
		},
		{
			name:     "occupied partially after block",
			occupied: []Window{w(16, 30, 18, 0)},
			expected: []Window{w(9, 0, 16, 30)},
		},
		{
			name:     "occupied entirely outside block is ignored",
			occupied: []Window{w(7, 0, 8, 0), w(18, 0, 19, 0)},
			expected: []Window{block},
		},
		{
			name:     "touching occupied leaves no degenerate gap",
			occupied: []Window{w(9, 0, 12, 0), w(12, 0, 17, 0)},
			expected: []Window{},
		},
	}

	for _, c := range cases {
		got := Subtract(block, c.occupied)
		if !reflect.DeepEqual(got, c.expected) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.expected, got)
		}
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		name     string
		window   Window
		size     time.Duration
		expected []Window
	}{
		{
			name:     "exact fit",
			window:   w(9, 0, 10, 0),
			size:     30 * time.Minute,
			expected: []Window{w(9, 0, 9, 30), w(9, 30, 10, 0)},
		},
		{
			name:     "trailing remainder is dropped",
			window:   w(9, 0, 10, 45),
			size:     30 * time.Minute,
			expected: []Window{w(9, 0, 9, 30), w(9, 30, 10, 0), w(10, 0, 10, 30)},
		},
		{
			name:     "window shorter than slot",
			window:   w(9, 0, 9, 15),
			size:     30 * time.Minute,
			expected: []Window{},
		},
		{
			name:     "zero size yields nothing",
			window:   w(9, 0, 10, 0),
			size:     0,
			expected: nil,
		},
	}

	for _, c := range cases {
		got := Split(c.window, c.size)
		if !reflect.DeepEqual(got, c.expected) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.expected, got)
		}
	}
}
