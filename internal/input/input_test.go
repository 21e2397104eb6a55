package input

import (
	"bufio"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Event
	}{
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []Event{{Key: KeyUp}, {Key: KeyDown}, {Key: KeyRight}, {Key: KeyLeft}}},
		{"letter aliases", "wjHd", []Event{{Key: KeyUp}, {Key: KeyDown}, {Key: KeyLeft}, {Key: KeyRight}}},
		{"enter and space", "\r \n", []Event{{Key: KeyEnter}, {Key: KeySpace}, {Key: KeyEnter}}},
		{"lone escape", "\x1b", []Event{{Key: KeyEscape}}},
		{"runes lowercased", "PqY", []Event{{Key: KeyRune, Rune: 'p'}, {Key: KeyRune, Rune: 'q'}, {Key: KeyRune, Rune: 'y'}}},
		{"control bytes dropped", "\x01\x02r", []Event{{Key: KeyRune, Rune: 'r'}}},
		{"unknown csi", "\x1b[Zx", []Event{{Key: KeyEscape}, {Key: KeyRune, Rune: '['}, {Key: KeyRune, Rune: 'z'}, {Key: KeyRune, Rune: 'x'}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse([]byte(tt.in))
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInputHas(t *testing.T) {
	in := Input{Events: Parse([]byte("\x1b[Bp"))}
	if !in.Has(KeyDown) || in.Has(KeyUp) {
		t.Fatalf("unexpected key set %v", in.Events)
	}
	if !in.HasRune('P') || in.HasRune('q') {
		t.Fatalf("unexpected runes %v", in.Events)
	}
}

func TestReadInputReportsClosed(t *testing.T) {
	s := StartStream(bufio.NewReader(strings.NewReader("q")))

	deadline := time.Now().Add(time.Second)
	var seen []Event
	for time.Now().Before(deadline) {
		in := ReadInput(s)
		seen = append(seen, in.Events...)
		if in.Closed {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if !slices.Equal(seen, []Event{{Key: KeyRune, Rune: 'q'}}) {
		t.Fatalf("unexpected events %v", seen)
	}
	if !ReadInput(s).Closed {
		t.Fatal("stream should stay closed")
	}
}
