// Package input turns raw terminal bytes into discrete key events.
package input

import (
	"bufio"
	"unicode"
)

// Key identifies a decoded key press.
type Key int

const (
	KeyRune Key = iota // Printable character, see Event.Rune
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeySpace
	KeyEscape
	KeyBackspace
)

// Event is one key press.
type Event struct {
	Key  Key
	Rune rune // Lowercased, set for KeyRune only
}

// Input is everything pressed since the previous read.
type Input struct {
	Events  []Event
	Pressed []byte
	Closed  bool // The underlying reader returned an error
}

// Has reports whether k was pressed.
func (in Input) Has(k Key) bool {
	for _, ev := range in.Events {
		if ev.Key == k {
			return true
		}
	}
	return false
}

// HasRune reports whether the character r was pressed, ignoring case.
func (in Input) HasRune(r rune) bool {
	r = unicode.ToLower(r)
	for _, ev := range in.Events {
		if ev.Key == KeyRune && ev.Rune == r {
			return true
		}
	}
	return false
}

// Stream delivers input bytes via a channel.
type Stream struct {
	ch     chan byte
	closed bool
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 128)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// ReadInput drains all available bytes from the stream without blocking and
// decodes them.
func ReadInput(s *Stream) Input {
	var buf []byte
drain:
	for !s.closed {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}
	return Input{Events: Parse(buf), Pressed: buf, Closed: s.closed}
}

// Parse decodes buf into key events. Arrow keys arrive as CSI sequences
// (ESC [ A..D); a lone ESC is reported as KeyEscape. Letter aliases follow
// the usual terminal conventions: WASD and HJKL move the selection.
func Parse(buf []byte) []Event {
	var events []Event
	for i := 0; i < len(buf); i++ {
		b := buf[i]

		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			if k, ok := arrow(buf[i+2]); ok {
				events = append(events, Event{Key: k})
				i += 2
				continue
			}
		}

		switch b {
		case '\x1b':
			events = append(events, Event{Key: KeyEscape})
		case '\r', '\n':
			events = append(events, Event{Key: KeyEnter})
		case ' ':
			events = append(events, Event{Key: KeySpace})
		case '\b', '\x7f':
			events = append(events, Event{Key: KeyBackspace})
		case 'w', 'W', 'k', 'K':
			events = append(events, Event{Key: KeyUp})
		case 's', 'S', 'j', 'J':
			events = append(events, Event{Key: KeyDown})
		case 'a', 'A', 'h', 'H':
			events = append(events, Event{Key: KeyLeft})
		case 'd', 'D', 'l', 'L':
			events = append(events, Event{Key: KeyRight})
		default:
			if b >= 0x20 && b < 0x7f {
				events = append(events, Event{Key: KeyRune, Rune: unicode.ToLower(rune(b))})
			}
		}
	}
	return events
}

func arrow(b byte) (Key, bool) {
	switch b {
	case 'A':
		return KeyUp, true
	case 'B':
		return KeyDown, true
	case 'C':
		return KeyRight, true
	case 'D':
		return KeyLeft, true
	}
	return 0, false
}
