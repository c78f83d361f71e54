package can

import "fmt"

type EventKind int

const (
	// EventSof marks a dominant bit after at least 3 recessive bits.
	EventSof EventKind = iota
	// EventWord carries sampled bits, the first one after Sof being the
	// SOF bit itself.
	EventWord
	// EventIfs marks 7 consecutive recessive bits.
	EventIfs
)

func (k EventKind) String() string {
	switch k {
	case EventSof:
		return "sof"
	case EventWord:
		return "word"
	case EventIfs:
		return "ifs"
	}
	return "unknown"
}

// Event is one notification from the bit sampler.
type Event struct {
	Kind EventKind
	Word uint32 // raw bits, oldest in bit 31
	Len  int    // number of valid bits in Word, from the top
}

func SofEvent() Event { return Event{Kind: EventSof} }

func IfsEvent() Event { return Event{Kind: EventIfs} }

func WordEvent(w uint32) Event {
	return Event{Kind: EventWord, Word: w, Len: 32}
}

// PartialWordEvent carries the n oldest bits in the top of w, as left by a
// shift register flushed before it filled up.
func PartialWordEvent(w uint32, n int) Event {
	return Event{Kind: EventWord, Word: w, Len: wordLen(n)}
}

func wordLen(n int) int {
	return min(max(n, 0), 32)
}

// Bits returns the raw bits of a word event in sampling order.
func (e Event) Bits() Bits {
	if e.Kind != EventWord {
		return nil
	}
	bits := make(Bits, wordLen(e.Len))
	for i := range bits {
		bits[i] = uint8((e.Word >> (31 - i)) & 1)
	}
	return bits
}

func (e Event) String() string {
	if e.Kind != EventWord {
		return e.Kind.String()
	}
	if e.Len == 32 {
		return fmt.Sprintf("word %08X", e.Word)
	}
	return fmt.Sprintf("word %08X/%d", e.Word, e.Len)
}
