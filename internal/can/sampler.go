package can

type samplerState int

const (
	samplerIntermission samplerState = iota
	samplerBusIdle
	samplerReceiving
)

// Sampler turns bus levels into the events a hardware bit sampler
// produces: Sof on the first dominant bit after 3 recessive bits, the
// sampled bits packed into words, and Ifs after 7 recessive bits.
type Sampler struct {
	size  int
	state samplerState
	count int // consecutive recessive bits

	word uint32
	n    int
}

// NewSampler returns a sampler packing size bits per word (1 to 32, 0
// meaning 32). The bus is assumed idle.
func NewSampler(size int) *Sampler {
	if size <= 0 || size > 32 {
		size = 32
	}
	return &Sampler{size: size, state: samplerBusIdle}
}

// Sample consumes one bus level and returns the events it completes.
func (s *Sampler) Sample(bit uint8) []Event {
	var events []Event
	switch s.state {
	case samplerIntermission:
		if bit == Dominant {
			s.count = 0
			break
		}
		s.count++
		if s.count == 3 {
			s.state = samplerBusIdle
		}
	case samplerBusIdle:
		if bit != Dominant {
			break
		}
		events = append(events, SofEvent())
		s.state = samplerReceiving
		s.count, s.word, s.n = 0, 0, 0
		events = s.shift(bit, events)
	case samplerReceiving:
		events = s.shift(bit, events)
	}
	return events
}

func (s *Sampler) shift(bit uint8, events []Event) []Event {
	s.word = s.word<<1 | uint32(bit)
	s.n++
	if bit == Recessive {
		s.count++
	} else {
		s.count = 0
	}
	if s.n == s.size {
		events = append(events, s.flush())
	}
	if s.count == eofLen {
		if s.n > 0 {
			events = append(events, s.flush())
		}
		events = append(events, IfsEvent())
		s.state = samplerIntermission
		s.count = 0
	}
	return events
}

func (s *Sampler) flush() Event {
	ev := PartialWordEvent(s.word<<(32-s.n), s.n)
	s.word, s.n = 0, 0
	return ev
}

// SampleBits feeds every bit of bits through a new sampler.
func SampleBits(bits Bits, size int) []Event {
	s := NewSampler(size)
	var events []Event
	for _, bit := range bits {
		events = append(events, s.Sample(bit)...)
	}
	return events
}
