package midi

import "io"

type simpleNote struct {
	delta    uint64
	on       bool
	key      int
	velocity int
}

// SimpleWriter builds a single-track file of notes on channel 0.
type SimpleWriter struct {
	division uint16
	pending  uint64
	notes    []simpleNote
}

func NewSimpleWriter(division uint16) *SimpleWriter {
	return &SimpleWriter{division: division}
}

// Play holds keys down together for duration ticks.
func (s *SimpleWriter) Play(keys []int, velocity int, duration uint64) {
	for _, key := range keys {
		s.add(true, key, velocity)
	}
	s.TimeDelta(duration)
	for _, key := range keys {
		s.add(false, key, velocity)
	}
}

func (s *SimpleWriter) add(on bool, key, velocity int) {
	s.notes = append(s.notes, simpleNote{
		delta:    s.pending,
		on:       on,
		key:      key,
		velocity: velocity,
	})
	s.pending = 0
}

func (s *SimpleWriter) TimeDelta(duration uint64) {
	s.pending += duration
}

func (s *SimpleWriter) Write(out io.Writer) error {
	w := NewWriter(out)
	if err := w.StartFile(FormatSingleTrack, 1, s.division); err != nil {
		return err
	}

	return w.WriteTrack(func(tw *Writer) error {
		for _, n := range s.notes {
			var err error
			if n.on {
				err = tw.NoteOn(n.delta, 0, n.key, n.velocity)
			} else {
				err = tw.NoteOff(n.delta, 0, n.key, n.velocity)
			}
			if err != nil {
				return err
			}
		}
		return tw.EndOfTrack(s.pending)
	})
}
