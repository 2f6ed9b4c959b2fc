package midi

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

const (
	trackMagic = "MTrk"

	// TrackHeaderLength is the size of the marker and size field that open
	// every track.
	TrackHeaderLength = 8
)

// Event is a message and the ticks elapsed since the previous event of the
// same track.
type Event struct {
	Delta   uint64
	Message *Message
}

func (e Event) String() string {
	return fmt.Sprintf("+%d %v", e.Delta, e.Message)
}

type Track struct {
	// Size is the track length declared in the file. Writers get it wrong
	// often enough that it is never used to find the end of a track.
	Size   uint32
	Events []Event

	complete bool
}

// ParseTrackHeader reads the track marker and declared size from the start
// of data, which must hold at least TrackHeaderLength bytes.
func ParseTrackHeader(data []byte) (*Track, error) {
	if len(data) < TrackHeaderLength {
		return nil, errors.Wrapf(ErrUnexpectedEndOfBuffer, "track header needs %d byte(s), have %d", TrackHeaderLength, len(data))
	}

	if string(data[:4]) != trackMagic {
		return nil, errors.Wrapf(ErrBadTrackMagic, "got %q", data[:4])
	}

	return &Track{
		Size: binary.BigEndian.Uint32(data[4:8]),
	}, nil
}

// Length is the declared size of the track including its header.
func (t *Track) Length() int64 {
	return int64(t.Size) + TrackHeaderLength
}

// Complete reports whether the track has received its end-of-track event.
func (t *Track) Complete() bool {
	return t.complete
}

// AddEvent appends an event, completing the track if msg is an end-of-track
// message. Appending to a complete track returns ErrTrackComplete.
func (t *Track) AddEvent(delta uint64, msg *Message) error {
	if t.complete {
		return errors.Wrapf(ErrTrackComplete, "adding %v", msg)
	}

	t.Events = append(t.Events, Event{Delta: delta, Message: msg})

	if msg.IsEndOfTrack() {
		t.complete = true
	}

	return nil
}
