package midi

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/pkg/errors"

	"github.com/steinarvk/midistream/contextreader"
)

// VeryDetailedLogging makes both decoders log every header, track and event
// they parse.
var VeryDetailedLogging = false

const (
	fileMagic = "MThd"

	// HeaderLength is the size of the file header chunk, marker included.
	HeaderLength = 14

	headerDataLength = 6
)

const (
	FormatSingleTrack      = 0
	FormatMultiTrack       = 1
	FormatIndependentTrack = 2
)

type Header struct {
	Format         uint16
	NumberOfTracks uint16
	// Division is kept as written. With bit 15 clear it counts ticks per
	// quarter note, otherwise it is an SMPTE frame rate and ticks per frame.
	Division uint16
}

func (h *Header) String() string {
	return fmt.Sprintf("format=%d tracks=%d division=%d", h.Format, h.NumberOfTracks, h.Division)
}

// TicksPerQuarterNote returns the division when it is metrical.
func (h *Header) TicksPerQuarterNote() (int, bool) {
	if h.Division&0x8000 != 0 {
		return 0, false
	}
	return int(h.Division), true
}

// SMPTE returns frames per second and ticks per frame when the division is
// time-code based.
func (h *Header) SMPTE() (int, int, bool) {
	if h.Division&0x8000 == 0 {
		return 0, 0, false
	}
	fps := -int(int8(h.Division >> 8))
	return fps, int(h.Division & 0xff), true
}

// ParseHeader reads the file header from the start of data.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, errors.Wrapf(ErrUnexpectedEndOfBuffer, "header needs %d byte(s), have %d", HeaderLength, len(data))
	}

	if string(data[:4]) != fileMagic {
		return nil, errors.Wrapf(ErrBadMagic, "got %q", data[:4])
	}

	if n := binary.BigEndian.Uint32(data[4:8]); n != headerDataLength {
		return nil, errors.Wrapf(ErrBadHeaderLength, "got %d", n)
	}

	hdr := &Header{
		Format:         binary.BigEndian.Uint16(data[8:10]),
		NumberOfTracks: binary.BigEndian.Uint16(data[10:12]),
		Division:       binary.BigEndian.Uint16(data[12:14]),
	}

	if hdr.Format > FormatIndependentTrack {
		return nil, errors.Wrapf(ErrUnknownFileType, "got %d", hdr.Format)
	}

	if hdr.Format == FormatSingleTrack && hdr.NumberOfTracks != 1 {
		return nil, errors.Wrapf(ErrTrackCountMismatch, "format 0 with %d tracks", hdr.NumberOfTracks)
	}

	return hdr, nil
}

type Sequence struct {
	Header *Header
	Tracks []*Track

	// Warnings collects non-fatal problems found while assembling the
	// sequence.
	Warnings []error
}

func NewSequence(hdr *Header) *Sequence {
	return &Sequence{Header: hdr}
}

// AddTrack appends a track. Going past the number of tracks declared in the
// header still adds the track; the returned warning is also kept in
// s.Warnings.
func (s *Sequence) AddTrack(t *Track) error {
	var warning error
	if len(s.Tracks) >= int(s.Header.NumberOfTracks) {
		warning = errors.Wrapf(ErrTooManyTracks, "adding track %d, header declares %d", len(s.Tracks)+1, s.Header.NumberOfTracks)
		s.Warnings = append(s.Warnings, warning)
	}

	s.Tracks = append(s.Tracks, t)

	return warning
}

// OnEvents calls callback for every event of a track, along with the
// absolute tick at which it occurs.
func (s *Sequence) OnEvents(trackNo int, callback func(uint64, Event) error) error {
	if trackNo < 0 || trackNo >= len(s.Tracks) {
		return errors.Errorf("no such track: %d (there are %d tracks)", trackNo, len(s.Tracks))
	}

	var ticks uint64

	for i, evt := range s.Tracks[trackNo].Events {
		ticks += evt.Delta
		if err := callback(ticks, evt); err != nil {
			return errors.Wrapf(err, "error handling event #%d at tick %d", i, ticks)
		}
	}

	return nil
}

func hasTrackMagic(data []byte) bool {
	return len(data) >= TrackHeaderLength && string(data[:4]) == trackMagic
}

// decodeTrack decodes one whole track from the start of data and returns it
// with the number of bytes it used.
func decodeTrack(data []byte) (*Track, int, error) {
	trk, err := ParseTrackHeader(data)
	if err != nil {
		return nil, 0, err
	}

	offset := TrackHeaderLength
	var runningStatus byte

	for !trk.Complete() {
		eventNo := len(trk.Events)

		delta, n, err := DecodeVarint(data[offset:])
		if errors.Is(err, ErrTruncated) {
			return nil, 0, errors.Wrapf(ErrUnexpectedEndOfBuffer, "event %d: delta time at offset %d", eventNo, offset)
		}
		if err != nil {
			return nil, 0, errors.Wrapf(err, "event %d: delta time at offset %d", eventNo, offset)
		}

		msg, ok, err := ParseMessage(data[offset+n:], runningStatus)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "event %d at offset %d", eventNo, offset)
		}
		if !ok {
			return nil, 0, errors.Wrapf(ErrUnexpectedEndOfBuffer, "event %d at offset %d", eventNo, offset)
		}

		if err := trk.AddEvent(delta, msg); err != nil {
			return nil, 0, err
		}

		if VeryDetailedLogging {
			log.Printf("decode: event %d: +%d %v", eventNo, delta, msg)
		}

		offset += n + msg.Length
		runningStatus = msg.Status
	}

	return trk, offset, nil
}

// Decode decodes a complete file held in data. Running out of bytes before
// the last declared track ends is an error. Chunks beginning with 'MTrk'
// after the declared tracks are decoded too and reported in Warnings; any
// other trailing bytes are ignored.
func Decode(data []byte) (*Sequence, error) {
	hdr, err := ParseHeader(data)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing header")
	}

	if VeryDetailedLogging {
		log.Printf("decode: header %v", hdr)
	}

	seq := NewSequence(hdr)
	offset := HeaderLength

	for i := 0; i < int(hdr.NumberOfTracks) || hasTrackMagic(data[offset:]); i++ {
		trk, n, err := decodeTrack(data[offset:])
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing track %d at offset %d", i, offset)
		}

		if warning := seq.AddTrack(trk); warning != nil && VeryDetailedLogging {
			log.Printf("decode: %v", warning)
		}

		offset += n
	}

	return seq, nil
}

// Parse reads a complete file from r, decoding it incrementally as it
// arrives.
func Parse(r io.Reader) (*Sequence, error) {
	ctxR := contextreader.New(r)
	d := NewDecoder(nil)

	buf := make([]byte, 4096)
	for {
		n, err := ctxR.Read(buf)
		if n > 0 {
			if serr := d.Submit(buf[:n]); serr != nil {
				return nil, ctxR.WrapError(serr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ctxR.WrapError(errors.Wrap(err, "read error"))
		}
	}

	if !d.Done() {
		return nil, ctxR.WrapError(errors.Wrapf(ErrUnexpectedEndOfBuffer, "%d byte(s) left undecoded", d.Buffered()))
	}

	return d.Sequence(), nil
}
