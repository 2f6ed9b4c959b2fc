package midi

import (
	"log"

	"github.com/pkg/errors"
)

type decoderState int

const (
	awaitingFileHeader  decoderState = iota
	awaitingTrackHeader decoderState = iota
	awaitingEvent       decoderState = iota
	// All declared tracks have ended. Further 'MTrk' chunks are still
	// decoded; anything else is discarded.
	decoderDone decoderState = iota
)

func (s decoderState) String() string {
	switch s {
	case awaitingFileHeader:
		return "awaiting file header"
	case awaitingTrackHeader:
		return "awaiting track header"
	case awaitingEvent:
		return "awaiting event"
	case decoderDone:
		return "done"
	}
	return "invalid"
}

// Handler receives the notifications of a Decoder, in stream order. Each
// header, track and event is reported exactly once.
type Handler interface {
	FileStarted(hdr *Header)
	TrackStarted(t *Track)
	EventDecoded(delta uint64, msg *Message)
	TrackEnded(t *Track)
	Warning(err error)
	FatalError(err error)
}

// HandlerFuncs implements Handler with optional callbacks; nil fields are
// skipped.
type HandlerFuncs struct {
	OnFileStarted  func(hdr *Header)
	OnTrackStarted func(t *Track)
	OnEvent        func(delta uint64, msg *Message)
	OnTrackEnded   func(t *Track)
	OnWarning      func(err error)
	OnFatalError   func(err error)
}

func (h HandlerFuncs) FileStarted(hdr *Header) {
	if h.OnFileStarted != nil {
		h.OnFileStarted(hdr)
	}
}

func (h HandlerFuncs) TrackStarted(t *Track) {
	if h.OnTrackStarted != nil {
		h.OnTrackStarted(t)
	}
}

func (h HandlerFuncs) EventDecoded(delta uint64, msg *Message) {
	if h.OnEvent != nil {
		h.OnEvent(delta, msg)
	}
}

func (h HandlerFuncs) TrackEnded(t *Track) {
	if h.OnTrackEnded != nil {
		h.OnTrackEnded(t)
	}
}

func (h HandlerFuncs) Warning(err error) {
	if h.OnWarning != nil {
		h.OnWarning(err)
	}
}

func (h HandlerFuncs) FatalError(err error) {
	if h.OnFatalError != nil {
		h.OnFatalError(err)
	}
}

// Decoder decodes a file delivered in chunks of any size. Submit never
// blocks: it decodes everything the buffered bytes allow and keeps the rest
// until more data arrives. The result of decoding a stream does not depend
// on where it was split into chunks.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	handler Handler
	state   decoderState

	buf      []byte
	consumed int64

	seq           *Sequence
	track         *Track
	runningStatus byte
	endedTracks   int
	discarding    bool

	err error
}

// NewDecoder returns a decoder reporting to h, which may be nil.
func NewDecoder(h Handler) *Decoder {
	if h == nil {
		h = HandlerFuncs{}
	}
	return &Decoder{handler: h}
}

// Submit appends chunk to the buffered input and decodes as far as
// possible. A format error is reported to the handler once and returned;
// the decoder then stays halted and later calls return ErrDecoderHalted.
func (d *Decoder) Submit(chunk []byte) error {
	if d.err != nil {
		return errors.Wrapf(ErrDecoderHalted, "earlier error: %v", d.err)
	}

	d.buf = append(d.buf, chunk...)

	for {
		progressed, err := d.step()
		if err != nil {
			d.err = errors.Wrapf(err, "at stream offset %d (%s)", d.consumed, d.state)
			d.handler.FatalError(d.err)
			return d.err
		}
		if !progressed {
			return nil
		}
	}
}

func (d *Decoder) consume(n int) {
	d.buf = d.buf[n:]
	d.consumed += int64(n)
	if len(d.buf) == 0 {
		d.buf = nil
	}
}

// step makes at most one unit of progress. It returns false when the
// buffered bytes are not enough for the current state.
func (d *Decoder) step() (bool, error) {
	switch d.state {
	case awaitingFileHeader:
		if len(d.buf) < HeaderLength {
			return false, nil
		}
		hdr, err := ParseHeader(d.buf)
		if err != nil {
			return false, err
		}
		if VeryDetailedLogging {
			log.Printf("stream: header %v", hdr)
		}
		d.seq = NewSequence(hdr)
		d.consume(HeaderLength)
		d.handler.FileStarted(hdr)
		d.afterTrack()
		return true, nil

	case awaitingTrackHeader:
		if len(d.buf) < TrackHeaderLength {
			return false, nil
		}
		return true, d.startTrack()

	case awaitingEvent:
		return d.decodeEvent()

	case decoderDone:
		switch {
		case d.discarding:
			d.consume(len(d.buf))
			return false, nil
		case len(d.buf) < len(trackMagic):
			return false, nil
		case string(d.buf[:len(trackMagic)]) != trackMagic:
			if VeryDetailedLogging {
				log.Printf("stream: discarding trailing bytes from offset %d", d.consumed)
			}
			d.discarding = true
			d.consume(len(d.buf))
			return false, nil
		case len(d.buf) < TrackHeaderLength:
			return false, nil
		}
		return true, d.startTrack()
	}

	panic(errors.Errorf("decoder in illegal state: %v", d.state))
}

func (d *Decoder) startTrack() error {
	trk, err := ParseTrackHeader(d.buf)
	if err != nil {
		return err
	}
	if VeryDetailedLogging {
		log.Printf("stream: track %d, declared size %d", len(d.seq.Tracks), trk.Size)
	}

	d.consume(TrackHeaderLength)
	if warning := d.seq.AddTrack(trk); warning != nil {
		d.handler.Warning(warning)
	}
	d.track = trk
	d.runningStatus = 0
	d.state = awaitingEvent
	d.handler.TrackStarted(trk)

	return nil
}

func (d *Decoder) decodeEvent() (bool, error) {
	// At least one delta byte and one status or data byte.
	if len(d.buf) < 2 {
		return false, nil
	}

	delta, n, err := DecodeVarint(d.buf)
	if errors.Is(err, ErrTruncated) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "event %d: delta time", len(d.track.Events))
	}

	msg, ok, err := ParseMessage(d.buf[n:], d.runningStatus)
	if err != nil {
		return false, errors.Wrapf(err, "event %d", len(d.track.Events))
	}
	if !ok {
		return false, nil
	}

	if err := d.track.AddEvent(delta, msg); err != nil {
		return false, err
	}
	d.consume(n + msg.Length)
	d.runningStatus = msg.Status

	if VeryDetailedLogging {
		log.Printf("stream: event +%d %v", delta, msg)
	}
	d.handler.EventDecoded(delta, msg)

	if msg.IsEndOfTrack() {
		trk := d.track
		d.track = nil
		d.runningStatus = 0
		d.endedTracks++
		d.handler.TrackEnded(trk)
		d.afterTrack()
	}

	return true, nil
}

func (d *Decoder) afterTrack() {
	if d.endedTracks >= int(d.seq.Header.NumberOfTracks) {
		d.state = decoderDone
	} else {
		d.state = awaitingTrackHeader
	}
}

// Sequence returns everything decoded so far, or nil before the file
// header has been read. The last track may still be incomplete.
func (d *Decoder) Sequence() *Sequence {
	return d.seq
}

// Buffered returns the number of bytes received but not yet decoded.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Done reports whether every declared track has been decoded and no extra
// track is in progress.
func (d *Decoder) Done() bool {
	return d.err == nil && d.state == decoderDone
}

// Err returns the fatal error that halted the decoder, if any.
func (d *Decoder) Err() error {
	return d.err
}
