package midi

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// Writer serializes a file to an io.Writer as it is produced. Within a
// track, an event whose status byte repeats the previous one is written
// without it (running status), exactly the form the decoders read back.
type Writer struct {
	w          io.Writer
	lastStatus byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) write(data []byte) error {
	if _, err := w.w.Write(data); err != nil {
		return errors.Wrap(err, "write error")
	}
	return nil
}

// StartFile writes the file header.
func (w *Writer) StartFile(format, numberOfTracks, division uint16) error {
	if format > FormatIndependentTrack {
		return errors.Wrapf(ErrInvalidFileType, "got %d", format)
	}

	if numberOfTracks < 1 {
		return errors.Wrap(ErrTrackCountMismatch, "must have at least one track")
	}

	if format == FormatSingleTrack && numberOfTracks != 1 {
		return errors.Wrapf(ErrTrackCountMismatch, "format 0 with %d tracks", numberOfTracks)
	}

	buf := make([]byte, HeaderLength)
	copy(buf, fileMagic)
	binary.BigEndian.PutUint32(buf[4:], headerDataLength)
	binary.BigEndian.PutUint16(buf[8:], format)
	binary.BigEndian.PutUint16(buf[10:], numberOfTracks)
	binary.BigEndian.PutUint16(buf[12:], division)

	return w.write(buf)
}

// StartTrack writes a track header declaring size bytes; 0 is fine when the
// size is not known yet. Running status starts over.
func (w *Writer) StartTrack(size uint32) error {
	w.lastStatus = 0

	buf := make([]byte, TrackHeaderLength)
	copy(buf, trackMagic)
	binary.BigEndian.PutUint32(buf[4:], size)

	return w.write(buf)
}

// WriteTrack writes a whole track with its exact size. The events are
// produced by fn on a writer of their own.
func (w *Writer) WriteTrack(fn func(tw *Writer) error) error {
	var body bytes.Buffer
	if err := fn(NewWriter(&body)); err != nil {
		return err
	}

	if err := w.StartTrack(uint32(body.Len())); err != nil {
		return err
	}

	return w.write(body.Bytes())
}

// Event writes one event. Data bytes of channel messages must be 0-127;
// meta and system payloads are written as given.
func (w *Writer) Event(delta uint64, status byte, data []byte) error {
	if status < 0x80 {
		return errors.Wrapf(ErrInvalidStatus, "got %02x", status)
	}

	if status < 0xF0 {
		for i, b := range data {
			if b > 0x7F {
				return errors.Wrapf(ErrInvalidDataByte, "data byte %d of %02x message is %02x", i, status, b)
			}
		}
	}

	buf := EncodeVarint(delta)
	if status != w.lastStatus {
		buf = append(buf, status)
		w.lastStatus = status
	}
	buf = append(buf, data...)

	return w.write(buf)
}

func checkChannelMessage(channel, key, value int) error {
	if channel < 0 || channel > 15 {
		return errors.Wrapf(ErrInvalidChannel, "got %d", channel)
	}
	if key < 0 || key > 0x7F {
		return errors.Wrapf(ErrInvalidDataByte, "key %d", key)
	}
	if value < 0 || value > 0x7F {
		return errors.Wrapf(ErrInvalidDataByte, "velocity %d", value)
	}
	return nil
}

func (w *Writer) NoteOn(delta uint64, channel, key, velocity int) error {
	if err := checkChannelMessage(channel, key, velocity); err != nil {
		return err
	}
	return w.Event(delta, byte(NoteOn)|byte(channel), []byte{byte(key), byte(velocity)})
}

func (w *Writer) NoteOff(delta uint64, channel, key, velocity int) error {
	if err := checkChannelMessage(channel, key, velocity); err != nil {
		return err
	}
	return w.Event(delta, byte(NoteOff)|byte(channel), []byte{byte(key), byte(velocity)})
}

// Meta writes a meta message with the given sub-type and payload.
func (w *Writer) Meta(delta uint64, metaType byte, payload []byte) error {
	if metaType > 0x7F {
		return errors.Wrapf(ErrInvalidDataByte, "meta type %02x", metaType)
	}
	data := append([]byte{metaType}, EncodeVarint(uint64(len(payload)))...)
	return w.Event(delta, MetaStatus, append(data, payload...))
}

func (w *Writer) EndOfTrack(delta uint64) error {
	return w.Meta(delta, MetaEndOfTrack, nil)
}

// Tempo writes a tempo change in microseconds per quarter note.
func (w *Writer) Tempo(delta uint64, microsPerQuarter int) error {
	if microsPerQuarter <= 0 || microsPerQuarter > 0xFFFFFF {
		return errors.Errorf("tempo %d out of range", microsPerQuarter)
	}
	m := microsPerQuarter
	return w.Meta(delta, MetaTempo, []byte{byte(m >> 16), byte(m >> 8), byte(m)})
}

// Text writes a text meta message (sub-type 0x01-0x0F), encoding s as
// ISO-8859-1.
func (w *Writer) Text(delta uint64, metaType byte, s string) error {
	if !isTextMeta(metaType) {
		return errors.Errorf("meta type %02x is not a text type", metaType)
	}
	payload, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return errors.Wrapf(err, "encoding %q", s)
	}
	return w.Meta(delta, metaType, payload)
}

// WriteTo writes the whole sequence with exact track sizes.
func (s *Sequence) WriteTo(out io.Writer) (int64, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.StartFile(s.Header.Format, s.Header.NumberOfTracks, s.Header.Division); err != nil {
		return 0, err
	}

	for i, trk := range s.Tracks {
		err := w.WriteTrack(func(tw *Writer) error {
			for j, evt := range trk.Events {
				if err := tw.Event(evt.Delta, evt.Message.Status, evt.Message.Data); err != nil {
					return errors.Wrapf(err, "error encoding event #%d (%v)", j, evt)
				}
			}
			return nil
		})
		if err != nil {
			return 0, errors.Wrapf(err, "error encoding track #%d", i)
		}
	}

	n, err := out.Write(buf.Bytes())
	return int64(n), errors.Wrap(err, "write error")
}
