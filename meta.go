package midi

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Meta message sub-types.
const (
	MetaSequenceNumber    byte = 0x00
	MetaText              byte = 0x01
	MetaCopyright         byte = 0x02
	MetaTrackName         byte = 0x03
	MetaInstrumentName    byte = 0x04
	MetaLyric             byte = 0x05
	MetaMarker            byte = 0x06
	MetaCuePoint          byte = 0x07
	MetaChannelPrefix     byte = 0x20
	MetaPort              byte = 0x21
	MetaEndOfTrack        byte = 0x2F
	MetaTempo             byte = 0x51
	MetaSMPTEOffset       byte = 0x54
	MetaTimeSignature     byte = 0x58
	MetaKeySignature      byte = 0x59
	MetaSequencerSpecific byte = 0x7F
)

var metaEventNames = map[byte]string{
	MetaSequenceNumber:    "SequenceNumber",
	MetaText:              "Text",
	MetaCopyright:         "CopyrightText",
	MetaTrackName:         "TrackName",
	MetaInstrumentName:    "InstrumentName",
	MetaLyric:             "LyricText",
	MetaMarker:            "MarkerText",
	MetaCuePoint:          "CuePointText",
	MetaChannelPrefix:     "ChannelPrefix",
	MetaPort:              "Port",
	MetaEndOfTrack:        "EndOfTrack",
	MetaTempo:             "Tempo",
	MetaSMPTEOffset:       "SMPTEOffset",
	MetaTimeSignature:     "TimeSignature",
	MetaKeySignature:      "KeySignature",
	MetaSequencerSpecific: "SequencerSpecific",
}

// DefaultTempo is the tempo in microseconds per quarter note until a tempo
// meta message says otherwise.
const DefaultTempo = 500000

// MetaType returns the sub-type of a meta message.
func (m *Message) MetaType() (byte, bool) {
	if !m.IsMeta() || len(m.Data) == 0 {
		return 0, false
	}
	return m.Data[0], true
}

// MetaPayload returns the bytes of a meta message following its sub-type and
// length.
func (m *Message) MetaPayload() []byte {
	if !m.IsMeta() || len(m.Data) < 2 {
		return nil
	}
	n, w, err := DecodeVarint(m.Data[1:])
	if err != nil || uint64(len(m.Data)-1-w) < n {
		return nil
	}
	return m.Data[1+w : 1+w+int(n)]
}

func isTextMeta(metaType byte) bool {
	return metaType >= MetaText && metaType <= 0x0F
}

// Text decodes the payload of a text meta message. SMF text carries no
// encoding marker; it is read as ISO-8859-1, which maps every byte.
func (m *Message) Text() (string, bool) {
	t, ok := m.MetaType()
	if !ok || !isTextMeta(t) {
		return "", false
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(m.MetaPayload())
	if err != nil {
		return string(m.MetaPayload()), true
	}
	return string(s), true
}

// Tempo returns the microseconds per quarter note of a tempo meta message.
func (m *Message) Tempo() (int, bool) {
	t, ok := m.MetaType()
	if !ok || t != MetaTempo {
		return 0, false
	}
	p := m.MetaPayload()
	if len(p) != 3 {
		return 0, false
	}
	return int(p[0])<<16 | int(p[1])<<8 | int(p[2]), true
}

type TimeSignature struct {
	Numerator               int
	// Denominator as written on the staff, e.g. 8 for 6/8.
	Denominator             int
	ClocksPerMetronomeTick  int
	ThirtySecondsPerQuarter int
}

func (m *Message) TimeSignature() (TimeSignature, bool) {
	t, ok := m.MetaType()
	if !ok || t != MetaTimeSignature {
		return TimeSignature{}, false
	}
	p := m.MetaPayload()
	if len(p) != 4 || p[1] > 30 {
		return TimeSignature{}, false
	}
	return TimeSignature{
		Numerator:               int(p[0]),
		Denominator:             1 << p[1],
		ClocksPerMetronomeTick:  int(p[2]),
		ThirtySecondsPerQuarter: int(p[3]),
	}, true
}

type KeySignature struct {
	// Negative for flats, positive for sharps.
	SharpsOrFlats int
	Minor         bool
}

func (m *Message) KeySignature() (KeySignature, bool) {
	t, ok := m.MetaType()
	if !ok || t != MetaKeySignature {
		return KeySignature{}, false
	}
	p := m.MetaPayload()
	if len(p) != 2 {
		return KeySignature{}, false
	}
	return KeySignature{
		SharpsOrFlats: int(int8(p[0])),
		Minor:         p[1] == 1,
	}, true
}

func (m *Message) metaString() string {
	t, ok := m.MetaType()
	if !ok {
		return "Meta Event: (empty)"
	}

	name, ok := metaEventNames[t]
	if !ok {
		name = fmt.Sprintf("Unknown:%02x", t)
	}
	isText := strings.HasSuffix(name, "Text") || strings.HasSuffix(name, "Name") || strings.HasPrefix(name, "Text")

	if text, ok := m.Text(); ok && isText {
		return fmt.Sprintf("Meta %s %q", name, text)
	}

	payload := m.MetaPayload()
	if len(payload) == 0 {
		return "Meta " + name
	}
	return fmt.Sprintf("Meta %s % 02x", name, payload)
}
