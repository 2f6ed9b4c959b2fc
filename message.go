package midi

import (
	"fmt"

	"github.com/pkg/errors"
)

// Command is the kind of a message, derived from its status byte. Channel
// commands carry the high nibble of the status byte.
type Command byte

const (
	UnknownCommand    Command = 0x00
	NoteOff           Command = 0x80
	NoteOn            Command = 0x90
	PolyAftertouch    Command = 0xA0
	ControlChange     Command = 0xB0
	ProgramChange     Command = 0xC0
	ChannelAftertouch Command = 0xD0
	PitchBend         Command = 0xE0
	MetaMessage       Command = 0xFF
)

const (
	// MetaStatus is the status byte of every meta message.
	MetaStatus byte = 0xFF
)

type commandSpec struct {
	name    string
	dataLen int
}

// Meta messages have a variable length and are sized separately.
var commandSpecs = map[Command]commandSpec{
	NoteOff:           {name: "NOTE_OFF", dataLen: 2},
	NoteOn:            {name: "NOTE_ON", dataLen: 2},
	PolyAftertouch:    {name: "POLYPHONIC_AFTERTOUCH", dataLen: 2},
	ControlChange:     {name: "CONTROL_CHANGE", dataLen: 2},
	ProgramChange:     {name: "PROGRAM_CHANGE", dataLen: 1},
	ChannelAftertouch: {name: "CHANNEL_AFTERTOUCH", dataLen: 1},
	PitchBend:         {name: "PITCH_BEND_CHANGE", dataLen: 2},
	MetaMessage:       {name: "META_MESSAGE"},
}

func commandOf(status byte) Command {
	if status == MetaStatus {
		return MetaMessage
	}
	if status < 0xF0 {
		return Command(status & 0xF0)
	}
	return UnknownCommand
}

func (c Command) String() string {
	spec, ok := commandSpecs[c]
	if !ok {
		return fmt.Sprintf("UNKNOWN:%02x", byte(c))
	}
	return spec.name
}

// Message is a single decoded MIDI message. Data holds every byte after the
// status byte: for channel messages the data bytes, for meta messages the
// sub-type, the varint length and the payload. Length is the number of bytes
// the message occupied on the wire, which excludes the status byte when it
// was inherited through running status.
type Message struct {
	Status byte
	Data   []byte
	Length int
}

// ParseMessage decodes one message from the start of data. runningStatus is
// the last status byte seen in the current track, or 0 if none is known.
//
// ok is false, with a nil error, when data does not yet hold the whole
// message; the caller should retry with more bytes.
//
// Status bytes whose command is unknown (system common and real-time
// messages other than meta) decode with an empty payload.
// TODO: size sysex (0xF0/0xF7) by its varint length instead of leaving the
// payload bytes to be misread as the next event.
func ParseMessage(data []byte, runningStatus byte) (msg *Message, ok bool, err error) {
	if len(data) == 0 {
		return nil, false, nil
	}

	status := data[0]
	offset := 0

	if status&0x80 == 0 {
		if runningStatus == 0 {
			return nil, false, ErrMissingStatus
		}
		status = runningStatus
	} else {
		offset = 1
	}

	length := offset

	if status == MetaStatus {
		if len(data) < offset+2 {
			return nil, false, nil
		}
		n, w, err := DecodeVarint(data[offset+1:])
		if errors.Is(err, ErrTruncated) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, errors.Wrap(err, "meta message length")
		}
		if n > uint64(len(data)) {
			return nil, false, nil
		}
		length += 1 + w + int(n)
	} else {
		length += commandSpecs[commandOf(status)].dataLen
	}

	if len(data) < length {
		return nil, false, nil
	}

	payload := make([]byte, length-offset)
	copy(payload, data[offset:length])

	return &Message{
		Status: status,
		Data:   payload,
		Length: length,
	}, true, nil
}

func (m *Message) Command() Command {
	return commandOf(m.Status)
}

// Channel returns the channel of a channel message.
func (m *Message) Channel() (int, bool) {
	if !m.IsChannelMessage() {
		return 0, false
	}
	return int(m.Status & 0x0F), true
}

func (m *Message) IsChannelMessage() bool {
	return m.Status < 0xF0
}

func (m *Message) IsSystemMessage() bool {
	return m.Status >= 0xF0
}

func (m *Message) IsMeta() bool {
	return m.Status == MetaStatus
}

func (m *Message) IsEndOfTrack() bool {
	return m.IsMeta() && len(m.Data) > 0 && m.Data[0] == MetaEndOfTrack
}

func (m *Message) String() string {
	if m.IsMeta() {
		return m.metaString()
	}

	if ch, ok := m.Channel(); ok {
		if _, known := commandSpecs[m.Command()]; known {
			return fmt.Sprintf("Channel %d: %s % 02x", ch, m.Command(), m.Data)
		}
	}

	return fmt.Sprintf("%02x", m.Status)
}
