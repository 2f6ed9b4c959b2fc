package midi

import (
	"testing"

	"github.com/pkg/errors"
)

func TestParseTrackHeader(t *testing.T) {
	trk, err := ParseTrackHeader([]byte("MTrk\x00\x00\x07\x35"))
	if err != nil {
		t.Fatalf("ParseTrackHeader(MTrk 00000735) = err: %v", err)
	}
	if trk.Size != 1845 || trk.Length() != 1845+8 {
		t.Errorf("trk.Size, trk.Length() = %d, %d want 1845, 1853", trk.Size, trk.Length())
	}
	if trk.Complete() || len(trk.Events) != 0 {
		t.Errorf("new track = complete %v, %d event(s) want empty and incomplete", trk.Complete(), len(trk.Events))
	}

	if _, err := ParseTrackHeader([]byte("MThd\x00\x00\x00\x06")); !errors.Is(err, ErrBadTrackMagic) {
		t.Errorf("ParseTrackHeader(MThd...) = err: %v want %v", err, ErrBadTrackMagic)
	}

	if _, err := ParseTrackHeader([]byte("MTrk\x00")); !errors.Is(err, ErrUnexpectedEndOfBuffer) {
		t.Errorf("ParseTrackHeader(MTrk 00) = err: %v want %v", err, ErrUnexpectedEndOfBuffer)
	}
}

func TestTrackCompletion(t *testing.T) {
	trk := &Track{}
	noteOn := &Message{Status: 0x90, Data: []byte{0x3C, 0x64}, Length: 3}
	eot := &Message{Status: 0xFF, Data: []byte{0x2F, 0x00}, Length: 3}

	if err := trk.AddEvent(0, noteOn); err != nil {
		t.Fatalf("trk.AddEvent(note on) = err: %v", err)
	}
	if trk.Complete() {
		t.Errorf("trk.Complete() = true after note on")
	}

	if err := trk.AddEvent(10, eot); err != nil {
		t.Fatalf("trk.AddEvent(end of track) = err: %v", err)
	}
	if !trk.Complete() {
		t.Errorf("trk.Complete() = false after end of track")
	}

	for _, msg := range []*Message{noteOn, eot} {
		err := trk.AddEvent(0, msg)
		if !errors.Is(err, ErrTrackComplete) {
			t.Errorf("trk.AddEvent(%v) on complete track = err: %v want %v", msg, err, ErrTrackComplete)
		}
		if IsFormatError(err) {
			t.Errorf("IsFormatError(%v) = true want false", err)
		}
	}

	if len(trk.Events) != 2 {
		t.Errorf("len(trk.Events) = %d want 2", len(trk.Events))
	}
}
