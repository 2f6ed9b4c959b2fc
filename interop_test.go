package midi

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestDecodeGomidiOutput(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, midi.NoteOn(2, 60, 100))
	tr.Add(96, midi.NoteOff(2, 60))
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		t.Fatalf("s.Add(tr) = err: %v", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("s.WriteTo = err: %v", err)
	}

	seq, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode(% 02x) = err: %v", buf.Bytes(), err)
	}

	if ticks, ok := seq.Header.TicksPerQuarterNote(); !ok || ticks != 96 {
		t.Errorf("ticks per quarter note = %d, %v want 96, true", ticks, ok)
	}
	if len(seq.Tracks) != 1 {
		t.Fatalf("len(seq.Tracks) = %d want 1", len(seq.Tracks))
	}

	events := seq.Tracks[0].Events
	if len(events) != 4 {
		t.Fatalf("events = %v want 4", events)
	}

	if tempo, ok := events[0].Message.Tempo(); !ok || tempo != 500000 {
		t.Errorf("events[0] tempo = %d, %v want 500000, true", tempo, ok)
	}

	on := events[1].Message
	if ch, _ := on.Channel(); on.Command() != NoteOn || ch != 2 || !bytes.Equal(on.Data, []byte{60, 100}) {
		t.Errorf("events[1] = %v want note on channel 2 key 60 velocity 100", on)
	}

	off := events[2]
	if off.Delta != 96 || off.Message.Data[0] != 60 {
		t.Errorf("events[2] = %v want note 60 released after 96 ticks", off)
	}

	if !events[3].Message.IsEndOfTrack() {
		t.Errorf("events[3] = %v want end of track", events[3])
	}
}

func TestGomidiReadsWriterOutput(t *testing.T) {
	sw := NewSimpleWriter(480)
	sw.Play([]int{60, 64, 67}, 100, 480)
	sw.Play([]int{62}, 80, 240)

	var buf bytes.Buffer
	if err := sw.Write(&buf); err != nil {
		t.Fatalf("sw.Write = err: %v", err)
	}

	var starts, ends int
	var lastEnd int64
	rd := smf.ReadTracksFrom(bytes.NewReader(buf.Bytes())).Do(func(ev smf.TrackEvent) {
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			starts++
		}
		if ev.Message.GetNoteEnd(&ch, &key) {
			ends++
			lastEnd = ev.AbsMicroSeconds
		}
	})
	if err := rd.Error(); err != nil {
		t.Fatalf("smf.ReadTracksFrom(% 02x) = err: %v", buf.Bytes(), err)
	}

	// One and a half quarter notes at the default tempo.
	if lastEnd != 750000 {
		t.Errorf("last note ends at %dus want 750000us", lastEnd)
	}

	if starts != 4 || ends != 4 {
		t.Errorf("gomidi saw %d note start(s), %d note end(s) want 4, 4", starts, ends)
	}
}
