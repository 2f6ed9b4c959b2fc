package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	midi "github.com/steinarvk/midistream"
	"github.com/steinarvk/midistream/chunkreader"
)

var (
	input     = flag.String("input", "", "MIDI file to decode (default: stdin)")
	chunkSize = flag.Int("chunk_size", 64, "maximum number of bytes submitted at once")
	byteRate  = flag.Int("rate", 0, "bytes per second to feed the decoder (0: unlimited)")
	verbose   = flag.Bool("verbose", false, "very detailed logging")
)

func feed(ctx context.Context, r io.Reader, d *midi.Decoder, limiter *rate.Limiter) (int64, error) {
	buf := make([]byte, *chunkSize)
	var total int64

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if limiter != nil {
				if werr := limiter.WaitN(ctx, n); werr != nil {
					return total, errors.Wrap(werr, "rate limiter")
				}
			}
			total += int64(n)
			if serr := d.Submit(buf[:n]); serr != nil {
				return total, serr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, errors.Wrap(err, "read error")
		}
	}
}

func main() {
	flag.Parse()

	if *chunkSize < 1 {
		log.Fatalf("--chunk_size must be at least 1, got %d", *chunkSize)
	}

	if *verbose {
		midi.VeryDetailedLogging = true
	}

	var in io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("error opening %q: %v", *input, err)
		}
		defer f.Close()
		in = f
	}

	var limiter *rate.Limiter
	if *byteRate > 0 {
		burst := *byteRate
		if burst < *chunkSize {
			burst = *chunkSize
		}
		limiter = rate.NewLimiter(rate.Limit(*byteRate), burst)
	}

	var trackNo, events int
	d := midi.NewDecoder(midi.HandlerFuncs{
		OnFileStarted: func(hdr *midi.Header) {
			log.Printf("file: %v", hdr)
		},
		OnTrackStarted: func(t *midi.Track) {
			log.Printf("track %d: declared size %s", trackNo, humanize.Bytes(uint64(t.Size)))
		},
		OnEvent: func(delta uint64, msg *midi.Message) {
			events++
			log.Printf("trk % 2d +%-8d %v", trackNo, delta, msg)
		},
		OnTrackEnded: func(t *midi.Track) {
			log.Printf("track %d: ended after %d event(s)", trackNo, len(t.Events))
			trackNo++
		},
		OnWarning: func(err error) {
			log.Printf("warning: %v", err)
		},
		OnFatalError: func(err error) {
			log.Printf("fatal: %v", err)
		},
	})

	t0 := time.Now()
	total, err := feed(context.Background(), chunkreader.New(in, *chunkSize), d, limiter)
	elapsed := time.Since(t0)

	log.Printf("%s in %d event(s) decoded in %v", humanize.Bytes(uint64(total)), events, durafmt.Parse(elapsed).LimitFirstN(2))

	if err != nil {
		log.Fatalf("decoding failed: %v", err)
	}
	if !d.Done() {
		log.Fatalf("input ended early: %d byte(s) left undecoded", d.Buffered())
	}
}
