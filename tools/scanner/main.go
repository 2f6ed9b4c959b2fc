package main

import (
	"bytes"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/pkg/errors"
	"github.com/remeh/sizedwaitgroup"
	"golang.org/x/crypto/blake2b"

	midi "github.com/steinarvk/midistream"
)

var (
	scanPath     = flag.String("path", "", "MIDI file scan path (dir or file)")
	logSuccesses = flag.Bool("log_success", false, "log individual parsing successes")
	showFiles    = flag.Bool("show_files", false, "log contents of tracks")
	showHeader   = flag.Bool("show_headers", false, "log headers of files")
	verbose      = flag.Bool("verbose", false, "very detailed logging")
	parallel     = flag.Int("parallel", runtime.NumCPU(), "number of files parsed at once")
	dedupe       = flag.Bool("dedupe", false, "parse files with identical contents only once")
)

type stats struct {
	mu sync.Mutex

	successes, failures, duplicates int64
	successSize, totalSize          int64
	warnings                        int64

	seen map[[blake2b.Size256]byte]string
}

// claim records the contents of path, returning the earlier path with the
// same contents if there is one.
func (s *stats) claim(path string, data []byte) (string, bool) {
	sum := blake2b.Sum256(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.seen[sum]; ok {
		s.duplicates++
		return prev, true
	}
	s.seen[sum] = path
	return "", false
}

func (s *stats) record(size int64, seq *midi.Sequence, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalSize += size
	if err != nil {
		s.failures++
		return
	}
	s.successes++
	s.successSize += size
	s.warnings += int64(len(seq.Warnings))
}

func scanFile(path string, st *stats) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("reading %q: error: %v", path, err)
		st.record(0, nil, err)
		return
	}

	if *dedupe {
		if prev, dup := st.claim(path, data); dup {
			if *logSuccesses {
				log.Printf("skipping %q: same contents as %q", path, prev)
			}
			return
		}
	}

	seq, err := midi.Parse(bytes.NewReader(data))
	st.record(int64(len(data)), seq, err)
	if err != nil {
		log.Printf("parsing %q: error: %v", path, err)
		return
	}

	if *logSuccesses {
		log.Printf("parsing %q: ok: %d track(s), %s", path, len(seq.Tracks), humanize.Bytes(uint64(len(data))))
	}
	for _, warning := range seq.Warnings {
		log.Printf("parsing %q: warning: %v", path, warning)
	}
	if *showHeader {
		log.Printf("file %q header: %v", path, seq.Header)
	}
	if *showFiles {
		log.Printf("showing file %q", path)
		for i := range seq.Tracks {
			j := 0
			err := seq.OnEvents(i, func(ticks uint64, event midi.Event) error {
				log.Printf("trk % 2d evt % 8d @%-8d %v", i, j, ticks, event.Message)
				j++
				return nil
			})
			if err != nil {
				log.Printf("showing file %q: %v", path, err)
			}
		}
	}
}

func main() {
	flag.Parse()

	if *scanPath == "" {
		log.Fatalf("missing required argument: --path")
	}

	if *parallel < 1 {
		log.Fatalf("--parallel must be at least 1, got %d", *parallel)
	}

	if *verbose {
		midi.VeryDetailedLogging = true
	}

	st := &stats{seen: map[[blake2b.Size256]byte]string{}}
	wg := sizedwaitgroup.New(*parallel)

	onEachDir := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrapf(err, "error visiting %q", path)
		}

		if info.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".mid") {
			return nil
		}

		wg.Add()
		go func() {
			defer wg.Done()
			scanFile(path, st)
		}()

		return nil
	}

	t0 := time.Now()
	if err := filepath.Walk(*scanPath, onEachDir); err != nil {
		log.Fatalf("scanning failed: %v", err)
	}
	wg.Wait()
	elapsed := time.Since(t0)

	secs := elapsed.Seconds()
	if secs <= 0 {
		secs = 1e-9
	}

	total := st.successes + st.failures
	var pct float64
	if total > 0 {
		pct = 100 * float64(st.successes) / float64(total)
	}

	log.Printf("%d/%d file(s) parsed successfully", st.successes, total)
	if *dedupe {
		log.Printf("%d duplicate file(s) skipped", st.duplicates)
	}
	log.Printf("%d files of a total of %s parsed successfully", st.successes, humanize.Bytes(uint64(st.successSize)))
	log.Printf("%d warning(s) in successfully parsed files", st.warnings)
	log.Printf("Success rate: %.2f%%", pct)
	log.Printf("Time taken: %v", durafmt.Parse(elapsed).LimitFirstN(2))
	log.Printf("Successful bytes parsed per second: %s", humanize.Bytes(uint64(float64(st.successSize)/secs)))
	log.Printf("Total bytes parsed per second: %s", humanize.Bytes(uint64(float64(st.totalSize)/secs)))

	if st.failures > 0 {
		log.Fatalf("failures encountered")
	}
}
