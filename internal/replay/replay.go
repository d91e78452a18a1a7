// Package replay feeds recorded landmark streams through an exercise
// session offline. A recording is one JSON object per line:
//
//	{"t_ms":1718000000123,"landmarks":[{"x":0.5,"y":0.2,"visibility":0.98}, ...]}
//
// with "landmarks": null marking a frame where no body was detected.
package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/meltforce/repcoach/internal/exercise"
	"github.com/meltforce/repcoach/internal/pose"
)

// maxLine bounds one recorded frame.
const maxLine = 1 << 20

// Record is one line of a recording.
type Record struct {
	TimeMS    int64           `json:"t_ms"`
	Landmarks []pose.Landmark `json:"landmarks"`
}

// Time returns the record's timestamp.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.TimeMS).UTC()
}

// Frame returns the record as a frame, or nil when no body was detected.
func (r Record) Frame() *pose.Frame {
	if r.Landmarks == nil {
		return nil
	}
	return pose.NewFrame(r.Landmarks)
}

// Totals summarizes one replay.
type Totals struct {
	Frames      int           `json:"frames"`
	Observed    int           `json:"observed"`
	Abstained   int           `json:"abstained"`
	Correct     int           `json:"correct"`
	Reps        int           `json:"reps"`
	LongestHold time.Duration `json:"longest_hold"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	// TimedOut is set when records past the time limit were ignored.
	TimedOut bool `json:"timed_out,omitempty"`
}

// Duration is the recorded time between the first and last frame, or the
// time limit when the replay was cut off.
func (t Totals) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// Open opens a recording file, decompressing it when the name ends in .gz.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading gzip header of %s: %w", path, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return zerr
}

// Option limits a replay.
type Option func(*options)

type options struct {
	limit time.Duration
	stop  func(Totals) bool
}

// WithTimeLimit ignores records d or more after the first one and scores a
// hold still running at the cut-off only up to it.
func WithTimeLimit(d time.Duration) Option {
	return func(o *options) { o.limit = d }
}

// WithStopWhen ends the replay after the first record for which done reports
// true.
func WithStopWhen(done func(Totals) bool) Option {
	return func(o *options) { o.stop = done }
}

// Run replays every record in r through a fresh session for kind. The
// session clock follows the recorded timestamps, which must not go
// backwards. Blank lines are skipped.
func Run(r io.Reader, kind exercise.Kind, params exercise.Params, opts ...Option) (Totals, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var (
		tot  Totals
		now  time.Time
		line int
	)
	s := exercise.NewSession(kind, exercise.WithParams(params), exercise.WithClock(func() time.Time { return now }))

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return tot, fmt.Errorf("line %d: %w", line, err)
		}
		t := rec.Time()
		if tot.Frames > 0 && t.Before(now) {
			return tot, fmt.Errorf("line %d: timestamp %d goes backwards", line, rec.TimeMS)
		}
		if o.limit > 0 && tot.Frames > 0 && t.Sub(tot.Start) >= o.limit {
			end := tot.Start.Add(o.limit)
			tot.LongestHold = max(tot.LongestHold, s.HoldDurationAt(end))
			tot.End = end
			tot.TimedOut = true
			break
		}
		now = t
		if tot.Frames == 0 {
			tot.Start = t
		}
		tot.End = t
		tot.Frames++

		res := s.Process(rec.Frame())
		tot.LongestHold = max(tot.LongestHold, res.Hold)
		if res.Observed {
			tot.Observed++
			if res.Correct {
				tot.Correct++
			}
			tot.Reps = res.Count
		} else {
			tot.Abstained++
		}
		if o.stop != nil && o.stop(tot) {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return tot, fmt.Errorf("reading recording: %w", err)
	}
	return tot, nil
}

// Writer appends records to a recording.
type Writer struct {
	enc *json.Encoder
}

// NewWriter returns a Writer emitting one JSON object per line to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write appends a frame observed at t. A nil frame is recorded as no body.
func (w *Writer) Write(t time.Time, f *pose.Frame) error {
	rec := Record{TimeMS: t.UnixMilli()}
	if f != nil {
		rec.Landmarks = f.Landmarks
	}
	return w.enc.Encode(rec)
}
