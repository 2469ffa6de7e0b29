package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// pollEvery is how often follow mode re-reads the file while waiting for
// fresh lines.
const pollEvery = 250 * time.Millisecond

// TailOptions controls how much of the log is returned. A negative Offset
// means "the last Limit lines"; a non-negative Offset resumes reading at that
// byte position. Follow keeps polling for up to Wait when the read comes
// back empty.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from the log file at path according to opts. A missing
// file is not an error: it reports no lines and offset zero so callers can
// retry once the daemon has written something.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	res := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Offset = 0
			return res, nil
		}
		return res, fmt.Errorf("stat log: %w", err)
	}
	if info.IsDir() {
		return res, fmt.Errorf("log path %q is a directory", path)
	}

	wait := opts.Wait
	if wait < 0 {
		wait = 0
	}

	if opts.Offset < 0 {
		lines, end, err := tailEnd(path, opts.Limit)
		if err != nil {
			return res, err
		}
		res.Lines = lines
		res.Offset = end
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			offset = info.Size()
		}
		lines, next, err := scanFrom(path, offset)
		if err != nil {
			return res, err
		}
		res.Lines = lines
		res.Offset = next
	}

	if opts.Follow && wait > 0 && len(res.Lines) == 0 {
		return awaitLines(ctx, path, res.Offset, wait)
	}
	return res, nil
}

// tailEnd returns the last limit lines of the file plus the offset of its
// end. A non-positive limit skips reading and just reports the end offset.
func tailEnd(path string, limit int) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	if limit <= 0 {
		end, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	seen := 0
	sc := newLineScanner(f)
	for sc.Scan() {
		ring[seen%limit] = sc.Text()
		seen++
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log: %w", err)
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log: %w", err)
	}

	count := seen
	if count > limit {
		count = limit
	}
	lines := make([]string, 0, count)
	for i := seen - count; i < seen; i++ {
		lines = append(lines, ring[i%limit])
	}
	return lines, end, nil
}

// scanFrom reads whole lines starting at offset and reports where the next
// read should resume.
func scanFrom(path string, offset int64) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log: %w", err)
	}

	var lines []string
	sc := newLineScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log: %w", err)
	}
	next, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log: %w", err)
	}
	return lines, next, nil
}

// awaitLines polls the file until new lines appear, the wait elapses, or the
// context is canceled.
func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	res := TailResult{Offset: offset}
	for {
		lines, next, err := scanFrom(path, offset)
		if err != nil {
			return res, err
		}
		res.Offset = next
		if len(lines) > 0 {
			res.Lines = lines
			return res, nil
		}
		if time.Now().After(deadline) {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newLineScanner(f *os.File) *bufio.Scanner {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}
