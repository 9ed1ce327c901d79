package bevy

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aff4-go/aff4/lib/progress"
	"github.com/pkg/errors"
)

// MemberWriter is the subset of zip64.Volume / a resolver-backed
// stream a Writer needs to persist a bevy's index and payload
// segments. Kept narrow so bevy doesn't import zip64 directly —
// aff4map and the image stream wire the two together.
type MemberWriter interface {
	WriteSegment(name string, content []byte) error
}

// Writer accumulates chunks into bevies and persists each bevy once
// full (spec §4.F "Write path"), grounded on
// backend/chunker/chunker.go's chunk/accumulate/flush control flow.
type Writer struct {
	dest             MemberWriter
	baseName         string // e.g. the image stream's URN path
	chunkSize        int
	chunksPerSegment int
	method           Method
	format           IndexFormat

	pending    bytes.Buffer // bytes not yet sliced into a full chunk
	bevySpans  []ChunkSpan
	bevyBuf    bytes.Buffer
	chunksInBevy int
	bevyNumber   int

	Size int64 // total logical bytes written so far
}

// NewWriter returns a Writer that persists bevies under baseName via
// dest (e.g. "<image>/00000000", "<image>/00000000.index").
func NewWriter(dest MemberWriter, baseName string, chunkSize, chunksPerSegment int, method Method, format IndexFormat) *Writer {
	return &Writer{
		dest:             dest,
		baseName:         baseName,
		chunkSize:        chunkSize,
		chunksPerSegment: chunksPerSegment,
		method:           method,
		format:           format,
	}
}

// Write appends data to the internal buffer, flushing full chunks as
// they accumulate.
func (w *Writer) Write(data []byte) (int, error) {
	n, _ := w.pending.Write(data)
	for w.pending.Len() >= w.chunkSize {
		chunk := make([]byte, w.chunkSize)
		if _, err := io.ReadFull(&w.pending, chunk); err != nil {
			return n, errors.Wrap(err, "bevy: slicing chunk from pending buffer")
		}
		if err := w.flushChunk(chunk); err != nil {
			return n, err
		}
	}
	w.Size += int64(n)
	return n, nil
}

func (w *Writer) flushChunk(chunk []byte) error {
	compressed, err := compress(w.method, chunk)
	if err != nil {
		return err
	}
	w.bevySpans = append(w.bevySpans, ChunkSpan{Offset: uint64(w.bevyBuf.Len()), Length: uint32(len(compressed))})
	w.bevyBuf.Write(compressed)
	w.chunksInBevy++
	if w.chunksInBevy >= w.chunksPerSegment {
		return w.flushBevy()
	}
	return nil
}

func (w *Writer) flushBevy() error {
	if w.chunksInBevy == 0 {
		return nil
	}
	bevyName := fmt.Sprintf("%s/%08d", w.baseName, w.bevyNumber)
	indexName := bevyName + ".index"

	if err := w.dest.WriteSegment(indexName, EncodeIndex(w.format, w.bevySpans)); err != nil {
		return errors.Wrapf(err, "bevy: writing index for bevy %d", w.bevyNumber)
	}
	if err := w.dest.WriteSegment(bevyName, w.bevyBuf.Bytes()); err != nil {
		return errors.Wrapf(err, "bevy: writing payload for bevy %d", w.bevyNumber)
	}

	w.bevyNumber++
	w.chunksInBevy = 0
	w.bevySpans = nil
	w.bevyBuf.Reset()
	return nil
}

// Flush flushes any short tail chunk still in the pending buffer, then
// the tail bevy (which may itself be short).
func (w *Writer) Flush() error {
	if w.pending.Len() > 0 {
		tail := make([]byte, w.pending.Len())
		if _, err := io.ReadFull(&w.pending, tail); err != nil {
			return errors.Wrap(err, "bevy: reading tail chunk")
		}
		if err := w.flushChunk(tail); err != nil {
			return err
		}
	}
	return w.flushBevy()
}

// WriteStream copies source bevy-at-a-time, reporting cumulative
// progress (the total logical bytes written so far, i.e. the current
// bevy's logical start offset plus the bytes written into it) after
// each read (spec §4.F "write_stream"), so cumulative throughput is
// reported correctly across an arbitrarily long stream.
func (w *Writer) WriteStream(ctx context.Context, source io.Reader, pc progress.Context) error {
	if pc == nil {
		pc = progress.Noop{}
	}
	buf := make([]byte, 256*1024)
	for {
		n, err := source.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if rerr := pc.Report(ctx, w.Size); rerr != nil {
				return rerr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "bevy: reading stream source")
		}
	}
	return w.Flush()
}
