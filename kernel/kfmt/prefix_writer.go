package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line.
type PrefixWriter struct {
	// A writer where all writes get sent to.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	// midLine is set when the last write did not end with a line feed.
	midLine bool
}

// Write writes len(p) bytes from p to the underlying data stream and returns
// back the number of bytes written. The injected prefix is not included in
// the number of written bytes returned by this method.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written, lineStart int

	for index := 0; index < len(p); index++ {
		if p[index] != '\n' {
			continue
		}

		n, err := w.writeLine(p[lineStart : index+1])
		written += n
		if err != nil {
			return written, err
		}
		w.midLine = false
		lineStart = index + 1
	}

	if lineStart < len(p) {
		n, err := w.writeLine(p[lineStart:])
		written += n
		w.midLine = true
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// writeLine emits the prefix (unless we are continuing a line) followed by
// line.
func (w *PrefixWriter) writeLine(line []byte) (int, error) {
	if !w.midLine {
		w.Sink.Write(w.Prefix)
	}
	return w.Sink.Write(line)
}
