package executor

import "bytes"

// limitedWriter keeps the first limit bytes written and silently drops the rest. It always
// reports a full write so that a chatty child never sees a broken pipe.
type limitedWriter struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func newLimitedWriter(limit int) *limitedWriter {
	return &limitedWriter{limit: limit}
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.overflow = true
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		w.overflow = true
		return len(p), nil
	}
	w.buf.Write(p)
	return len(p), nil
}

func (w *limitedWriter) String() string {
	if w.overflow {
		return w.buf.String() + "\n[output truncated]"
	}
	return w.buf.String()
}
