package provider

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// NextFrame scans buf for one complete "\n\n"-delimited SSE event. It
// returns the joined payload of all "data:" lines in that event, whether
// the event was the literal "[DONE]" terminator, the unconsumed remainder
// of buf, and whether a complete frame was present at all. Non-"data:"
// lines (event:, id:, comments) are dropped. A comment-only or empty
// frame (e.g. a keepalive) parses successfully with an empty, non-done
// payload.
func NextFrame(buf []byte) (data string, done bool, remainder []byte, found bool) {
	idx := bytes.Index(buf, []byte("\n\n"))
	if idx < 0 {
		return "", false, buf, false
	}
	raw := buf[:idx]
	remainder = buf[idx+2:]

	var lines []string
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimPrefix(line, []byte("data:"))
		payload = bytes.TrimPrefix(payload, []byte(" "))
		lines = append(lines, string(payload))
	}
	data = strings.Join(lines, "\n")
	if data == "[DONE]" {
		return "", true, remainder, true
	}
	return data, false, remainder, true
}

// sseScanner pulls "\n\n"-delimited SSE frames off an io.Reader, handling
// the partial-read buffering NextFrame itself stays agnostic to.
type sseScanner struct {
	r   *bufio.Reader
	buf []byte
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{r: bufio.NewReaderSize(r, 8*1024)}
}

// errSSEDone signals the "[DONE]" terminator was observed; it is a benign
// end of stream, not a failure.
var errSSEDone = sseDone{}

type sseDone struct{}

func (sseDone) Error() string { return "sse: done" }

// next returns the payload of the next non-empty data frame, errSSEDone on
// the "[DONE]" terminator, or io.EOF when the underlying reader closes
// without one.
func (s *sseScanner) next() (string, error) {
	for {
		data, done, rest, found := NextFrame(s.buf)
		if found {
			s.buf = rest
			if done {
				return "", errSSEDone
			}
			if data == "" {
				continue // keepalive/comment frame, keep scanning
			}
			return data, nil
		}

		chunk := make([]byte, 4096)
		n, err := s.r.Read(chunk)
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
		}
		if err != nil {
			return "", err
		}
	}
}
