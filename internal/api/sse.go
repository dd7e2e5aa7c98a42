package api

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// MaxEventSize bounds a single SSE line and the joined data of one event
const MaxEventSize = 64 * 1024

// ErrEventTooLarge is returned once a line or an event passes MaxEventSize
var ErrEventTooLarge = errors.New("sse event too large")

// SSEEvent is one dispatched server-sent event
type SSEEvent struct {
	Name string
	Data string
}

// SSEReader parses Server-Sent Events from a stream
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReaderSize(r, MaxEventSize)}
}

// ReadEvent reads the next event. Data lines are joined with "\n" and a single
// leading space after "data:" is stripped. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (SSEEvent, error) {
	var (
		ev      SSEEvent
		lines   []string
		pending bool
		size    int
	)

	for {
		line, err := s.readLine()
		if err != nil && (err != io.EOF || len(line) == 0) {
			if err == io.EOF && pending {
				ev.Data = strings.Join(lines, "\n")
				return ev, nil
			}
			return SSEEvent{}, err
		}
		eof := err == io.EOF

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if pending {
				ev.Data = strings.Join(lines, "\n")
				return ev, nil
			}
			if eof {
				return SSEEvent{}, io.EOF
			}
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			ev.Name = value
			pending = true
		case "data":
			if len(lines) > 0 {
				size++
			}
			size += len(value)
			if size > MaxEventSize {
				return SSEEvent{}, ErrEventTooLarge
			}
			lines = append(lines, value)
			pending = true
		}
		// id:, retry: and ":" comments are ignored

		if eof {
			if pending {
				ev.Data = strings.Join(lines, "\n")
				return ev, nil
			}
			return SSEEvent{}, io.EOF
		}
	}
}

// readLine returns one line including its terminator, or ErrEventTooLarge
// without buffering more than MaxEventSize bytes
func (s *SSEReader) readLine() ([]byte, error) {
	var line []byte
	for {
		frag, err := s.reader.ReadSlice('\n')
		if len(line)+len(frag) > MaxEventSize {
			return nil, ErrEventTooLarge
		}
		line = append(line, frag...)
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, err
	}
}

func splitField(line []byte) (string, string) {
	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return string(line), ""
	}
	field := string(line[:i])
	value := line[i+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return field, string(value)
}
