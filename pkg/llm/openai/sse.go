package openai

import (
	"bufio"
	"bytes"
	"io"
)

// maxEventSize caps one SSE data payload. A single line may not exceed it either,
// so a backend that never sends a newline cannot grow the buffer past it.
const maxEventSize = 1 << 20

type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 16*1024), maxEventSize+len("data: "))
	return &eventReader{scanner: scanner}
}

// Next returns the data of the next event. Comment, id and retry lines are skipped.
// A connection that ends mid-event yields io.ErrUnexpectedEOF; an oversized line or
// event yields bufio.ErrTooLong.
func (e *eventReader) Next() ([]byte, error) {
	var data [][]byte
	size := 0

	for e.scanner.Scan() {
		line := bytes.TrimRight(e.scanner.Bytes(), "\r")
		if len(line) == 0 {
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			continue
		}

		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimPrefix(line[5:], []byte(" "))
		size += len(payload)
		if size > maxEventSize {
			return nil, bufio.ErrTooLong
		}
		// Scanner reuses its buffer on the next Scan.
		data = append(data, bytes.Clone(payload))
	}

	if err := e.scanner.Err(); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return nil, io.EOF
}
