package stream

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"
)

const eventPrefix = "data: "

// Base64 narration payloads can push a single line into the megabytes, well
// past bufio.Scanner's default limit.
const maxLineBytes = 16 * 1024 * 1024

// DecodeError marks a single event line that could not be parsed. It is
// recoverable: the line is dropped and the sequence continues.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("undecodable event line: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Events turns an incrementally-delivered round stream into a lazy sequence
// of decoded events. Lines split across delivery chunks are reassembled
// before parsing; lines without the event prefix and empty payloads are
// ignored. A malformed payload is yielded as a *DecodeError and the sequence
// continues; any other error is a transport failure and terminates it.
// Decoded events come out strictly in arrival order.
func Events(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, eventPrefix) {
				continue
			}

			payload := strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
			if len(payload) == 0 {
				continue
			}

			event, err := parseEvent(payload)
			if err != nil {
				if !yield(nil, &DecodeError{Line: line, Err: err}) {
					return
				}
				continue
			}
			if !yield(event, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("reading round stream: %w", err))
		}
	}
}
