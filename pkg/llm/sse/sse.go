// Package sse implements Server-Sent Events wire framing shared by every
// provider adapter's streaming path.
package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Event is one dispatched SSE event: an optional event type and its data
// payload (possibly assembled from multiple `data:` lines).
type Event struct {
	Event string
	Data  string
	ID    string
	Retry string
}

// ErrDone is returned by Parser.Next when the stream is terminated by the
// `data: [DONE]` sentinel.
var ErrDone = errors.New("sse: stream done")

// Parser reads an io.Reader line by line and yields (event_type, data)
// pairs per the SSE spec: lines starting with ':' are comments; `event:`
// sets the event type; `data:` lines are concatenated with '\n'; a blank
// line dispatches the accumulated event; `data == "[DONE]"` terminates the
// stream; a leading space after the field colon is stripped once.
type Parser struct {
	scanner *bufio.Scanner
	err     error
}

// NewParser returns a Parser reading SSE frames from r.
func NewParser(r io.Reader) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Parser{scanner: scanner}
}

// Next returns the next dispatched event. It returns ErrDone when the
// `[DONE]` sentinel is seen, or io.EOF when the stream ends without one.
func (p *Parser) Next() (*Event, error) {
	var eventType string
	var dataLines []string
	var id, retry string

	for p.scanner.Scan() {
		line := strings.TrimRight(p.scanner.Text(), "\r")

		if line == "" {
			if len(dataLines) == 0 {
				eventType, id, retry = "", "", ""
				continue
			}
			data := strings.Join(dataLines, "\n")
			if data == "[DONE]" {
				return nil, ErrDone
			}
			return &Event{Event: eventType, Data: data, ID: id, Retry: retry}, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			eventType = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			id = value
		case "retry":
			retry = value
		}
	}

	if err := p.scanner.Err(); err != nil {
		p.err = err
		return nil, err
	}
	if len(dataLines) > 0 {
		data := strings.Join(dataLines, "\n")
		if data == "[DONE]" {
			return nil, ErrDone
		}
		return &Event{Event: eventType, Data: data, ID: id, Retry: retry}, nil
	}
	return nil, io.EOF
}

// Err returns the first error encountered while scanning, if any.
func (p *Parser) Err() error { return p.err }

// IsDone reports whether an event's data is the "[DONE]" sentinel or its
// event type is "done" (some OpenAI-compatible backends use a named event
// instead of the literal sentinel).
func IsDone(e *Event) bool {
	return e != nil && (e.Data == "[DONE]" || e.Event == "done")
}

// Writer serializes events in SSE wire format, for servers that re-emit a
// session's event stream.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer writing SSE frames to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteEvent writes a named event with a data payload.
func (sw *Writer) WriteEvent(event, data string) error {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteString("\n")
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	_, err := io.WriteString(sw.w, b.String())
	return err
}

// WriteData writes an unnamed data-only event.
func (sw *Writer) WriteData(data string) error { return sw.WriteEvent("", data) }

// WriteDone writes the terminal "[DONE]" sentinel.
func (sw *Writer) WriteDone() error { return sw.WriteData("[DONE]") }
