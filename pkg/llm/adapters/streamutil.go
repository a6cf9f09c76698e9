package adapters

import (
	"io"

	"github.com/modelbridge/agentkit/pkg/llm/llmtypes"
)

// ChanStream is a channel-backed llm.Stream shared by every adapter's
// streaming implementation: a producer goroutine pushes StreamEvent
// values and closes the channel when done; Close releases the
// underlying transport (e.g. the HTTP response body).
type ChanStream struct {
	events chan llmtypes.StreamEvent
	closer io.Closer
}

// NewChanStream returns a ChanStream with the given buffer size and an
// optional closer (the adapter's raw HTTP response body, typically).
func NewChanStream(buffer int, closer io.Closer) *ChanStream {
	return &ChanStream{events: make(chan llmtypes.StreamEvent, buffer), closer: closer}
}

func (s *ChanStream) Events() <-chan llmtypes.StreamEvent { return s.events }

// Send pushes an event. Callers must stop sending after a Finish or Error
// event and then call Close on the channel with CloseChan.
func (s *ChanStream) Send(e llmtypes.StreamEvent) { s.events <- e }

// CloseChan closes the event channel. Call exactly once, after the final
// event has been sent.
func (s *ChanStream) CloseChan() { close(s.events) }

func (s *ChanStream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
