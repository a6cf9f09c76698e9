package sse_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/agentkit/pkg/llm/sse"
)

func TestParserDispatchesSimpleEvent(t *testing.T) {
	p := sse.NewParser(strings.NewReader("event: message\ndata: hello\n\n"))

	event, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "message", event.Event)
	assert.Equal(t, "hello", event.Data)
}

func TestParserJoinsMultipleDataLinesWithNewline(t *testing.T) {
	p := sse.NewParser(strings.NewReader("data: line one\ndata: line two\n\n"))

	event, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", event.Data)
}

func TestParserSkipsCommentLines(t *testing.T) {
	p := sse.NewParser(strings.NewReader(": this is a comment\ndata: payload\n\n"))

	event, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "payload", event.Data)
}

func TestParserReturnsErrDoneOnSentinel(t *testing.T) {
	p := sse.NewParser(strings.NewReader("data: [DONE]\n\n"))

	_, err := p.Next()
	assert.ErrorIs(t, err, sse.ErrDone)
}

func TestParserReturnsEOFOnEmptyStream(t *testing.T) {
	p := sse.NewParser(strings.NewReader(""))

	_, err := p.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParserDispatchesTrailingEventWithoutFinalBlankLine(t *testing.T) {
	p := sse.NewParser(strings.NewReader("data: trailing"))

	event, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "trailing", event.Data)
}

func TestParserCapturesIDAndRetryFields(t *testing.T) {
	p := sse.NewParser(strings.NewReader("id: 42\nretry: 3000\ndata: hi\n\n"))

	event, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "42", event.ID)
	assert.Equal(t, "3000", event.Retry)
}

func TestParserReadsSequentialEvents(t *testing.T) {
	p := sse.NewParser(strings.NewReader("data: first\n\ndata: second\n\n"))

	first, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", first.Data)

	second, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "second", second.Data)
}

func TestIsDoneRecognizesSentinelAndNamedEvent(t *testing.T) {
	assert.True(t, sse.IsDone(&sse.Event{Data: "[DONE]"}))
	assert.True(t, sse.IsDone(&sse.Event{Event: "done"}))
	assert.False(t, sse.IsDone(&sse.Event{Data: "hello"}))
	assert.False(t, sse.IsDone(nil))
}

func TestWriterWriteEventFormatsNamedEvent(t *testing.T) {
	var buf strings.Builder
	w := sse.NewWriter(&buf)

	require.NoError(t, w.WriteEvent("text_delta", "hi"))
	assert.Equal(t, "event: text_delta\ndata: hi\n\n", buf.String())
}

func TestWriterWriteEventSplitsMultilineData(t *testing.T) {
	var buf strings.Builder
	w := sse.NewWriter(&buf)

	require.NoError(t, w.WriteEvent("", "line one\nline two"))
	assert.Equal(t, "data: line one\ndata: line two\n\n", buf.String())
}

func TestWriterWriteDone(t *testing.T) {
	var buf strings.Builder
	w := sse.NewWriter(&buf)

	require.NoError(t, w.WriteDone())
	assert.Equal(t, "data: [DONE]\n\n", buf.String())
}

type errWriter struct{}

func (errWriter) Write(p []byte) (int, error) { return 0, errors.New("write failed") }

func TestWriterPropagatesUnderlyingWriteError(t *testing.T) {
	w := sse.NewWriter(errWriter{})
	assert.Error(t, w.WriteData("x"))
}
