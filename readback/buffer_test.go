// buffer_test.go - Unit Tests fuer den Readback-Puffer
package readback

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theroyallab/YALS/engine"
)

// TestWriteReadOrder testet die Frame-Reihenfolge und die parallelen Arrays
func TestWriteReadOrder(t *testing.T) {
	buf := NewBuffer()
	buf.Write("he", 1)
	buf.Write("llo", 2)

	text, token, ok := buf.ReadNext()
	require.True(t, ok)
	assert.Equal(t, "he", text)
	assert.Equal(t, engine.Token(1), token)

	text, token, ok = buf.ReadNext()
	require.True(t, ok)
	assert.Equal(t, "llo", text)
	assert.Equal(t, engine.Token(2), token)

	_, _, ok = buf.ReadNext()
	assert.False(t, ok, "ReadNext nach dem Ende muss false liefern")
}

// TestFinishSemantics testet das einmalige Setzen des Status
func TestFinishSemantics(t *testing.T) {
	buf := NewBuffer()
	buf.Write("x", 1)

	_, ok := buf.ReadStatus()
	assert.False(t, ok, "Status vor Finish")
	assert.False(t, buf.IsFinished())

	buf.Finish(`{"finishReason":"StopToken"}`)

	// IsFinished erst wenn auch alles gelesen ist
	assert.False(t, buf.IsFinished())
	_, _, _ = buf.ReadNext()
	assert.True(t, buf.IsFinished())

	status, ok := buf.ReadStatus()
	require.True(t, ok)
	assert.Equal(t, `{"finishReason":"StopToken"}`, status)

	// Zweites Finish und spaete Writes sind No-ops
	buf.Finish(`{"finishReason":"Aborted"}`)
	buf.Write("late", 9)

	status, _ = buf.ReadStatus()
	assert.Equal(t, `{"finishReason":"StopToken"}`, status)
	assert.Equal(t, 1, buf.Len())
}

// TestReset testet die Wiederverwendung
func TestReset(t *testing.T) {
	buf := NewBuffer()
	buf.Write("x", 1)
	buf.Finish("done")

	buf.Reset()

	assert.Equal(t, 0, buf.Len())
	assert.False(t, buf.IsFinished())
	_, ok := buf.ReadStatus()
	assert.False(t, ok)

	buf.Write("y", 2)
	text, _, ok := buf.ReadNext()
	require.True(t, ok)
	assert.Equal(t, "y", text)
}

// TestAnnihilate testet die endgueltige Freigabe
func TestAnnihilate(t *testing.T) {
	buf := NewBuffer()
	buf.Write("x", 1)
	buf.Annihilate()

	_, _, ok := buf.ReadNext()
	assert.False(t, ok)
	buf.Write("y", 2)
	assert.Equal(t, 0, buf.Len())
}

// TestConcurrentProducerConsumer testet Producer und Consumer unter Last
func TestConcurrentProducerConsumer(t *testing.T) {
	buf := NewBuffer()
	const frames = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < frames; i++ {
			buf.Write("f", engine.Token(i))
		}
		buf.Finish("done")
	}()

	read := 0
	for !buf.IsFinished() {
		if _, token, ok := buf.ReadNext(); ok {
			assert.Equal(t, engine.Token(read), token, "Frames in Schreib-Reihenfolge")
			read++
		}
	}
	wg.Wait()
	assert.Equal(t, frames, read)
}
