// Package enginetest - Test-Kontext
//
// Dieses Modul enthaelt den Test-Kontext: eine In-Memory-Nachbildung des
// KV-Speichers mit skriptbaren Logits. Der Kontext fuehrt pro Sequenz die
// tatsaechlich dekodierten (Position, Token)-Zellen, damit Tests die
// KV-Invarianten direkt gegen die Slot-Historie pruefen koennen.
package enginetest

import (
	"fmt"
	"sync"

	"github.com/theroyallab/YALS/engine"
)

type cell struct {
	pos   int32
	token engine.Token
}

// ScriptFunc liefert die Logits fuer eine Logit-Zeile. history ist die
// komplette dekodierte Token-Folge der Sequenz einschliesslich der Zeile
// selbst, in Positions-Reihenfolge.
type ScriptFunc func(seqID int, history []engine.Token) []float32

// Context ist der Test-Kontext.
type Context struct {
	model *Model

	numCtx   int
	numBatch int

	// Script liefert die Logits der dekodierten Logit-Zeilen.
	Script ScriptFunc

	// DecodeErr wird, wenn gesetzt, vom naechsten Decode zurueckgegeben
	// und dann geloescht.
	DecodeErr error

	// CanDefrag schaltet die Defragmentierungs-Unterstuetzung frei.
	CanDefrag bool

	mu      sync.Mutex
	cells   map[int][]cell
	logits  map[int][]float32
	abortCb func() bool
	decodes int
	defrags int
}

// NewContext erstellt einen Test-Kontext.
func NewContext(model *Model, numCtx, numBatch int) *Context {
	return &Context{
		model:    model,
		numCtx:   numCtx,
		numBatch: numBatch,
		cells:    make(map[int][]cell),
		logits:   make(map[int][]float32),
	}
}

// Model gibt das Modell zurueck.
func (c *Context) Model() engine.Model { return c.model }

// NumCtx gibt die Kontextlaenge zurueck.
func (c *Context) NumCtx() int { return c.numCtx }

// BatchSize gibt die Batch-Kapazitaet zurueck.
func (c *Context) BatchSize() int { return c.numBatch }

// Decode nimmt die Batch-Zeilen in den KV-Speicher auf und berechnet die
// Logits der markierten Zeilen ueber das Skript.
func (c *Context) Decode(batch *engine.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.abortCb != nil && c.abortCb() {
		return engine.ErrDecodeAborted
	}
	if c.DecodeErr != nil {
		err := c.DecodeErr
		c.DecodeErr = nil
		return err
	}
	if batch.NumTokens() > c.numBatch {
		return fmt.Errorf("enginetest: batch of %d exceeds capacity %d", batch.NumTokens(), c.numBatch)
	}

	clear(c.logits)

	for i := 0; i < batch.NumTokens(); i++ {
		seqID := batch.SeqIDs[i]
		c.cells[seqID] = append(c.cells[seqID], cell{pos: batch.Pos[i], token: batch.Tokens[i]})

		if batch.Logits[i] {
			if c.Script == nil {
				return fmt.Errorf("enginetest: no script for logits row %d", i)
			}
			c.logits[i] = c.Script(seqID, c.seqTokensLocked(seqID))
		}
	}

	c.decodes++
	return nil
}

// DecodeCount gibt die Anzahl erfolgreicher Decode-Aufrufe zurueck.
func (c *Context) DecodeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decodes
}

// DefragCount gibt die Anzahl der Defragmentierungs-Anforderungen zurueck.
func (c *Context) DefragCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defrags
}

// Logits gibt die Logits der Batch-Zeile zurueck.
func (c *Context) Logits(iBatch int) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logits[iBatch]
}

// MemorySeqRemove entfernt die Zellen der Sequenz im Bereich [p0, p1).
func (c *Context) MemorySeqRemove(seqID int, p0, p1 int32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.cells[seqID][:0]
	for _, cl := range c.cells[seqID] {
		if cl.pos >= p0 && (p1 < 0 || cl.pos < p1) {
			continue
		}
		kept = append(kept, cl)
	}
	c.cells[seqID] = kept
}

// MemorySeqPosMax gibt die groesste Position der Sequenz zurueck.
func (c *Context) MemorySeqPosMax(seqID int) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	max := int32(-1)
	for _, cl := range c.cells[seqID] {
		if cl.pos > max {
			max = cl.pos
		}
	}
	return max
}

// MemoryClear leert den KV-Speicher.
func (c *Context) MemoryClear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.cells)
}

// MemoryUsedCells gibt die Gesamtzahl belegter Zellen zurueck.
func (c *Context) MemoryUsedCells() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	used := 0
	for _, cells := range c.cells {
		used += len(cells)
	}
	return used
}

// MemoryCanDefrag gibt die Defragmentierungs-Unterstuetzung zurueck.
func (c *Context) MemoryCanDefrag() bool { return c.CanDefrag }

// MemoryDefrag zaehlt die Anforderung.
func (c *Context) MemoryDefrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defrags++
}

// SetAbortCallback registriert den Abort-Callback.
func (c *Context) SetAbortCallback(fn func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortCb = fn
}

// Free gibt den Kontext frei.
func (c *Context) Free() {}

func (c *Context) seqTokensLocked(seqID int) []engine.Token {
	cells := c.cells[seqID]
	byPos := make(map[int32]engine.Token, len(cells))
	max := int32(-1)
	for _, cl := range cells {
		byPos[cl.pos] = cl.token
		if cl.pos > max {
			max = cl.pos
		}
	}

	tokens := make([]engine.Token, 0, len(byPos))
	for pos := int32(0); pos <= max; pos++ {
		if token, ok := byPos[pos]; ok {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// SeqTokens gibt die dekodierte Token-Folge der Sequenz in
// Positions-Reihenfolge zurueck.
func (c *Context) SeqTokens(seqID int) []engine.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seqTokensLocked(seqID)
}
