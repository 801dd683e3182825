// Package readback - Generierungs-Ressourcen
//
// Dieses Modul enthaelt das atomar referenzgezaehlte Ressourcen-Buendel
// aus Readback-Puffer und Sampler-Kette. Das Buendel wird zwischen
// Aufrufer und Worker geteilt: der Aufrufer erstellt es (Refcount 1),
// der Worker erwirbt bei der Slot-Zuweisung eine Referenz, beide Seiten
// geben unabhaengig frei.
package readback

import (
	"sync/atomic"

	"github.com/theroyallab/YALS/engine"
)

// GenerationResources ist das geteilte Ressourcen-Buendel eines Requests.
type GenerationResources struct {
	// Buffer ist der Readback-Puffer des Requests.
	Buffer *Buffer

	// Sampler ist die Sampler-Kette des Aufrufers.
	Sampler engine.Sampler

	refCount atomic.Int32
}

// NewGenerationResources erstellt ein Buendel mit Refcount 1.
func NewGenerationResources(sampler engine.Sampler) *GenerationResources {
	g := &GenerationResources{
		Buffer:  NewBuffer(),
		Sampler: sampler,
	}
	g.refCount.Store(1)
	return g
}

// Acquire erhoeht den Refcount und gibt das Buendel zurueck.
func (g *GenerationResources) Acquire() *GenerationResources {
	g.refCount.Add(1)
	return g
}

// Release gibt eine Referenz frei. Faellt der Refcount auf 0, werden
// Puffer und Sampler freigegeben.
func (g *GenerationResources) Release() {
	if g == nil {
		return
	}

	if g.refCount.Add(-1) == 0 {
		g.Buffer.Annihilate()
		if g.Sampler != nil {
			g.Sampler.Free()
		}
	}
}
