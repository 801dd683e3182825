// Package enginetest - Backend-Einstieg und Skript-Hilfen
//
// Dieses Modul enthaelt:
// - Backend: engine.Backend-Implementierung des Test-Backends
// - PreferLogits: Logit-Vektor mit absteigender Praeferenz-Folge
package enginetest

import (
	"github.com/theroyallab/YALS/engine"
)

// Schnittstellen-Abdeckung des Test-Backends.
var (
	_ engine.Backend        = (*Backend)(nil)
	_ engine.Model          = (*Model)(nil)
	_ engine.Context        = (*Context)(nil)
	_ engine.SamplerFactory = (*Factory)(nil)
)

// Backend ist das Test-Backend.
type Backend struct {
	factory *Factory
}

// NewBackend erstellt das Test-Backend.
func NewBackend() *Backend {
	return &Backend{factory: NewFactory()}
}

// LoadModel gibt ein frisches Byte-Modell zurueck; der Pfad wird ignoriert.
func (b *Backend) LoadModel(path string, params engine.ModelParams) (engine.Model, error) {
	if params.Progress != nil {
		params.Progress(1.0)
	}
	return NewModel(), nil
}

// NewContext erstellt einen Test-Kontext ueber dem Modell.
func (b *Backend) NewContext(model engine.Model, params engine.ContextParams) (engine.Context, error) {
	return NewContext(model.(*Model), params.NumCtx, params.NumBatch), nil
}

// Samplers gibt die Sampler-Fabrik zurueck.
func (b *Backend) Samplers() engine.SamplerFactory {
	return b.factory
}

// PreferLogits baut einen Logit-Vektor: das erste Token erhaelt den
// hoechsten Wert, jedes weitere 100 weniger, alle uebrigen 0. Zusammen
// mit dem Argmax-Sampling ergibt das eine Praeferenz-Folge, die unter
// Presampler-Banns (-50000) auf die naechste Praeferenz zurueckfaellt.
func PreferLogits(preferred ...engine.Token) []float32 {
	logits := make([]float32, NumVocab)
	score := float32(100 * len(preferred))
	for _, token := range preferred {
		logits[token] = score
		score -= 100
	}
	return logits
}
