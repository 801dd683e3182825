// Package sampling - Mehrstufiges Sampling
//
// Dieses Modul enthaelt den mehrstufigen Sampler eines Slots. Die Stufen
// laufen ueber einem expliziten Kandidaten-Array:
//
//	Constraint (Grammatik) -> Presampler (Banns) -> Aufrufer-Kette
//
// Die Aufrufer-Kette bleibt dabei unveraendert. Laesst die Grammatik
// keinen gueltigen Kandidaten uebrig, wird EOT substituiert und das
// Generierungsende signalisiert.
package sampling

import "github.com/theroyallab/YALS/engine"

// grammarKind ist die Grammatik-Sprache des Constraint-Samplers.
const grammarKind = "lark"

// Multistage ist der Sampler eines Slots.
type Multistage struct {
	model   engine.Model
	factory engine.SamplerFactory

	// Pre ist die Bann-Stufe des Slots.
	Pre *Presampler

	constraint engine.Sampler
	user       engine.Sampler
}

// NewMultistage erstellt einen Sampler ohne Constraint und ohne
// Aufrufer-Kette.
func NewMultistage(model engine.Model, factory engine.SamplerFactory, seed uint32) *Multistage {
	return &Multistage{
		model:   model,
		factory: factory,
		Pre:     NewPresampler(factory, seed),
	}
}

// SetUserSampler setzt die Sampler-Kette des Aufrufers. Die Kette wird
// vom Ressourcen-Buendel besessen und hier nicht freigegeben.
func (m *Multistage) SetUserSampler(s engine.Sampler) {
	m.user = s
}

// Constrain installiert einen Grammatik-Constraint. Ein bestehender
// Constraint wird ersetzt.
func (m *Multistage) Constrain(grammar string) {
	if m.constraint != nil {
		m.constraint.Free()
	}
	m.constraint = m.factory.LLGuidance(grammarKind, grammar)
}

// RemoveConstraint entfernt den Grammatik-Constraint.
func (m *Multistage) RemoveConstraint() {
	if m.constraint != nil {
		m.constraint.Free()
		m.constraint = nil
	}
}

// Constrained prueft ob ein Constraint installiert ist.
func (m *Multistage) Constrained() bool {
	return m.constraint != nil
}

func (m *Multistage) acceptAll(token engine.Token) {
	if m.constraint != nil {
		m.constraint.Accept(token)
	}
	m.Pre.Accept(token)
	if m.user != nil {
		m.user.Accept(token)
	}
}

// Sample zieht das naechste Token aus der Batch-Zeile iBatch. Das zweite
// Ergebnis ist false wenn die Constraints keinen gueltigen Kandidaten
// uebrig liessen; in diesem Fall wurde EOT substituiert und der Slot
// soll die Generierung beenden.
func (m *Multistage) Sample(ctx engine.Context, iBatch int) (engine.Token, bool) {
	td := engine.NewTokenDataArray(ctx.Logits(iBatch))

	// Constraints zuerst, sie sind verpflichtend
	if m.constraint != nil {
		m.constraint.Apply(td)
	}

	// Danach die Bann-Stufe
	m.Pre.Apply(td)

	if !td.HasValidTokens() {
		eot := m.model.TokenEOT()
		m.acceptAll(eot)
		return eot, false
	}

	if m.user != nil {
		m.user.Apply(td)
	}

	token := td.SelectedToken()
	m.acceptAll(token)
	return token, true
}

// Reset entfernt Constraint und Banns. Die Aufrufer-Kette bleibt beim
// Ressourcen-Buendel.
func (m *Multistage) Reset() {
	m.RemoveConstraint()
	m.Pre.Reset()
	m.user = nil
}
