// Package sampling - Presampler
//
// Dieses Modul enthaelt den Presampler: die Rewind- und Stop-Biasing-Stufe
// des Samplings. Der Presampler verwaltet zwei getrennte Bann-Mengen
// (Rewind-Banns und EOS-Banns) und baut bei jeder Aenderung eine
// Wegwerf-Kette [logit_bias, dist] neu auf. So werden Token pro Slot
// erzwungen gebannt, ohne die Sampler-Kette des Aufrufers zu veraendern.
package sampling

import "github.com/theroyallab/YALS/engine"

// banBias ist aggressiv negativ, aber nicht -Inf: grammatik-beschraenkte
// Sampler koennen die einzige Quelle endlicher Logits sein und brauchen
// einen Rueckfall wenn jedes Token bestraft ist.
const banBias = -50000.0

// Presampler haelt die Bann-Mengen eines Slots.
type Presampler struct {
	factory engine.SamplerFactory

	// Seed fuer die dist-Stufe der Wegwerf-Kette.
	Seed uint32

	rewindBans map[engine.Token]struct{}
	eosBans    map[engine.Token]struct{}

	chain  *engine.SamplerChain
	active bool
}

// NewPresampler erstellt einen Presampler ohne Banns.
func NewPresampler(factory engine.SamplerFactory, seed uint32) *Presampler {
	return &Presampler{
		factory:    factory,
		Seed:       seed,
		rewindBans: make(map[engine.Token]struct{}),
		eosBans:    make(map[engine.Token]struct{}),
	}
}

func (p *Presampler) rebuild() {
	biases := make([]engine.LogitBias, 0, len(p.rewindBans)+len(p.eosBans))
	for token := range p.rewindBans {
		biases = append(biases, engine.LogitBias{Token: token, Bias: banBias})
	}
	for token := range p.eosBans {
		biases = append(biases, engine.LogitBias{Token: token, Bias: banBias})
	}

	p.active = len(biases) > 0

	if p.chain != nil {
		p.chain.Free()
		p.chain = nil
	}
	if p.active {
		p.chain = engine.NewSamplerChain(
			p.factory.LogitBias(biases),
			p.factory.Dist(p.Seed),
		)
	}
}

// AddRewindBans fuegt Token der Rewind-Bann-Menge hinzu.
func (p *Presampler) AddRewindBans(tokens []engine.Token) {
	for _, token := range tokens {
		p.rewindBans[token] = struct{}{}
	}
	p.rebuild()
}

// AddEOSBans fuegt Token der EOS-Bann-Menge hinzu.
func (p *Presampler) AddEOSBans(tokens []engine.Token) {
	for _, token := range tokens {
		p.eosBans[token] = struct{}{}
	}
	p.rebuild()
}

// ClearRewindBans leert die Rewind-Bann-Menge. Wird bei jedem ACCEPT
// aufgerufen.
func (p *Presampler) ClearRewindBans() {
	if len(p.rewindBans) == 0 {
		return
	}
	clear(p.rewindBans)
	p.rebuild()
}

// ClearEOSBans leert die EOS-Bann-Menge. Wird aufgerufen sobald die
// Mindest-Token-Schwelle erreicht ist.
func (p *Presampler) ClearEOSBans() {
	if len(p.eosBans) == 0 {
		return
	}
	clear(p.eosBans)
	p.rebuild()
}

// Active prueft ob Banns vorliegen.
func (p *Presampler) Active() bool {
	return p.active
}

// Apply wendet die Bann-Kette auf das Kandidaten-Array an.
func (p *Presampler) Apply(td *engine.TokenDataArray) {
	if p.active && p.chain != nil {
		p.chain.Apply(td)
	}
}

// Accept meldet das gewaehlte Token an die Bann-Kette.
func (p *Presampler) Accept(token engine.Token) {
	if p.active && p.chain != nil {
		p.chain.Accept(token)
	}
}

// Reset setzt den Presampler vollstaendig zurueck.
func (p *Presampler) Reset() {
	clear(p.rewindBans)
	clear(p.eosBans)
	p.active = false

	if p.chain != nil {
		p.chain.Free()
		p.chain = nil
	}
}
