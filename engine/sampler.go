// Package engine - Sampler-Schnittstelle und Sampler-Kette
//
// Dieses Modul enthaelt:
// - TokenData / TokenDataArray: Kandidaten-Array fuer das Sampling
// - Sampler: einzelner Sampler-Schritt
// - SamplerChain: Kette von Sampler-Schritten
// - SamplerFactory: Enumeration der Backend-Sampler-Konstruktoren
package engine

import "math"

// TokenData ist ein Sampling-Kandidat.
type TokenData struct {
	ID    Token
	Logit float32
	P     float32
}

// TokenDataArray ist das Kandidaten-Array eines Sampling-Schritts.
// Selected ist der Index des gewaehlten Kandidaten, -1 wenn noch keiner
// gewaehlt wurde.
type TokenDataArray struct {
	Data     []TokenData
	Selected int
	Sorted   bool
}

// NewTokenDataArray baut das Kandidaten-Array aus rohen Logits auf.
func NewTokenDataArray(logits []float32) *TokenDataArray {
	data := make([]TokenData, len(logits))
	for i, logit := range logits {
		data[i] = TokenData{ID: Token(i), Logit: logit}
	}
	return &TokenDataArray{Data: data, Selected: -1}
}

// HasValidTokens prueft ob mindestens ein Kandidat einen endlichen Logit hat.
func (td *TokenDataArray) HasValidTokens() bool {
	for i := range td.Data {
		if td.Data[i].Logit != float32(math.Inf(-1)) {
			return true
		}
	}
	return false
}

// SelectedToken gibt das gewaehlte Token zurueck. Faellt auf das Argmax
// zurueck wenn kein Schritt der Kette eine Auswahl getroffen hat.
func (td *TokenDataArray) SelectedToken() Token {
	if td.Selected >= 0 && td.Selected < len(td.Data) {
		return td.Data[td.Selected].ID
	}

	best := 0
	for i := range td.Data {
		if td.Data[i].Logit > td.Data[best].Logit {
			best = i
		}
	}
	return td.Data[best].ID
}

// Sampler ist ein einzelner Sampling-Schritt. Apply darf das Kandidaten-Array
// filtern, umgewichten, sortieren oder eine Auswahl treffen.
type Sampler interface {
	Apply(td *TokenDataArray)
	Accept(token Token)
	Free()
}

// SamplerChain fuehrt Sampler-Schritte in Reihenfolge aus.
type SamplerChain struct {
	samplers []Sampler
}

// NewSamplerChain erstellt eine Kette aus den gegebenen Schritten.
func NewSamplerChain(samplers ...Sampler) *SamplerChain {
	return &SamplerChain{samplers: samplers}
}

// Add haengt einen Schritt an die Kette an.
func (c *SamplerChain) Add(s Sampler) {
	c.samplers = append(c.samplers, s)
}

// Remove entfernt den Schritt am Index i und gibt ihn zurueck, ohne ihn
// freizugeben.
func (c *SamplerChain) Remove(i int) Sampler {
	s := c.samplers[i]
	c.samplers = append(c.samplers[:i], c.samplers[i+1:]...)
	return s
}

// Len gibt die Anzahl der Schritte zurueck.
func (c *SamplerChain) Len() int {
	return len(c.samplers)
}

// Apply fuehrt alle Schritte in Reihenfolge aus.
func (c *SamplerChain) Apply(td *TokenDataArray) {
	for _, s := range c.samplers {
		s.Apply(td)
	}
}

// Accept meldet das gewaehlte Token an alle Schritte.
func (c *SamplerChain) Accept(token Token) {
	for _, s := range c.samplers {
		s.Accept(token)
	}
}

// Free gibt alle Schritte frei.
func (c *SamplerChain) Free() {
	for _, s := range c.samplers {
		s.Free()
	}
	c.samplers = nil
}

// LogitBias ist ein additiver Logit-Eingriff fuer ein einzelnes Token.
type LogitBias struct {
	Token Token
	Bias  float32
}

// SamplerFactory enumeriert die Sampler-Konstruktoren des Backends.
// Die Konstruktoren entsprechen den nativen Initialisierern; jeder erzeugte
// Sampler ist mit Free zu paaren sofern er nicht in eine Kette uebergeben
// wird die ihn freigibt.
type SamplerFactory interface {
	Greedy() Sampler
	Dist(seed uint32) Sampler
	Temp(t float32) Sampler
	TempExt(t, dynatempRange, dynatempExponent float32) Sampler
	TopK(k int) Sampler
	TopP(p float32, minKeep int) Sampler
	MinP(p float32, minKeep int) Sampler
	Typical(p float32, minKeep int) Sampler
	Mirostat(seed uint32, tau, eta float32, m int) Sampler
	MirostatV2(seed uint32, tau, eta float32) Sampler
	XTC(probability, threshold float32, minKeep int, seed uint32) Sampler
	Penalties(lastN int, repeat, freq, present float32) Sampler
	DRY(multiplier, base float32, allowedLength, lastN int, breakers []string) Sampler
	LogitBias(biases []LogitBias) Sampler
	Infill() Sampler
	Grammar(grammar, root string) Sampler
	TopNSigma(n float32) Sampler
	LLGuidance(kind, grammar string) Sampler
}
