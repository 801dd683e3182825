// Package enginetest - Test-Sampler
//
// Dieses Modul enthaelt die Sampler-Fabrik des Test-Backends. Die
// Verteilungs-Sampler sind absichtlich deterministisch (argmax), damit
// Tests reproduzierbar bleiben; Filter-Stufen ohne Testrelevanz sind
// Durchreichen.
package enginetest

import (
	"math"
	"strings"

	"github.com/theroyallab/YALS/engine"
)

var negInf = float32(math.Inf(-1))

// funcSampler traegt eine Apply-Funktion; Accept und Free sind No-ops.
type funcSampler struct {
	apply func(td *engine.TokenDataArray)
}

func (s *funcSampler) Apply(td *engine.TokenDataArray) {
	if s.apply != nil {
		s.apply(td)
	}
}

func (s *funcSampler) Accept(token engine.Token) {}

func (s *funcSampler) Free() {}

func selectArgmax(td *engine.TokenDataArray) {
	best := -1
	for i := range td.Data {
		if td.Data[i].Logit == negInf {
			continue
		}
		if best < 0 || td.Data[i].Logit > td.Data[best].Logit {
			best = i
		}
	}
	td.Selected = best
}

// Factory ist die Sampler-Fabrik des Test-Backends.
type Factory struct{}

// NewFactory erstellt die Fabrik.
func NewFactory() *Factory {
	return &Factory{}
}

// Greedy waehlt das Argmax der Kandidaten.
func (f *Factory) Greedy() engine.Sampler {
	return &funcSampler{apply: selectArgmax}
}

// Dist ist im Test-Backend deterministisch und waehlt ebenfalls das Argmax.
func (f *Factory) Dist(seed uint32) engine.Sampler {
	return &funcSampler{apply: selectArgmax}
}

// LogitBias addiert die Biases auf die betroffenen Token.
func (f *Factory) LogitBias(biases []engine.LogitBias) engine.Sampler {
	bias := make(map[engine.Token]float32, len(biases))
	for _, b := range biases {
		bias[b.Token] += b.Bias
	}
	return &funcSampler{apply: func(td *engine.TokenDataArray) {
		for i := range td.Data {
			if b, ok := bias[td.Data[i].ID]; ok {
				td.Data[i].Logit += b
			}
		}
	}}
}

// byteSetSampler laesst nur Token zu, deren Byte im erlaubten Satz liegt.
// Dient als Grammatik-Ersatz des Test-Backends: die "Grammatik" ist die
// Menge ihrer Bytes. Ein leerer Satz bannt alles.
func byteSetSampler(allowed string) engine.Sampler {
	return &funcSampler{apply: func(td *engine.TokenDataArray) {
		for i := range td.Data {
			token := td.Data[i].ID
			if token > 255 || strings.IndexByte(allowed, byte(token)) < 0 {
				td.Data[i].Logit = negInf
			}
		}
	}}
}

// Grammar interpretiert die Grammatik als erlaubten Byte-Satz.
func (f *Factory) Grammar(grammar, root string) engine.Sampler {
	return byteSetSampler(grammar)
}

// LLGuidance interpretiert die Grammatik als erlaubten Byte-Satz.
func (f *Factory) LLGuidance(kind, grammar string) engine.Sampler {
	return byteSetSampler(grammar)
}

func passthrough() engine.Sampler {
	return &funcSampler{}
}

// Temp ist im Test-Backend ein Durchreichen.
func (f *Factory) Temp(t float32) engine.Sampler { return passthrough() }

// TempExt ist im Test-Backend ein Durchreichen.
func (f *Factory) TempExt(t, dynatempRange, dynatempExponent float32) engine.Sampler {
	return passthrough()
}

// TopK ist im Test-Backend ein Durchreichen.
func (f *Factory) TopK(k int) engine.Sampler { return passthrough() }

// TopP ist im Test-Backend ein Durchreichen.
func (f *Factory) TopP(p float32, minKeep int) engine.Sampler { return passthrough() }

// MinP ist im Test-Backend ein Durchreichen.
func (f *Factory) MinP(p float32, minKeep int) engine.Sampler { return passthrough() }

// Typical ist im Test-Backend ein Durchreichen.
func (f *Factory) Typical(p float32, minKeep int) engine.Sampler { return passthrough() }

// Mirostat ist im Test-Backend ein Durchreichen.
func (f *Factory) Mirostat(seed uint32, tau, eta float32, m int) engine.Sampler {
	return passthrough()
}

// MirostatV2 ist im Test-Backend ein Durchreichen.
func (f *Factory) MirostatV2(seed uint32, tau, eta float32) engine.Sampler {
	return passthrough()
}

// XTC ist im Test-Backend ein Durchreichen.
func (f *Factory) XTC(probability, threshold float32, minKeep int, seed uint32) engine.Sampler {
	return passthrough()
}

// Penalties ist im Test-Backend ein Durchreichen.
func (f *Factory) Penalties(lastN int, repeat, freq, present float32) engine.Sampler {
	return passthrough()
}

// DRY ist im Test-Backend ein Durchreichen.
func (f *Factory) DRY(multiplier, base float32, allowedLength, lastN int, breakers []string) engine.Sampler {
	return passthrough()
}

// Infill ist im Test-Backend ein Durchreichen.
func (f *Factory) Infill() engine.Sampler { return passthrough() }

// TopNSigma ist im Test-Backend ein Durchreichen.
func (f *Factory) TopNSigma(n float32) engine.Sampler { return passthrough() }
