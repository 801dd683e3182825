// resources_test.go - Unit Tests fuer das Ressourcen-Buendel
package readback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/theroyallab/YALS/engine"
)

// trackedSampler zaehlt Freigaben
type trackedSampler struct {
	freed int
}

func (s *trackedSampler) Apply(td *engine.TokenDataArray) {}
func (s *trackedSampler) Accept(token engine.Token)       {}
func (s *trackedSampler) Free()                           { s.freed++ }

// TestRefCounting testet Acquire/Release-Paare
func TestRefCounting(t *testing.T) {
	sampler := &trackedSampler{}
	res := NewGenerationResources(sampler)

	// Worker erwirbt eine zweite Referenz
	worker := res.Acquire()
	assert.Same(t, res, worker)

	res.Release()
	assert.Equal(t, 0, sampler.freed, "Buendel lebt solange eine Referenz existiert")

	// Puffer bleibt nutzbar
	res.Buffer.Write("x", 1)
	assert.Equal(t, 1, res.Buffer.Len())

	worker.Release()
	assert.Equal(t, 1, sampler.freed, "letzte Freigabe gibt den Sampler frei")

	// Puffer ist danach annihiliert
	_, _, ok := res.Buffer.ReadNext()
	assert.False(t, ok)
}

// TestReleaseNil testet die nil-Sicherheit
func TestReleaseNil(t *testing.T) {
	var res *GenerationResources
	assert.NotPanics(t, func() { res.Release() })
}
