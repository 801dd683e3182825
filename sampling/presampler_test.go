// presampler_test.go - Unit Tests fuer den Presampler
package sampling

import (
	"testing"

	"github.com/theroyallab/YALS/engine"
	"github.com/theroyallab/YALS/engine/enginetest"
)

// applyToLogits baut ein Kandidaten-Array und wendet den Presampler an
func applyToLogits(p *Presampler, logits []float32) *engine.TokenDataArray {
	td := engine.NewTokenDataArray(logits)
	p.Apply(td)
	return td
}

// TestBansBiasLogits testet dass Banns die Logits druecken
func TestBansBiasLogits(t *testing.T) {
	factory := enginetest.NewFactory()
	pre := NewPresampler(factory, 42)

	if pre.Active() {
		t.Fatal("Presampler ohne Banns aktiv")
	}

	pre.AddRewindBans([]engine.Token{'b'})
	if !pre.Active() {
		t.Fatal("Presampler mit Banns inaktiv")
	}

	td := applyToLogits(pre, enginetest.PreferLogits('b', 'o'))
	if got := td.SelectedToken(); got != 'o' {
		t.Errorf("SelectedToken = %d, erwartet 'o' (gebanntes 'b' verliert)", got)
	}
}

// TestBanSetsAreDisjoint testet dass Rewind- und EOS-Banns getrennt
// geloescht werden
func TestBanSetsAreDisjoint(t *testing.T) {
	factory := enginetest.NewFactory()
	pre := NewPresampler(factory, 42)

	pre.AddRewindBans([]engine.Token{'r'})
	pre.AddEOSBans([]engine.Token{enginetest.TokenEOS})

	pre.ClearRewindBans()
	if !pre.Active() {
		t.Fatal("EOS-Banns verschwanden mit den Rewind-Banns")
	}

	td := applyToLogits(pre, enginetest.PreferLogits(enginetest.TokenEOS, 'x'))
	if got := td.SelectedToken(); got != 'x' {
		t.Errorf("SelectedToken = %d, EOS-Bann wirkt nicht", got)
	}

	pre.ClearEOSBans()
	if pre.Active() {
		t.Error("Presampler ohne Banns weiterhin aktiv")
	}
}

// TestBanIsNotInfinite testet dass gebannte Token endlich bleiben:
// unter Grammatik-Constraints muss ein Rueckfall moeglich sein
func TestBanIsNotInfinite(t *testing.T) {
	factory := enginetest.NewFactory()
	pre := NewPresampler(factory, 42)
	pre.AddRewindBans([]engine.Token{'a'})

	td := applyToLogits(pre, enginetest.PreferLogits('a'))
	if !td.HasValidTokens() {
		t.Error("Bann entfernte alle gueltigen Kandidaten")
	}
}

// TestReset testet den vollstaendigen Reset
func TestReset(t *testing.T) {
	factory := enginetest.NewFactory()
	pre := NewPresampler(factory, 42)
	pre.AddRewindBans([]engine.Token{'a'})
	pre.AddEOSBans([]engine.Token{enginetest.TokenEOS})

	pre.Reset()
	if pre.Active() {
		t.Error("Presampler nach Reset aktiv")
	}

	td := applyToLogits(pre, enginetest.PreferLogits('a'))
	if got := td.SelectedToken(); got != 'a' {
		t.Errorf("SelectedToken = %d, alte Banns wirken nach Reset", got)
	}
}
