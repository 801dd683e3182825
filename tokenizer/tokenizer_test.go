// tokenizer_test.go - Unit Tests fuer die Tokenizer-Fassade
package tokenizer

import (
	"testing"

	"github.com/theroyallab/YALS/engine/enginetest"
)

// TestRoundTrip testet tokenize/detokenize als Identitaet
func TestRoundTrip(t *testing.T) {
	model := enginetest.NewModel()
	tok := NewTokenizer(model)

	tests := []string{
		"plain ascii",
		"Ümläute ünd Emöji 😀",
		"",
	}

	for _, text := range tests {
		tokens, err := tok.Tokenize(text, false, false)
		if err != nil {
			t.Fatalf("Tokenize(%q) Fehler: %v", text, err)
		}
		back, err := tok.Detokenize(tokens, false, false)
		if err != nil {
			t.Fatalf("Detokenize Fehler: %v", err)
		}
		if back != text {
			t.Errorf("Roundtrip = %q, erwartet %q", back, text)
		}
	}
}

// TestIsEOSIsEOG testet die Vokabular-Abfragen
func TestIsEOSIsEOG(t *testing.T) {
	model := enginetest.NewModel()
	tok := NewTokenizer(model)

	if !tok.IsEOS(enginetest.TokenEOS) {
		t.Error("IsEOS(EOS) = false")
	}
	if tok.IsEOS(enginetest.TokenEOT) {
		t.Error("IsEOS(EOT) = true")
	}
	if !tok.IsEOG(enginetest.TokenEOT) {
		t.Error("IsEOG(EOT) = false")
	}
	if tok.IsEOG('a') {
		t.Error("IsEOG('a') = true")
	}
}

// TestEndpointTokenize testet das Anzahl-Praefix des Endpunkts
func TestEndpointTokenize(t *testing.T) {
	model := enginetest.NewModel()

	result, err := EndpointTokenize(model, "abc", false, false)
	if err != nil {
		t.Fatalf("EndpointTokenize Fehler: %v", err)
	}
	if len(result) != 4 || result[0] != 3 {
		t.Fatalf("EndpointTokenize = %v, erwartet Anzahl 3 plus Token", result)
	}
}

// TestEndpointDetokenize testet die Byte-Begrenzung
func TestEndpointDetokenize(t *testing.T) {
	model := enginetest.NewModel()
	tokens, _ := model.Tokenize("abcdef", false, false)

	text, err := EndpointDetokenize(model, tokens, 3, false, false)
	if err != nil {
		t.Fatalf("EndpointDetokenize Fehler: %v", err)
	}
	if text != "abc" {
		t.Errorf("EndpointDetokenize = %q, erwartet %q", text, "abc")
	}
}
