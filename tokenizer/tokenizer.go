// Package tokenizer - Tokenizer-Fassade
//
// Dieses Modul enthaelt:
// - Tokenizer: duenner Adapter ueber die Engine-Tokenisierung
// - EndpointTokenize / EndpointDetokenize: Endpunkt-Hilfsfunktionen
package tokenizer

import (
	"fmt"

	"github.com/theroyallab/YALS/engine"
)

// Tokenizer ist ein duenner Adapter ueber Engine-Tokenisierung und
// Vokabular-Abfragen.
type Tokenizer struct {
	model engine.Model
}

// NewTokenizer erstellt eine Fassade ueber dem Modell.
func NewTokenizer(model engine.Model) *Tokenizer {
	return &Tokenizer{model: model}
}

// Tokenize zerlegt Text in Token-Ids.
func (t *Tokenizer) Tokenize(text string, addSpecial, parseSpecial bool) ([]engine.Token, error) {
	tokens, err := t.model.Tokenize(text, addSpecial, parseSpecial)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize: %w", err)
	}
	return tokens, nil
}

// Detokenize setzt Token-Ids zu Text zusammen.
func (t *Tokenizer) Detokenize(tokens []engine.Token, addSpecial, parseSpecial bool) (string, error) {
	text, err := t.model.Detokenize(tokens, addSpecial, parseSpecial)
	if err != nil {
		return "", fmt.Errorf("failed to detokenize: %w", err)
	}
	return text, nil
}

// IsEOS prueft auf das End-of-Sequence Token.
func (t *Tokenizer) IsEOS(token engine.Token) bool {
	return token == t.model.TokenEOS()
}

// IsEOG prueft auf End-of-Generation (EOS, EOT und Varianten).
func (t *Tokenizer) IsEOG(token engine.Token) bool {
	return t.model.TokenIsEOG(token)
}

// EndpointTokenize tokenisiert fuer den Endpunkt-Aufrufer. Das erste
// Element des Ergebnisses ist die Token-Anzahl.
func EndpointTokenize(model engine.Model, text string, addSpecial, parseSpecial bool) ([]int32, error) {
	tokens, err := model.Tokenize(text, addSpecial, parseSpecial)
	if err != nil {
		return nil, err
	}

	result := make([]int32, 0, len(tokens)+1)
	result = append(result, int32(len(tokens)))
	result = append(result, tokens...)
	return result, nil
}

// EndpointDetokenize detokenisiert fuer den Endpunkt-Aufrufer. maxBytes > 0
// begrenzt die Ergebnislaenge.
func EndpointDetokenize(model engine.Model, tokens []engine.Token, maxBytes int, addSpecial, parseSpecial bool) (string, error) {
	text, err := model.Detokenize(tokens, addSpecial, parseSpecial)
	if err != nil {
		return "", err
	}
	if maxBytes > 0 && len(text) > maxBytes {
		text = text[:maxBytes]
	}
	return text, nil
}
