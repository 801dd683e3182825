// Package enginetest - Deterministisches Test-Backend
//
// Dieses Modul enthaelt das Byte-Modell: ein Vokabular aus den 256
// Byte-Werten plus BOS/EOS/EOT. Tokenisierung ist ein Byte pro Token,
// damit Tests Token-Stroeme direkt aus Strings aufbauen koennen.
package enginetest

import "github.com/theroyallab/YALS/engine"

// Spezial-Token des Byte-Modells.
const (
	TokenBOS engine.Token = 256
	TokenEOS engine.Token = 257
	TokenEOT engine.Token = 258

	// NumVocab ist die Vokabular-Groesse des Byte-Modells.
	NumVocab = 259
)

// Model ist das Byte-Modell.
type Model struct {
	// AddBOS steuert ob Tokenize mit addSpecial ein BOS voranstellt.
	AddBOS bool

	freed bool
}

// NewModel erstellt ein Byte-Modell ohne BOS-Voranstellung.
func NewModel() *Model {
	return &Model{}
}

// Tokenize zerlegt den Text in ein Token pro Byte.
func (m *Model) Tokenize(text string, addSpecial, parseSpecial bool) ([]engine.Token, error) {
	tokens := make([]engine.Token, 0, len(text)+1)
	if addSpecial && m.AddBOS {
		tokens = append(tokens, TokenBOS)
	}
	for i := 0; i < len(text); i++ {
		tokens = append(tokens, engine.Token(text[i]))
	}
	return tokens, nil
}

// Detokenize setzt die Token-Fragmente zusammen.
func (m *Model) Detokenize(tokens []engine.Token, addSpecial, parseSpecial bool) (string, error) {
	out := make([]byte, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, m.TokenToPiece(token, parseSpecial)...)
	}
	return string(out), nil
}

// TokenToPiece gibt das Byte des Tokens zurueck, leer fuer Spezial-Token.
func (m *Model) TokenToPiece(token engine.Token, parseSpecial bool) string {
	if token < 0 || token > 255 {
		return ""
	}
	return string([]byte{byte(token)})
}

// NumVocab gibt die Vokabular-Groesse zurueck.
func (m *Model) NumVocab() int {
	return NumVocab
}

// TokenBOS gibt das BOS-Token zurueck.
func (m *Model) TokenBOS() engine.Token { return TokenBOS }

// TokenEOS gibt das EOS-Token zurueck.
func (m *Model) TokenEOS() engine.Token { return TokenEOS }

// TokenEOT gibt das EOT-Token zurueck.
func (m *Model) TokenEOT() engine.Token { return TokenEOT }

// AddBOSToken gibt die BOS-Konvention des Modells zurueck.
func (m *Model) AddBOSToken() bool { return m.AddBOS }

// TokenIsEOG prueft auf EOS oder EOT.
func (m *Model) TokenIsEOG(token engine.Token) bool {
	return token == TokenEOS || token == TokenEOT
}

// Free markiert das Modell als freigegeben.
func (m *Model) Free() {
	m.freed = true
}
