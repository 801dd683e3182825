// Package engine - Modell- und Vokabular-Schnittstelle
//
// Dieses Modul enthaelt:
// - Model: geladenes Modell mit Tokenisierung und Vokabular-Abfragen
package engine

// Model ist ein geladenes Modell.
//
// Tokenize und Detokenize folgen der Backend-Konvention: addSpecial steuert
// das Einfuegen/Entfernen von BOS, parseSpecial die Behandlung von
// Spezial-Token-Text.
type Model interface {
	// Tokenize zerlegt Text in Token-Ids.
	Tokenize(text string, addSpecial bool, parseSpecial bool) ([]Token, error)

	// Detokenize setzt Token-Ids zu Text zusammen.
	Detokenize(tokens []Token, addSpecial bool, parseSpecial bool) (string, error)

	// TokenToPiece gibt das Text-Fragment eines einzelnen Tokens zurueck.
	// Das Fragment kann unvollstaendige UTF-8-Sequenzen enthalten.
	TokenToPiece(token Token, parseSpecial bool) string

	// NumVocab gibt die Vokabular-Groesse zurueck.
	NumVocab() int

	// TokenBOS gibt das Beginning-of-Sequence Token zurueck.
	TokenBOS() Token

	// TokenEOS gibt das End-of-Sequence Token zurueck.
	TokenEOS() Token

	// TokenEOT gibt das End-of-Turn Token zurueck.
	TokenEOT() Token

	// AddBOSToken gibt an ob das Modell ein fuehrendes BOS erwartet.
	AddBOSToken() bool

	// TokenIsEOG prueft ob das Token eine End-of-Generation Markierung ist
	// (EOS, EOT oder modellspezifische Varianten).
	TokenIsEOG(token Token) bool

	// Free gibt die Modell-Ressourcen frei.
	Free()
}
