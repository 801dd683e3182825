// Package tokenizer - Streaming-Detokenizer
//
// Dieses Modul enthaelt:
// - StreamDetokenizer: wandelt einen Token-Strom in gueltige UTF-8-Fragmente
// - validUTF8Prefix: Laenge des laengsten gueltigen UTF-8-Praefixes
//
// Mehrbyte-Codepoints koennen ueber Token-Grenzen verteilt sein. Der
// Detokenizer puffert unvollstaendige Sequenzen und emittiert nur
// vollstaendige Codepoints.
package tokenizer

import "github.com/theroyallab/YALS/engine"

// validUTF8Prefix gibt die Laenge des laengsten gueltigen UTF-8-Praefixes
// zurueck. Ein ungueltiges Lead-Byte beendet den gueltigen Lauf an seiner
// Position.
func validUTF8Prefix(buf []byte) int {
	i := 0
	for i < len(buf) {
		c := buf[i]

		var n int
		switch {
		case c&0x80 == 0x00:
			n = 1
		case c&0xE0 == 0xC0:
			n = 2
		case c&0xF0 == 0xE0:
			n = 3
		case c&0xF8 == 0xF0:
			n = 4
		default:
			return i
		}

		if i+n > len(buf) {
			return i
		}
		for j := 1; j < n; j++ {
			if buf[i+j]&0xC0 != 0x80 {
				return i
			}
		}
		i += n
	}
	return i
}

// StreamDetokenizer akkumuliert Token-Fragmente und emittiert nur
// vollstaendige UTF-8-Praefixe.
type StreamDetokenizer struct {
	model  engine.Model
	buffer []byte
}

// NewStreamDetokenizer erstellt einen Detokenizer ueber dem Modell.
func NewStreamDetokenizer(model engine.Model) *StreamDetokenizer {
	return &StreamDetokenizer{model: model}
}

// ProcessToken haengt das Fragment des Tokens an und gibt den laengsten
// gueltigen UTF-8-Praefix des Puffers zurueck. Der Rest bleibt gepuffert.
func (d *StreamDetokenizer) ProcessToken(token engine.Token, parseSpecial bool) string {
	piece := d.model.TokenToPiece(token, parseSpecial)
	d.buffer = append(d.buffer, piece...)

	valid := validUTF8Prefix(d.buffer)
	if valid == 0 {
		return ""
	}

	result := string(d.buffer[:valid])
	d.buffer = append(d.buffer[:0], d.buffer[valid:]...)
	return result
}

// Flush gibt den restlichen Pufferinhalt zurueck und leert den Puffer.
// Wird beim Slot-Ende verwendet, damit kein Rest verloren geht.
func (d *StreamDetokenizer) Flush() string {
	result := string(d.buffer)
	d.buffer = d.buffer[:0]
	return result
}

// HasIncomplete prueft ob noch Bytes gepuffert sind.
func (d *StreamDetokenizer) HasIncomplete() bool {
	return len(d.buffer) > 0
}

// Reset leert den Puffer. Erforderlich bei Rewind und Slot-Ende.
func (d *StreamDetokenizer) Reset() {
	d.buffer = d.buffer[:0]
}
