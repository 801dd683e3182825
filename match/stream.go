// Package match - Sequenz-Stream
//
// Dieses Modul enthaelt den Sequenz-Stream: einen rollenden Textpuffer
// ueber dem Match-Trie. Pro Append wird der Puffer klassifiziert und dem
// Aufrufer mitgeteilt wie der Processor fortfahren soll (annehmen,
// puffern, stoppen, zurueckspulen, Regel ausloesen).
package match

// Status ist die Klassifikation eines Appends. Bit-Flags, damit Regeln
// Status-Masken formulieren koennen.
type Status uint

const (
	// StatusAccept - Pufferinhalt ist sicher, kann emittiert werden.
	StatusAccept Status = 1 << iota

	// StatusBuffer - Teiltreffer moeglich, nichts emittieren.
	StatusBuffer

	// StatusStop - Stop-Muster getroffen, Generierung beenden.
	StatusStop

	// StatusRewind - Rewind-Muster getroffen, Slot zuruecksetzen.
	StatusRewind

	// StatusRule - Benutzer-Muster getroffen, nur Regeln informieren.
	StatusRule
)

// SequenceContext ist das Ergebnis eines Appends.
type SequenceContext struct {
	Status Status

	// Piece ist das soeben angehaengte Fragment.
	Piece string

	// Sequence ist der Pufferinhalt zum Zeitpunkt der Klassifikation.
	Sequence string

	// Unmatched ist der Puffertext vor dem Treffer (STOP und RULE).
	Unmatched string

	// StopLiteral ist das getroffene Literal (STOP).
	StopLiteral string

	// MatchedIDs ist die Id-Menge des Treffers fuer die Regel-Engine.
	MatchedIDs map[int]struct{}
}

// SequenceStream ueberwacht Sequenz-Ereignisse im Inferenz-Strom.
type SequenceStream struct {
	trie   *Trie
	buffer string
}

// NewSequenceStream erstellt einen Stream ohne gebundene Muster.
func NewSequenceStream() *SequenceStream {
	return &SequenceStream{trie: NewTrie()}
}

// BindSequences ersetzt den Trie durch einen frischen mit den gegebenen
// Stop- und Rewind-Mustern und leert den Puffer. Benutzer-Bindungen
// frueherer Requests verfallen dabei.
func (s *SequenceStream) BindSequences(stop, rewind []string) {
	s.trie = NewTrie()
	s.trie.Add(stop, IDStop)
	s.trie.Add(rewind, IDRewind)
	s.buffer = ""
}

// BindSequence bindet Benutzer-Muster und gibt die vergebene Id zurueck.
func (s *SequenceStream) BindSequence(patterns []string) int {
	return s.trie.Bind(patterns)
}

// Unbind entfernt eine Benutzer-Bindung.
func (s *SequenceStream) Unbind(id int) {
	s.trie.Remove(id)
}

// Buffer gibt den aktuellen Pufferinhalt zurueck (fuer Snapshots).
func (s *SequenceStream) Buffer() string {
	return s.buffer
}

// SetBuffer ersetzt den Pufferinhalt (fuer Rewinds).
func (s *SequenceStream) SetBuffer(buffer string) {
	s.buffer = buffer
}

// Reset leert den Puffer.
func (s *SequenceStream) Reset() {
	s.buffer = ""
}

// Append haengt ein Fragment an und klassifiziert den Puffer.
func (s *SequenceStream) Append(piece string) SequenceContext {
	s.buffer += piece

	seqCtx := SequenceContext{
		Piece:    piece,
		Sequence: s.buffer,
	}

	result, m := s.trie.CheckBuffer(s.buffer)
	switch result {
	case ResultNo:
		seqCtx.Status = StatusAccept
		s.buffer = ""

	case ResultMaybe:
		seqCtx.Status = StatusBuffer

	case ResultMatched:
		seqCtx.MatchedIDs = m.IDs

		if _, ok := m.IDs[IDStop]; ok {
			seqCtx.Status = StatusStop
			seqCtx.Unmatched = m.Prefix
			seqCtx.StopLiteral = m.Literal
			s.buffer = ""
			break
		}
		if _, ok := m.IDs[IDRewind]; ok {
			seqCtx.Status = StatusRewind
			s.buffer = ""
			break
		}

		// Nur Benutzer-Ids: konsumierten Teil melden, Rest weiterpuffern
		seqCtx.Status = StatusRule
		seqCtx.Unmatched = m.Prefix
		seqCtx.Sequence = s.buffer[:len(s.buffer)-len(m.Remainder)]
		s.buffer = m.Remainder
	}

	return seqCtx
}
