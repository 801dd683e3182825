// Package engine - Kontext-Schnittstelle
//
// Dieses Modul enthaelt:
// - Context: Decode, Logits und KV-Speicher-Operationen eines Kontexts
package engine

// Context ist ein Inferenz-Kontext ueber einem Modell. Ein Kontext traegt
// einen physischen KV-Cache, der logisch in Sequenzen (seq-Ids) unterteilt
// ist. Alle Methoden sind nur vom besitzenden Worker aufzurufen; einzig der
// Abort-Callback wird vom Backend waehrend Decode konsultiert.
type Context interface {
	// Model gibt das Modell des Kontexts zurueck.
	Model() Model

	// NumCtx gibt die Kontextlaenge zurueck.
	NumCtx() int

	// BatchSize gibt die logische Batch-Kapazitaet (n_batch) zurueck.
	BatchSize() int

	// Decode fuehrt einen Forward-Pass ueber den Batch aus.
	// Gibt ErrDecodeAborted zurueck wenn der Abort-Callback ausgeloest hat;
	// jeder andere Fehler ist nicht wiederholbar.
	Decode(batch *Batch) error

	// Logits gibt die Logits der Batch-Zeile iBatch zurueck. Nur gueltig
	// fuer Zeilen die mit Logits-Flag dekodiert wurden.
	Logits(iBatch int) []float32

	// MemorySeqRemove entfernt die KV-Zellen der Sequenz im Positionsbereich
	// [p0, p1). p1 < 0 bedeutet bis zum Ende.
	MemorySeqRemove(seqID int, p0, p1 int32)

	// MemorySeqPosMax gibt die groesste Position der Sequenz zurueck,
	// -1 wenn die Sequenz leer ist.
	MemorySeqPosMax(seqID int) int32

	// MemoryClear entfernt alle KV-Zellen aller Sequenzen.
	MemoryClear()

	// MemoryUsedCells gibt die Anzahl belegter KV-Zellen zurueck.
	MemoryUsedCells() int

	// MemoryCanDefrag gibt an ob das Backend Defragmentierung unterstuetzt.
	MemoryCanDefrag() bool

	// MemoryDefrag fordert eine Defragmentierung des KV-Speichers an.
	MemoryDefrag()

	// SetAbortCallback registriert den kooperativen Abort-Callback fuer
	// Decode. Gibt der Callback true zurueck, bricht der Decode mit
	// ErrDecodeAborted ab.
	SetAbortCallback(fn func() bool)

	// Free gibt den Kontext frei.
	Free()
}
