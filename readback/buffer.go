// Package readback - Readback-Puffer
//
// Dieses Modul enthaelt den Readback-Puffer: eine mutex-geschuetzte
// Single-Producer/Single-Consumer Warteschlange von (Text, Token)-Frames
// plus einem einmaligen Status-Datensatz. Der Worker schreibt, der
// Aufrufer liest; beide Seiten serialisiert ein einzelner Mutex.
package readback

import (
	"sync"

	"github.com/theroyallab/YALS/engine"
)

// Buffer puffert generierte Frames und den finalen Status eines Requests.
//
// Invarianten: Frames und Token-Ids sind gleich lang; Schreiben ist
// append-only; nach Finish folgen keine weiteren Schreibzugriffe;
// der Lese-Cursor ueberschreitet die Framezahl nicht.
type Buffer struct {
	mu sync.Mutex

	frames []string
	ids    []engine.Token
	cursor int

	finished  bool
	status    string
	hasStatus bool

	destroyed bool
}

// NewBuffer erstellt einen leeren Puffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Write haengt einen Frame an. Nach Finish oder Annihilate ein No-op.
func (b *Buffer) Write(text string, token engine.Token) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished || b.destroyed {
		return
	}

	b.frames = append(b.frames, text)
	b.ids = append(b.ids, token)
}

// Finish setzt den Status-Datensatz und markiert den Puffer als
// fertig geschrieben. Nur der erste Aufruf wirkt.
func (b *Buffer) Finish(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished || b.destroyed {
		return
	}

	b.finished = true
	b.status = status
	b.hasStatus = true
}

// ReadNext gibt den naechsten ungelesenen Frame zurueck, false wenn
// aktuell keiner vorliegt.
func (b *Buffer) ReadNext() (string, engine.Token, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed || b.cursor >= len(b.frames) {
		return "", 0, false
	}

	text := b.frames[b.cursor]
	token := b.ids[b.cursor]
	b.cursor++
	return text, token, true
}

// ReadStatus gibt den Status-Datensatz zurueck, false solange keiner
// gesetzt ist.
func (b *Buffer) ReadStatus() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return "", false
	}
	return b.status, b.hasStatus
}

// IsFinished prueft ob der Puffer fertig geschrieben UND vollstaendig
// gelesen ist.
func (b *Buffer) IsFinished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.finished && b.cursor == len(b.frames)
}

// Reset leert den Puffer fuer eine Wiederverwendung.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}

	b.frames = nil
	b.ids = nil
	b.cursor = 0
	b.finished = false
	b.status = ""
	b.hasStatus = false
}

// Annihilate gibt den Puffer endgueltig frei. Der Aufrufer ist dafuer
// verantwortlich danach nicht mehr in den Puffer zu greifen; die
// Referenzzaehlung des Resource-Bundles stellt das sicher.
func (b *Buffer) Annihilate() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.destroyed = true
	b.frames = nil
	b.ids = nil
	b.cursor = 0
	b.finished = false
	b.status = ""
	b.hasStatus = false
}

// Len gibt die Anzahl geschriebener Frames zurueck.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.frames)
}
