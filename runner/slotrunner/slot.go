// Package slotrunner - Slot-Verwaltung
//
// Dieses Modul enthaelt:
// - Slot: Datencontainer fuer den Zustand einer laufenden Inferenz
// - slotSnapshot: Rewind-Schnappschuss des letzten akzeptierten Stands
//
// Ein Slot ist eine logische Sequenz im geteilten physischen Kontext;
// seine Id ist zugleich die Engine-Sequenz-Id. Zustand und Flags, die der
// Abbruch-Pfad des Aufrufers liest, sind atomar (siehe CancelWork in
// processor.go); alles andere gehoert exklusiv dem Worker.
package slotrunner

import (
	"sync/atomic"
	"time"

	"github.com/theroyallab/YALS/engine"
	"github.com/theroyallab/YALS/match"
	"github.com/theroyallab/YALS/readback"
	"github.com/theroyallab/YALS/rules"
	"github.com/theroyallab/YALS/sampling"
	"github.com/theroyallab/YALS/tokenizer"
)

// SlotState ist der Scheduler-Zustand eines Slots.
type SlotState int32

const (
	// SlotIdle - kein Auftrag gebunden.
	SlotIdle SlotState = iota

	// SlotPrompt - Prompt-Token werden verarbeitet.
	SlotPrompt

	// SlotGenerating - Token werden generiert.
	SlotGenerating
)

// slotSnapshot haelt den Stand des letzten akzeptierten Text-Commits
// fuer Rewinds fest.
type slotSnapshot struct {
	promptProcessed int
	tokensGenerated int
	nPast           int32
	iBatch          int
	lastToken       engine.Token
	streamBuffer    string

	// kvPos ist die erste zu entfernende KV-Position beim Rewind; sie
	// faellt mit nPast zusammen, der Position an der lastToken erneut
	// dekodiert wird.
	kvPos int32
}

// Slot haelt den Zustand einer laufenden Inferenz.
type Slot struct {
	// id ist stabil und dient als Engine-Sequenz-Id.
	id int

	// jobIndex steigt bei jedem Uebergang zurueck zu IDLE;
	// Tiebreaker der Slot-Wahl (aeltester gewinnt).
	jobIndex int

	// requestID ist die Id des gebundenen Auftrags, -1 wenn frei.
	// Atomar, da der Abbruch-Pfad sie ohne Worker-Mutex liest.
	requestID atomic.Int64

	state     atomic.Int32
	cancelled atomic.Bool

	// promptTokens bleibt auch im IDLE-Zustand erhalten, damit die
	// Praefix-Wiederverwendung den letzten Prompt vergleichen kann.
	promptTokens    []engine.Token
	promptProcessed int
	tokensGenerated int

	nPast  int32
	iBatch int

	lastToken     engine.Token
	generatedText string

	// nCtxMax ist die Kontext-Obergrenze dieses Slots, bereits auf den
	// Engine-Kontext geklemmt.
	nCtxMax int

	slotStart  time.Time
	promptEnd  time.Time
	generating time.Time

	detok   *tokenizer.StreamDetokenizer
	stream  *match.SequenceStream
	rules   *rules.RuleStream
	sampler *sampling.Multistage

	snapshot slotSnapshot

	args      InferenceArgs
	resources *readback.GenerationResources

	finishReason string
	stopToken    string

	model engine.Model
}

func newSlot(id int, model engine.Model, factory engine.SamplerFactory) *Slot {
	s := &Slot{
		id:      id,
		iBatch:  -1,
		detok:   tokenizer.NewStreamDetokenizer(model),
		stream:  match.NewSequenceStream(),
		rules:   rules.NewRuleStream(),
		sampler: sampling.NewMultistage(model, factory, 0),
		model:   model,
	}
	s.requestID.Store(-1)
	return s
}

// State gibt den Scheduler-Zustand zurueck.
func (s *Slot) State() SlotState {
	return SlotState(s.state.Load())
}

func (s *Slot) setState(state SlotState) {
	s.state.Store(int32(state))
}

func (s *Slot) isProcessing() bool {
	return s.State() != SlotIdle
}

func (s *Slot) isProcessingPrompt() bool {
	return s.State() == SlotPrompt
}

func (s *Slot) isGenerating() bool {
	return s.State() == SlotGenerating
}

// clear setzt den Request-Zustand zurueck. promptTokens bleibt fuer die
// Praefix-Wiederverwendung erhalten.
func (s *Slot) clear() {
	s.requestID.Store(-1)
	s.setState(SlotIdle)
	s.promptProcessed = 0
	s.tokensGenerated = 0
	s.nPast = 0
	s.iBatch = -1
	s.lastToken = 0
	s.generatedText = ""
	s.finishReason = ""
	s.stopToken = ""
	s.detok.Reset()
	s.stream.Reset()
	s.rules.Reset()
	s.sampler.Reset()
	s.resources = nil
	s.args = InferenceArgs{}
	s.cancelled.Store(false)
}

// end beendet den Slot und stempelt den naechsten jobIndex.
func (s *Slot) end(newJobIndex int) {
	s.clear()
	s.jobIndex = newJobIndex
}

// snapshotRewind haelt den aktuellen Stand als Rewind-Ziel fest.
//
// Der Schnappschuss traegt die Wieder-Einspeise-Konvention: die KV-Zeilen
// [0, nPast) bleiben beim Rewind stehen, lastToken wird an Position nPast
// erneut dekodiert und liefert die Logits fuer das Neu-Sampling. Mitten in
// der Generierung liegt die Grenze direkt hinter der engine-gemeldeten
// Maximal-Position; am Prompt-Ende ist noch kein Decode gelaufen und das
// letzte Prompt-Token steht noch im Batch, dort liegt die Grenze eine
// Position davor.
func (s *Slot) snapshotRewind(lc engine.Context, duringPrompt bool) {
	nPast := s.nPast
	kvPos := lc.MemorySeqPosMax(s.id) + 1
	if duringPrompt {
		nPast--
		kvPos = nPast
	}

	// iBatch wird nicht uebernommen: Batch-Zeilen gelten nur fuer die
	// Iteration in der sie vergeben wurden. Nach einem Rewind haengt der
	// Slot sein lastToken neu an.
	s.snapshot = slotSnapshot{
		promptProcessed: s.promptProcessed,
		tokensGenerated: s.tokensGenerated,
		nPast:           nPast,
		iBatch:          -1,
		lastToken:       s.lastToken,
		streamBuffer:    s.stream.Buffer(),
		kvPos:           kvPos,
	}
}

// restoreSnapshot setzt den Slot auf den Schnappschuss zurueck und gibt
// die erste zu entfernende KV-Position zurueck.
func (s *Slot) restoreSnapshot() int32 {
	s.promptProcessed = s.snapshot.promptProcessed
	s.tokensGenerated = s.snapshot.tokensGenerated
	s.nPast = s.snapshot.nPast
	s.iBatch = s.snapshot.iBatch
	s.lastToken = s.snapshot.lastToken
	s.stream.SetBuffer(s.snapshot.streamBuffer)
	return s.snapshot.kvPos
}

// ApplyGrammar implementiert rules.Effects.
func (s *Slot) ApplyGrammar(grammar string) {
	s.sampler.Constrain(grammar)
}

// RemoveGrammar implementiert rules.Effects.
func (s *Slot) RemoveGrammar() {
	s.sampler.RemoveConstraint()
}

// BanStopTokens implementiert rules.Effects.
func (s *Slot) BanStopTokens() {
	s.sampler.Pre.AddEOSBans([]engine.Token{s.model.TokenEOS(), s.model.TokenEOT()})
}

// ClearStopTokenBans implementiert rules.Effects.
func (s *Slot) ClearStopTokenBans() {
	s.sampler.Pre.ClearEOSBans()
}
