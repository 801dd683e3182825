// Package slotrunner - Inferenz-Processor
//
// Dieses Modul definiert die Kerntypen des Processors:
// - Request: wartender Auftrag in der FIFO-Queue
// - InferenceArgs: Parameter eines Auftrags
// - Finish-Gruende der Status-Datensaetze
package slotrunner

import (
	"github.com/theroyallab/YALS/engine"
	"github.com/theroyallab/YALS/readback"
)

// Finish-Gruende eines abgeschlossenen Requests.
const (
	FinishStopToken    = "StopToken"
	FinishStopString   = "StopString"
	FinishMaxNewTokens = "MaxNewTokens"
	FinishCtxExceeded  = "CtxExceeded"
	FinishBatchDecode  = "BatchDecode"
	FinishAborted      = "Aborted"
	FinishTokenEncode  = "TokenEncode"
	FinishUnspecified  = "Unspecified"
)

// InferenceArgs sind die Parameter eines Auftrags.
type InferenceArgs struct {
	// Resources ist das geteilte Ressourcen-Buendel des Aufrufers
	// (Readback-Puffer + Sampler-Kette).
	Resources *readback.GenerationResources

	// MaxTokens begrenzt die Generierung, 0 bedeutet unbegrenzt.
	MaxTokens int

	// MinTokens bannt EOS/EOT bis zur Schwelle.
	MinTokens int

	// MaxSlotNCtx begrenzt die Kontextlaenge dieses Slots,
	// 0 bedeutet Engine-Kontext.
	MaxSlotNCtx int

	// Seed fuer die Presampler-Kette.
	Seed uint32

	// RewindPatterns loesen ein Zuruecksetzen auf den letzten
	// akzeptierten Stand aus.
	RewindPatterns []string

	// StopPatterns beenden die Generierung.
	StopPatterns []string

	// StopTokens beenden die Generierung auf Token-Ebene.
	StopTokens []engine.Token

	// AddSpecialBOS steuert das BOS beim Tokenisieren des Prompts.
	AddSpecialBOS bool
}

// Request ist ein wartender Auftrag. Er pendelt in der Queue bis ein
// Slot frei ist.
type Request struct {
	id           int
	promptTokens []engine.Token
	args         InferenceArgs
}
