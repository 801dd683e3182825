// Package slotrunner - Token-Verarbeitung
//
// Dieses Modul enthaelt processToken: den Pfad eines gesampelten Tokens
// durch Detokenizer, Sequenz-Stream und Regel-Engine bis zum
// Readback-Puffer. Gibt false zurueck wenn der Slot abzuschliessen ist;
// die Finalisierung selbst laeuft ueber den einen Abschluss-Pfad in
// finalizeSlot.
package slotrunner

import (
	"log/slog"

	"github.com/theroyallab/YALS/match"
	"github.com/theroyallab/YALS/rules"
)

func (s *Slot) setFinish(reason string) {
	if s.finishReason == "" {
		s.finishReason = reason
	}
}

// processToken verarbeitet ein gesampeltes Token.
func (p *Processor) processToken(slot *Slot, token int32) bool {
	piece := slot.detok.ProcessToken(token, true)
	slot.tokensGenerated++

	// Terminale Bedingungen des Tokens selbst
	isEOS := p.model.TokenIsEOG(token)
	isComplete := isEOS
	if isEOS {
		slot.setFinish(FinishStopToken)
	}

	seqPos := int(p.lc.MemorySeqPosMax(slot.id)) + 1
	if seqPos >= slot.nCtxMax || seqPos >= p.lc.NumCtx() {
		isComplete = true
		slot.setFinish(FinishCtxExceeded)
	}

	// Sequenz-Stream klassifizieren; leere Fragmente (unvollstaendige
	// UTF-8-Sequenzen) veraendern den Puffer nicht.
	seqCtx := match.SequenceContext{Status: match.StatusBuffer}
	if piece != "" {
		seqCtx = slot.stream.Append(piece)
	}

	// Regel-Engine mit dem Ergebnis-Kontext dispatchen
	for _, action := range slot.rules.Apply(token, seqCtx, slot.tokensGenerated, slot) {
		if action.Kind == rules.ActionEndGeneration {
			isComplete = true
			slot.setFinish(action.Reason)
		}
	}

	var frame string
	if piece != "" {
		switch seqCtx.Status {
		case match.StatusAccept:
			frame = seqCtx.Sequence
			slot.sampler.Pre.ClearRewindBans()
			if slot.args.MinTokens > 0 && slot.tokensGenerated >= slot.args.MinTokens {
				slot.sampler.Pre.ClearEOSBans()
			}
			slot.snapshotRewind(p.lc, false)

		case match.StatusRewind:
			p.rewindSlot(slot, seqCtx.Sequence)
			return true

		case match.StatusStop:
			isComplete = true
			slot.setFinish(FinishStopString)
			slot.stopToken = seqCtx.StopLiteral
			// Der Text vor dem Treffer ist das letzte Fragment
			frame = seqCtx.Unmatched

		case match.StatusBuffer, match.StatusRule:
			// nichts emittieren
		}
	}

	if !isComplete {
		if frame != "" && !isEOS {
			slot.generatedText += frame
			slot.resources.Buffer.Write(frame, token)
		}
		return true
	}

	// Abschluss: Detokenizer-Rest in das letzte Fragment uebernehmen.
	// Nach einem Stop-Treffer gehoert der Rest hinter den Stop und
	// wird verworfen.
	finalPiece := frame
	if seqCtx.Status != match.StatusStop {
		finalPiece += slot.detok.Flush()
	}
	if finalPiece != "" && !isEOS {
		slot.generatedText += finalPiece
		slot.resources.Buffer.Write(finalPiece, token)
	}

	return false
}

// rewindSlot setzt den Slot auf den letzten akzeptierten Stand zurueck
// und bannt die Token des verworfenen Fragments.
func (p *Processor) rewindSlot(slot *Slot, discarded string) {
	kvPos := slot.restoreSnapshot()
	p.lc.MemorySeqRemove(slot.id, kvPos, -1)
	slot.detok.Reset()

	tokens, err := p.model.Tokenize(discarded, false, false)
	if err != nil || len(tokens) == 0 {
		// Ohne Bann wuerde derselbe Pfad sofort wieder gesampelt
		slog.Warn("failed to tokenize rewound text", "text", discarded, "error", err)
	}
	if len(tokens) > 0 {
		slot.sampler.Pre.AddRewindBans(tokens)
	}

	// Der Rewind kann hinter die Mindest-Token-Schwelle zurueckfallen
	if slot.args.MinTokens > 0 && slot.tokensGenerated < slot.args.MinTokens {
		slot.BanStopTokens()
	}

	slog.Debug("rewound slot",
		"slot", slot.id,
		"kvPos", kvPos,
		"banned", len(tokens))
}
