// Package slotrunner - Zuweisung und Batch-Verarbeitung
//
// Dieses Modul enthaelt:
// - processTasks: Abbruch-Sweep und Zuweisung wartender Auftraege
// - updateSlots / updatePromptSlots / updateGenSlots: Batch-Aufbau,
//   Decode mit Wiederholung und Sampling
// - finalizeSlot: einziger Abschluss-Pfad eines Slots
package slotrunner

import (
	"errors"
	"log/slog"
	"time"

	"github.com/theroyallab/YALS/engine"
	"github.com/theroyallab/YALS/envconfig"
	"github.com/theroyallab/YALS/rules"
)

// commonLongestPrefix gibt die Laenge des gemeinsamen Praefixes zurueck.
func commonLongestPrefix(a, b []engine.Token) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// processTasks laeuft am Anfang jeder Schleifen-Iteration: erst
// abgebrochene Slots einsammeln, dann hoechstens einen wartenden Auftrag
// einem freien Slot zuweisen.
//
// Die Slot-Wahl bevorzugt den laengsten gemeinsamen Praefix mit dem
// zurueckbehaltenen Prompt des Slots: in Chat-Lasten teilen sich
// Folge-Requests lange Praefixe, und der KV-Cache des Slots bleibt
// verwertbar.
func (p *Processor) processTasks() {
	// Abgebrochene Slots freigeben
	for _, slot := range p.slots {
		if !slot.cancelled.Load() {
			continue
		}
		if slot.isProcessing() {
			p.finalizeSlot(slot, FinishAborted)
		}
		slot.cancelled.Store(false)
	}

	if !p.hasIdleSlot() {
		return
	}

	p.mutexTasks.Lock()
	if p.queueTasks.Empty() {
		p.mutexTasks.Unlock()
		return
	}
	request, _ := p.queueTasks.Get(0)
	p.queueTasks.Remove(0)
	p.mutexTasks.Unlock()

	// Kontext-Pruefung vor der Slot-Wahl: ein zu grosser Auftrag
	// verbraucht keinen Slot.
	limit := p.lc.NumCtx()
	if request.args.MaxSlotNCtx > 0 && request.args.MaxSlotNCtx < limit {
		limit = request.args.MaxSlotNCtx
	}
	if len(request.promptTokens)+request.args.MaxTokens > limit {
		slog.Warn("request exceeds context",
			"request", request.id,
			"prompt", len(request.promptTokens),
			"maxTokens", request.args.MaxTokens,
			"limit", limit)
		request.args.Resources.Buffer.Finish(admissionStatus(request.id, FinishCtxExceeded))
		return
	}

	// Besten Slot suchen: laengster Praefix gewinnt, bei Gleichstand
	// der aelteste jobIndex.
	var bestSlot, oldestIdle *Slot
	longestPrefix := 0
	for _, slot := range p.slots {
		if slot.isProcessing() {
			continue
		}

		if oldestIdle == nil || slot.jobIndex < oldestIdle.jobIndex {
			oldestIdle = slot
		}

		prefixLen := commonLongestPrefix(request.promptTokens, slot.promptTokens)
		// Wiederverwendbar sind nur Praefix-Token, deren KV-Zeilen vorliegen;
		// nach einem fehlgeschlagenen Decode fehlen sie.
		if kvLen := int(p.lc.MemorySeqPosMax(slot.id)) + 1; prefixLen > kvLen {
			prefixLen = kvLen
		}
		better := prefixLen > longestPrefix ||
			(prefixLen == longestPrefix && prefixLen > 0 &&
				(bestSlot == nil || slot.jobIndex < bestSlot.jobIndex))
		if better {
			longestPrefix = prefixLen
			bestSlot = slot
		}
	}
	if longestPrefix == 0 {
		bestSlot = oldestIdle
	}
	if bestSlot == nil {
		return
	}

	p.assignSlot(bestSlot, request, longestPrefix, limit)
}

// assignSlot bindet den Auftrag an den Slot.
func (p *Processor) assignSlot(slot *Slot, request *Request, prefixLen, limit int) {
	slot.clear()
	slot.args = request.args
	slot.requestID.Store(int64(request.id))
	slot.nCtxMax = limit
	slot.slotStart = time.Now()
	slot.promptEnd = time.Time{}
	slot.generating = time.Time{}

	switch {
	case prefixLen > 0 && prefixLen == len(request.promptTokens):
		// Voller Praefix-Treffer: das letzte Prompt-Token erneut
		// dekodieren, damit seine Logits vorliegen.
		p.lc.MemorySeqRemove(slot.id, int32(prefixLen-1), -1)
		slot.promptProcessed = prefixLen
		slot.nPast = int32(prefixLen - 1)
		slot.lastToken = request.promptTokens[prefixLen-1]
		slot.setState(SlotGenerating)

	case prefixLen > 0:
		// Praefix wiederverwenden: KV auf die Praefix-Laenge kuerzen.
		p.lc.MemorySeqRemove(slot.id, int32(prefixLen), -1)
		slot.promptProcessed = prefixLen
		slot.nPast = int32(prefixLen)
		slot.lastToken = request.promptTokens[prefixLen-1]
		slot.setState(SlotPrompt)

	default:
		// Nichts wiederverwendbar: KV der Sequenz leeren.
		p.lc.MemorySeqRemove(slot.id, 0, -1)
		slot.promptProcessed = 0
		slot.nPast = 0
		slot.lastToken = 0
		slot.setState(SlotPrompt)
	}

	slot.promptTokens = request.promptTokens

	slot.resources = request.args.Resources.Acquire()
	slot.sampler.Pre.Seed = request.args.Seed
	slot.sampler.SetUserSampler(request.args.Resources.Sampler)

	slot.stream.BindSequences(request.args.StopPatterns, request.args.RewindPatterns)

	if request.args.MaxTokens > 0 {
		rules.RuleMaxTokens(slot.rules, slot, request.args.MaxTokens)
	}
	if request.args.MinTokens > 0 &&
		(request.args.MaxTokens == 0 || request.args.MinTokens < request.args.MaxTokens) {
		rules.RuleMinTokens(slot.rules, slot, request.args.MinTokens)
	}
	if len(request.args.StopTokens) > 0 {
		rules.RuleStopTokens(slot.rules, slot, request.args.StopTokens)
	}

	// Die KV ist bereits auf den wiederverwendeten Praefix gekuerzt;
	// der Start-Schnappschuss faellt mit der Engine-Position zusammen.
	slot.snapshotRewind(p.lc, false)

	slog.Debug("assigned request to slot",
		"request", request.id,
		"slot", slot.id,
		"prefix", prefixLen,
		"prompt", len(request.promptTokens))
}

// updateSlots baut den Batch der Iteration auf und verarbeitet ihn.
func (p *Processor) updateSlots() {
	p.batch.Clear()
	p.updatePromptSlots()
	p.updateGenSlots()
}

// updatePromptSlots packt unverarbeitete Prompt-Token in den Batch.
// Nur das letzte Prompt-Token traegt Logits.
func (p *Processor) updatePromptSlots() {
	for _, slot := range p.slots {
		if !slot.isProcessingPrompt() {
			continue
		}

		for slot.promptProcessed < len(slot.promptTokens) && p.batch.NumTokens() < p.batchSize {
			token := slot.promptTokens[slot.promptProcessed]
			isLast := slot.promptProcessed == len(slot.promptTokens)-1

			slot.iBatch = p.batch.NumTokens()
			p.batch.Add(token, slot.nPast, slot.id, isLast)
			slot.nPast++
			slot.promptProcessed++
			slot.lastToken = token
		}

		if slot.promptProcessed >= len(slot.promptTokens) {
			slot.setState(SlotGenerating)
			slot.snapshotRewind(p.lc, true)
		}
	}
}

// updateGenSlots haengt pro generierendem Slot genau ein Token an,
// dekodiert den Batch und sampelt pro Slot.
func (p *Processor) updateGenSlots() {
	for _, slot := range p.slots {
		// Slots die gerade erst aus PROMPT gewechselt haben, tragen
		// bereits eine Logit-Zeile in diesem Batch (iBatch gesetzt).
		if slot.isGenerating() && slot.iBatch < 0 && p.batch.NumTokens() < p.batchSize {
			slot.iBatch = p.batch.NumTokens()
			p.batch.Add(slot.lastToken, slot.nPast, slot.id, true)
			slot.nPast++
		}
	}

	if p.batch.NumTokens() == 0 {
		return
	}

	if !p.decodeBatch() {
		return
	}

	for _, slot := range p.slots {
		if slot.iBatch < 0 || slot.iBatch >= p.batch.NumTokens() || !slot.isGenerating() {
			continue
		}

		if slot.promptEnd.IsZero() {
			slot.promptEnd = time.Now()
		}

		token, _ := slot.sampler.Sample(p.lc, slot.iBatch)
		slot.lastToken = token
		slot.iBatch = -1

		if !p.processToken(slot, token) {
			p.finalizeSlot(slot, "")
		}
	}
}

// decodeBatch dekodiert mit Wiederholung bei kooperativem Abbruch.
// Gibt false zurueck wenn der Batch nicht verarbeitet werden konnte.
func (p *Processor) decodeBatch() bool {
	for {
		err := p.lc.Decode(p.batch)
		if err == nil {
			return true
		}

		if errors.Is(err, engine.ErrDecodeAborted) {
			if p.isClosed() {
				return false
			}
			slog.Debug("decode aborted, retrying")
			time.Sleep(envconfig.DecodeRetryBackoff())
			continue
		}

		// Nicht wiederholbar: betroffene Slots finalisieren, der
		// Worker laeuft weiter.
		slog.Error("failed to decode batch", "error", err)
		for _, slot := range p.slots {
			if slot.iBatch >= 0 && slot.iBatch < p.batch.NumTokens() && slot.isProcessing() {
				p.finalizeSlot(slot, FinishBatchDecode)
			}
		}
		return false
	}
}

// finalizeSlot ist der einzige Abschluss-Pfad eines Slots: Status
// schreiben, Ressourcen freigeben, Slot zurueck auf IDLE.
func (p *Processor) finalizeSlot(slot *Slot, reason string) {
	if reason == "" {
		reason = slot.finishReason
	}
	if reason == "" {
		reason = FinishUnspecified
	}

	slot.generating = time.Now()

	if slot.resources != nil {
		slot.resources.Buffer.Finish(slotStatus(slot, reason))
		slot.resources.Release()
		slot.resources = nil
	}

	slog.Debug("finished request",
		"request", slot.requestID.Load(),
		"slot", slot.id,
		"reason", reason,
		"genTokens", slot.tokensGenerated)

	p.currentJobIndex++
	slot.end(p.currentJobIndex)
}
