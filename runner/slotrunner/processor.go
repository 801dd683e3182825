// Package slotrunner - Processor
//
// Dieses Modul enthaelt den Processor: den Top-Level-Worker des Servers.
// Ein dedizierter Worker besitzt Engine-Kontext, Batch und Slot-Pool und
// implementiert kontinuierliches Batching, Praefix-Wiederverwendung,
// Abbruch und Rewinds.
//
// Auftraege werden nicht fair verarbeitet: ein Slot behaelt seinen
// Auftrag bis zum Ende, um den KV-Cache nicht umzuschichten. Das ist
// nicht fair, aber optimaler.
package slotrunner

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/v2/lists/arraylist"

	"github.com/theroyallab/YALS/engine"
	"github.com/theroyallab/YALS/envconfig"
	"github.com/theroyallab/YALS/tokenizer"
)

// Processor ist der Top-Level-Worker.
type Processor struct {
	model    engine.Model
	lc       engine.Context
	samplers engine.SamplerFactory
	tok      *tokenizer.Tokenizer

	batch     *engine.Batch
	batchSize int

	// slots gehoeren exklusiv dem Worker; der Abbruch-Pfad liest nur
	// die atomaren Felder der Slots.
	slots []*Slot

	// mutexTasks schuetzt die Queue; cvTasks signalisiert neue Auftraege.
	mutexTasks sync.Mutex
	cvTasks    *sync.Cond

	queueTasks *arraylist.List[*Request]
	closed     bool

	currentJobIndex int
	nextRequestID   atomic.Int64

	// abortInference wird vom registrierten Engine-Callback konsumiert.
	abortInference atomic.Bool

	done chan struct{}
}

// NewProcessor erstellt den Processor und startet den Worker.
func NewProcessor(model engine.Model, lc engine.Context, samplers engine.SamplerFactory, numSlots int) *Processor {
	p := &Processor{
		model:      model,
		lc:         lc,
		samplers:   samplers,
		tok:        tokenizer.NewTokenizer(model),
		batchSize:  lc.BatchSize(),
		queueTasks: arraylist.New[*Request](),
		done:       make(chan struct{}),
	}
	p.batch = engine.NewBatch(p.batchSize)
	p.cvTasks = sync.NewCond(&p.mutexTasks)

	p.slots = make([]*Slot, 0, numSlots)
	for i := 0; i < numSlots; i++ {
		slot := newSlot(i, model, samplers)
		p.currentJobIndex++
		slot.jobIndex = p.currentJobIndex
		p.slots = append(p.slots, slot)
	}

	// Abbruch ist konsumierend: ein ausgeloester Abbruch setzt das
	// Flag zurueck, damit nachfolgende Decodes normal laufen.
	lc.SetAbortCallback(func() bool {
		return p.abortInference.CompareAndSwap(true, false)
	})

	go p.run()
	return p
}

// SubmitWork tokenisiert den Prompt und stellt den Auftrag in die Queue.
// Gibt die Request-Id zurueck, -1 bei Tokenisierungs-Fehler.
func (p *Processor) SubmitWork(prompt string, args InferenceArgs) int {
	promptTokens, err := p.tok.Tokenize(prompt, args.AddSpecialBOS, true)
	if err != nil || len(promptTokens) == 0 {
		slog.Error("failed to tokenize prompt", "error", err)
		if args.Resources != nil {
			args.Resources.Buffer.Finish(admissionStatus(-1, FinishTokenEncode))
		}
		return -1
	}

	requestID := int(p.nextRequestID.Add(1))
	request := &Request{id: requestID, promptTokens: promptTokens, args: args}

	p.mutexTasks.Lock()
	if p.closed {
		p.mutexTasks.Unlock()
		args.Resources.Buffer.Finish(admissionStatus(requestID, FinishAborted))
		return -1
	}
	p.queueTasks.Add(request)
	p.mutexTasks.Unlock()

	p.cvTasks.Signal()
	return requestID
}

// CancelWork bricht einen Auftrag ab. Gibt true zurueck wenn der Auftrag
// in der Queue wartete oder an einen Slot gebunden war; wartet nie auf
// den Worker.
func (p *Processor) CancelWork(requestID int) bool {
	found := false

	// Wartet der Auftrag noch in der Queue? Dann dort entfernen.
	p.mutexTasks.Lock()
	for i := 0; i < p.queueTasks.Size(); {
		request, _ := p.queueTasks.Get(i)
		if request.id != requestID {
			i++
			continue
		}

		request.args.Resources.Buffer.Finish(admissionStatus(requestID, FinishAborted))
		p.queueTasks.Remove(i)
		found = true
	}
	queueEmpty := p.queueTasks.Empty()
	p.mutexTasks.Unlock()

	// Slots pruefen, falls der Auftrag schon laeuft.
	anyCancelled := false
	for _, slot := range p.slots {
		if int(slot.requestID.Load()) == requestID && slot.isProcessing() && !slot.cancelled.Load() {
			slot.cancelled.Store(true)
			found = true
			anyCancelled = true
		}
	}

	if !anyCancelled {
		return found
	}

	// Ist das System jetzt leer, den laufenden Decode sofort abbrechen;
	// sonst laeuft er zu Ende, um die Arbeit der anderen Slots zu erhalten.
	allIdle := true
	for _, slot := range p.slots {
		if slot.isProcessing() && !slot.cancelled.Load() {
			allIdle = false
			break
		}
	}
	if queueEmpty && allIdle {
		p.abortInference.Store(true)
	}

	return found
}

// Close beendet den Worker und finalisiert verbleibende Auftraege mit
// Abbruch-Status.
func (p *Processor) Close() {
	p.mutexTasks.Lock()
	if p.closed {
		p.mutexTasks.Unlock()
		return
	}
	p.closed = true
	p.mutexTasks.Unlock()

	p.abortInference.Store(true)
	p.cvTasks.Broadcast()
	<-p.done
}

func (p *Processor) isClosed() bool {
	p.mutexTasks.Lock()
	defer p.mutexTasks.Unlock()
	return p.closed
}

func (p *Processor) hasIdleSlot() bool {
	for _, slot := range p.slots {
		if !slot.isProcessing() {
			return true
		}
	}
	return false
}

func (p *Processor) allIdle() bool {
	for _, slot := range p.slots {
		if slot.isProcessing() {
			return false
		}
	}
	return true
}

// run ist die Hauptschleife des Workers.
func (p *Processor) run() {
	defer close(p.done)

	for {
		p.mutexTasks.Lock()
		for !p.closed && p.queueTasks.Empty() && p.allIdle() {
			p.cvTasks.Wait()
		}
		if p.closed {
			p.mutexTasks.Unlock()
			p.shutdown()
			return
		}
		p.mutexTasks.Unlock()

		p.processTasks()
		p.updateSlots()
		p.maybeDefrag()
	}
}

// shutdown finalisiert alle verbleibenden Auftraege.
func (p *Processor) shutdown() {
	p.mutexTasks.Lock()
	for !p.queueTasks.Empty() {
		request, _ := p.queueTasks.Get(0)
		p.queueTasks.Remove(0)
		request.args.Resources.Buffer.Finish(admissionStatus(request.id, FinishAborted))
	}
	p.mutexTasks.Unlock()

	for _, slot := range p.slots {
		if slot.isProcessing() {
			p.finalizeSlot(slot, FinishAborted)
		}
	}
}

// maybeDefrag fordert eine KV-Defragmentierung an, wenn der belegte
// Anteil die Schwelle ueberschreitet.
func (p *Processor) maybeDefrag() {
	if !p.lc.MemoryCanDefrag() {
		return
	}

	used := p.lc.MemoryUsedCells()
	frac := float64(used) / float64(p.lc.NumCtx())

	threshold := envconfig.DefragThresholdActive()
	if p.allIdle() {
		threshold = envconfig.DefragThresholdIdle()
	}

	if frac > threshold {
		slog.Debug("defragmenting kv memory", "used", used, "fraction", frac)
		p.lc.MemoryDefrag()
	}
}
