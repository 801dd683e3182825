// Package rules - Regel-Engine ueber dem Token-Loop
//
// Dieses Modul definiert die Kerntypen der Regel-Engine:
// - Trigger: geschlossene Variante (OnToken, OnTokenCount, OnSequences,
//   Always, Never)
// - Action: geschlossene Variante (ApplyGrammar, BanStopTokens,
//   RecordToCallback, EndGeneration)
// - Rule: Zustandsmaschine INACTIVE -> ACTIVE -> COMPLETED
//
// Rewinds, Stop-Strings, Min/Max-Token und Grammatik-Fenster teilen alle
// dieselbe Form (bedingter Start, bedingtes Ende, Nebeneffekte); die
// Engine vereinheitlicht sie als getaggte Varianten mit einem zweistufigen
// Switch statt einer Klassenhierarchie.
package rules

import (
	"github.com/theroyallab/YALS/engine"
	"github.com/theroyallab/YALS/match"
)

// State ist der Zustand einer Regel.
type State int

const (
	StateInactive State = iota
	StateActive
	StateCompleted
)

// Context ist der Auswertungs-Kontext eines Tokens. Beim Installieren
// einer Regel wird mit nil-Kontext vorverarbeitet.
type Context struct {
	// Token ist das soeben gesampelte Token.
	Token engine.Token

	// Seq ist die Sequenz-Stream-Klassifikation dieses Tokens.
	Seq match.SequenceContext

	// TokensGenerated ist der Token-Zaehler des Slots nach diesem Token.
	TokensGenerated int
}

// Effects sind die Nebeneffekte, die Aktionen am Slot ausloesen koennen.
type Effects interface {
	// ApplyGrammar installiert einen Grammatik-Constraint.
	ApplyGrammar(grammar string)

	// RemoveGrammar entfernt den Grammatik-Constraint.
	RemoveGrammar()

	// BanStopTokens bannt die EOS/EOT-Token des Modells.
	BanStopTokens()

	// ClearStopTokenBans hebt die EOS/EOT-Banns auf.
	ClearStopTokenBans()
}

// TriggerKind unterscheidet die Trigger-Varianten.
type TriggerKind int

const (
	TriggerOnToken TriggerKind = iota
	TriggerOnTokenCount
	TriggerOnSequences
	TriggerAlways
	TriggerNever
)

// Trigger ist eine getaggte Trigger-Variante.
type Trigger struct {
	Kind TriggerKind

	// Token fuer TriggerOnToken.
	Token engine.Token

	// Threshold fuer TriggerOnTokenCount.
	Threshold int

	// MatchID und Latch fuer TriggerOnSequences.
	MatchID int
	Latch   bool

	latched bool
}

// OnToken feuert wenn das gegebene Token gesampelt wird.
func OnToken(token engine.Token) Trigger {
	return Trigger{Kind: TriggerOnToken, Token: token}
}

// OnTokenCount feuert sobald der Token-Zaehler die Schwelle erreicht.
func OnTokenCount(n int) Trigger {
	return Trigger{Kind: TriggerOnTokenCount, Threshold: n}
}

// OnSequences bindet Muster an den Sequenz-Stream und feuert wenn eines
// davon trifft. Mit latch feuert der Trigger nur einmal pro Puffer-Zyklus.
func OnSequences(stream *match.SequenceStream, patterns []string, latch bool) Trigger {
	return Trigger{
		Kind:    TriggerOnSequences,
		MatchID: stream.BindSequence(patterns),
		Latch:   latch,
	}
}

// Always feuert immer.
func Always() Trigger {
	return Trigger{Kind: TriggerAlways}
}

// Never feuert nie.
func Never() Trigger {
	return Trigger{Kind: TriggerNever}
}

func (t *Trigger) shouldActivate(rctx *Context) bool {
	switch t.Kind {
	case TriggerAlways:
		return true
	case TriggerNever:
		return false
	case TriggerOnToken:
		return rctx != nil && rctx.Token == t.Token
	case TriggerOnTokenCount:
		return rctx != nil && rctx.TokensGenerated >= t.Threshold
	case TriggerOnSequences:
		if rctx == nil || t.latched {
			return false
		}
		if _, ok := rctx.Seq.MatchedIDs[t.MatchID]; !ok {
			return false
		}
		if rctx.Seq.Status != match.StatusBuffer {
			t.latched = false
		} else if t.Latch {
			t.latched = true
		}
		return true
	}
	return false
}

// ActionKind unterscheidet die Aktions-Varianten.
type ActionKind int

const (
	ActionApplyGrammar ActionKind = iota
	ActionBanStopTokens
	ActionRecordToCallback
	ActionEndGeneration
)

// Action ist eine getaggte Aktions-Variante.
type Action struct {
	Kind ActionKind

	// Grammar fuer ActionApplyGrammar.
	Grammar string

	// Reason fuer ActionEndGeneration.
	Reason string

	// Callback und AcceptMask fuer ActionRecordToCallback.
	Callback   func(string)
	AcceptMask match.Status

	buffer []byte
}

// ApplyGrammar installiert die Grammatik beim Start und entfernt sie am Ende.
func ApplyGrammar(grammar string) *Action {
	return &Action{Kind: ActionApplyGrammar, Grammar: grammar}
}

// BanStopTokens bannt EOS/EOT beim Start und gibt sie am Ende frei.
func BanStopTokens() *Action {
	return &Action{Kind: ActionBanStopTokens}
}

// RecordToCallback sammelt Fragmente deren Status die Maske trifft und
// ruft am Ende den Callback mit dem Gesammelten auf.
func RecordToCallback(fn func(string), acceptMask match.Status) *Action {
	return &Action{Kind: ActionRecordToCallback, Callback: fn, AcceptMask: acceptMask}
}

// EndGeneration beendet die Generierung mit dem gegebenen Grund.
func EndGeneration(reason string) *Action {
	return &Action{Kind: ActionEndGeneration, Reason: reason}
}

func (a *Action) start(fx Effects, rctx *Context) {
	switch a.Kind {
	case ActionApplyGrammar:
		fx.ApplyGrammar(a.Grammar)
	case ActionBanStopTokens:
		fx.BanStopTokens()
	}
}

func (a *Action) running(fx Effects, rctx *Context) {
	if a.Kind == ActionRecordToCallback && rctx != nil && rctx.Seq.Status&a.AcceptMask != 0 {
		a.buffer = append(a.buffer, rctx.Seq.Piece...)
	}
}

func (a *Action) end(fx Effects, rctx *Context) {
	switch a.Kind {
	case ActionApplyGrammar:
		fx.RemoveGrammar()
	case ActionBanStopTokens:
		fx.ClearStopTokenBans()
	case ActionRecordToCallback:
		if rctx != nil && rctx.Seq.Status&a.AcceptMask != 0 {
			a.buffer = append(a.buffer, rctx.Seq.Piece...)
		}
		if a.Callback != nil {
			a.Callback(string(a.buffer))
		}
	}
}

// Rule ist ein Tripel (Start-Trigger, End-Trigger, Aktionen) mit Zustand.
type Rule struct {
	Start   Trigger
	End     Trigger
	Actions []*Action

	state State
}

// NewRule erstellt eine Regel im Zustand INACTIVE.
func NewRule(start, end Trigger, actions ...*Action) *Rule {
	return &Rule{Start: start, End: end, Actions: actions}
}

// State gibt den Regel-Zustand zurueck.
func (r *Rule) State() State {
	return r.state
}

// Process fuehrt die Zustandsmaschine fuer einen Token aus und gibt die
// abgeschlossenen Aktionen zurueck. Eine Regel deren End-Trigger im
// Aktivierungs-Token bereits feuert wird im selben Schritt abgeschlossen;
// so beendet eine Max-Token-Regel die Generierung genau an der Schwelle.
func (r *Rule) Process(rctx *Context, fx Effects) []*Action {
	prev := r.state

	if r.state == StateInactive && r.Start.shouldActivate(rctx) {
		r.state = StateActive
		for _, a := range r.Actions {
			a.start(fx, rctx)
		}
	}

	if r.state == StateActive && r.End.shouldActivate(rctx) {
		r.state = StateCompleted
		for _, a := range r.Actions {
			a.end(fx, rctx)
		}
		return r.Actions
	}

	if prev == StateActive && r.state == StateActive {
		for _, a := range r.Actions {
			a.running(fx, rctx)
		}
	}

	return nil
}
