// Package rules - Regel-Strom und eingebaute Kompositionen
//
// Dieses Modul enthaelt:
// - RuleStream: verwaltet Regelgruppen pro Id und wertet sie pro Token aus
// - RuleMaxTokens / RuleMinTokens / RuleStopTokens / RuleConstrainGrammar /
//   RuleRecordConstrainedGrammar / RuleComplex: eingebaute Kompositionen
package rules

import (
	"sort"

	"github.com/theroyallab/YALS/engine"
	"github.com/theroyallab/YALS/match"
)

// RuleStream verwaltet die Regeln eines Slots.
type RuleStream struct {
	rulesByID map[int][]*Rule
	nextID    int
}

// NewRuleStream erstellt einen leeren Regel-Strom.
func NewRuleStream() *RuleStream {
	return &RuleStream{rulesByID: make(map[int][]*Rule)}
}

// AddRules registriert eine Regelgruppe und gibt ihre Id zurueck.
// Die Gruppe wird einmal mit nil-Kontext vorverarbeitet, damit
// Always-Start-Regeln sofort aktiv werden.
func (rs *RuleStream) AddRules(fx Effects, group ...*Rule) int {
	id := rs.nextID
	rs.nextID++
	rs.rulesByID[id] = group

	for _, rule := range group {
		rule.Process(nil, fx)
	}
	return id
}

// Remove entfernt eine Regelgruppe.
func (rs *RuleStream) Remove(id int) {
	delete(rs.rulesByID, id)
}

// Rules gibt die Regelgruppe einer Id zurueck, nil wenn unbekannt.
func (rs *RuleStream) Rules(id int) []*Rule {
	return rs.rulesByID[id]
}

// Apply wertet alle Regeln fuer einen Token aus und gibt die
// abgeschlossenen Aktionen zurueck.
func (rs *RuleStream) Apply(token engine.Token, seqCtx match.SequenceContext, tokensGenerated int, fx Effects) []*Action {
	rctx := &Context{
		Token:           token,
		Seq:             seqCtx,
		TokensGenerated: tokensGenerated,
	}

	ids := make([]int, 0, len(rs.rulesByID))
	for id := range rs.rulesByID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var completed []*Action
	for _, id := range ids {
		for _, rule := range rs.rulesByID[id] {
			completed = append(completed, rule.Process(rctx, fx)...)
		}
	}
	return completed
}

// Reset entfernt alle Regelgruppen.
func (rs *RuleStream) Reset() {
	clear(rs.rulesByID)
	rs.nextID = 0
}

// RuleMaxTokens beendet die Generierung an der Max-Token-Schwelle.
func RuleMaxTokens(rs *RuleStream, fx Effects, numTokens int) int {
	return rs.AddRules(fx, NewRule(OnTokenCount(numTokens), Always(), EndGeneration("MaxNewTokens")))
}

// RuleMinTokens bannt die Stop-Token bis zur Mindest-Schwelle.
func RuleMinTokens(rs *RuleStream, fx Effects, numTokens int) int {
	return rs.AddRules(fx, NewRule(Always(), OnTokenCount(numTokens), BanStopTokens()))
}

// RuleStopTokens beendet die Generierung bei jedem der gegebenen Token.
func RuleStopTokens(rs *RuleStream, fx Effects, stopTokens []engine.Token) int {
	group := make([]*Rule, 0, len(stopTokens))
	for _, token := range stopTokens {
		group = append(group, NewRule(OnToken(token), Always(), EndGeneration("StopToken")))
	}
	return rs.AddRules(fx, group...)
}

// RuleConstrainGrammar haelt eine Grammatik zwischen zwei Token-Markern
// aktiv.
func RuleConstrainGrammar(rs *RuleStream, fx Effects, grammar string, applyToken, removeToken engine.Token) int {
	return rs.AddRules(fx, NewRule(OnToken(applyToken), OnToken(removeToken), ApplyGrammar(grammar)))
}

// RuleComplex registriert eine frei komponierte Regel.
func RuleComplex(rs *RuleStream, fx Effects, start, end Trigger, actions ...*Action) int {
	return rs.AddRules(fx, NewRule(start, end, actions...))
}

// RuleRecordConstrainedGrammar wendet eine Grammatik an und sammelt die
// akzeptierte Ausgabe bis zum schliessenden Muster in den Callback.
func RuleRecordConstrainedGrammar(rs *RuleStream, fx Effects, stream *match.SequenceStream, grammar string, callback func(string)) int {
	return RuleComplex(rs, fx,
		OnTokenCount(50),
		OnSequences(stream, []string{"}"}, true),
		ApplyGrammar(grammar),
		RecordToCallback(callback, match.StatusAccept),
	)
}
