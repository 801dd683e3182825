// rules_test.go - Unit Tests fuer die Regel-Engine
package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theroyallab/YALS/engine"
	"github.com/theroyallab/YALS/match"
)

// recordedEffects protokolliert die Nebeneffekte
type recordedEffects struct {
	calls []string
}

func (r *recordedEffects) ApplyGrammar(grammar string) {
	r.calls = append(r.calls, "apply:"+grammar)
}

func (r *recordedEffects) RemoveGrammar() {
	r.calls = append(r.calls, "remove")
}

func (r *recordedEffects) BanStopTokens() {
	r.calls = append(r.calls, "ban")
}

func (r *recordedEffects) ClearStopTokenBans() {
	r.calls = append(r.calls, "clear")
}

func applyToken(rs *RuleStream, fx Effects, token engine.Token, count int) []*Action {
	return rs.Apply(token, match.SequenceContext{Status: match.StatusAccept, Piece: "x"}, count, fx)
}

// endReasons extrahiert die EndGeneration-Gruende
func endReasons(actions []*Action) []string {
	var reasons []string
	for _, action := range actions {
		if action.Kind == ActionEndGeneration {
			reasons = append(reasons, action.Reason)
		}
	}
	return reasons
}

// TestRuleMaxTokens testet den Abschluss genau an der Schwelle
func TestRuleMaxTokens(t *testing.T) {
	rs := NewRuleStream()
	fx := &recordedEffects{}
	RuleMaxTokens(rs, fx, 3)

	assert.Empty(t, endReasons(applyToken(rs, fx, 'a', 1)))
	assert.Empty(t, endReasons(applyToken(rs, fx, 'a', 2)))
	assert.Equal(t, []string{"MaxNewTokens"}, endReasons(applyToken(rs, fx, 'a', 3)),
		"Regel muss genau an der Schwelle abschliessen")
}

// TestRuleMinTokens testet Bann beim Installieren und Freigabe an der Schwelle
func TestRuleMinTokens(t *testing.T) {
	rs := NewRuleStream()
	fx := &recordedEffects{}
	RuleMinTokens(rs, fx, 2)

	require.Equal(t, []string{"ban"}, fx.calls, "Bann muss beim Installieren greifen")

	applyToken(rs, fx, 'a', 1)
	assert.Equal(t, []string{"ban"}, fx.calls)

	applyToken(rs, fx, 'a', 2)
	assert.Equal(t, []string{"ban", "clear"}, fx.calls, "Freigabe an der Schwelle")
}

// TestRuleStopTokens testet Token-Stops
func TestRuleStopTokens(t *testing.T) {
	rs := NewRuleStream()
	fx := &recordedEffects{}
	RuleStopTokens(rs, fx, []engine.Token{'x', 'y'})

	assert.Empty(t, endReasons(applyToken(rs, fx, 'a', 1)))
	assert.Equal(t, []string{"StopToken"}, endReasons(applyToken(rs, fx, 'y', 2)))
}

// TestRuleConstrainGrammar testet das Grammatik-Fenster
func TestRuleConstrainGrammar(t *testing.T) {
	rs := NewRuleStream()
	fx := &recordedEffects{}
	RuleConstrainGrammar(rs, fx, "root ::= json", '{', '}')

	applyToken(rs, fx, 'a', 1)
	assert.Empty(t, fx.calls)

	applyToken(rs, fx, '{', 2)
	assert.Equal(t, []string{"apply:root ::= json"}, fx.calls)

	applyToken(rs, fx, '}', 3)
	assert.Equal(t, []string{"apply:root ::= json", "remove"}, fx.calls)
}

// TestRecordToCallback testet das Sammeln akzeptierter Fragmente
func TestRecordToCallback(t *testing.T) {
	rs := NewRuleStream()
	fx := &recordedEffects{}

	var recorded string
	rs.AddRules(fx, NewRule(
		OnTokenCount(1),
		OnTokenCount(3),
		RecordToCallback(func(s string) { recorded = s }, match.StatusAccept),
	))

	seq := func(piece string, status match.Status) match.SequenceContext {
		return match.SequenceContext{Status: status, Piece: piece}
	}

	rs.Apply('a', seq("a", match.StatusAccept), 1, fx) // aktiviert, Start sammelt nicht
	rs.Apply('b', seq("b", match.StatusAccept), 2, fx)
	rs.Apply('c', seq("c", match.StatusBuffer), 2, fx) // Maske filtert Puffer-Status
	rs.Apply('d', seq("d", match.StatusAccept), 3, fx) // Ende sammelt noch

	assert.Equal(t, "bd", recorded)
}

// TestOnSequencesTrigger testet den Sequenz-Trigger mit Latch
func TestOnSequencesTrigger(t *testing.T) {
	stream := match.NewSequenceStream()
	stream.BindSequences(nil, nil)

	rs := NewRuleStream()
	fx := &recordedEffects{}

	var completions int
	rs.AddRules(fx, NewRule(
		OnSequences(stream, []string{"}"}, true),
		Always(),
		EndGeneration("Matched"),
	))

	feed := func(piece string) {
		seqCtx := stream.Append(piece)
		for _, action := range rs.Apply('t', seqCtx, 1, fx) {
			if action.Kind == ActionEndGeneration {
				completions++
			}
		}
	}

	feed("ab")
	assert.Equal(t, 0, completions)
	feed("}")
	assert.Equal(t, 1, completions, "Trigger feuert beim Treffer")
}

// TestRuleStreamRemoveReset testet Verwaltung der Regelgruppen
func TestRuleStreamRemoveReset(t *testing.T) {
	rs := NewRuleStream()
	fx := &recordedEffects{}

	id := RuleMaxTokens(rs, fx, 1)
	require.NotNil(t, rs.Rules(id))

	rs.Remove(id)
	assert.Nil(t, rs.Rules(id))
	assert.Empty(t, endReasons(applyToken(rs, fx, 'a', 5)))

	RuleMaxTokens(rs, fx, 1)
	rs.Reset()
	assert.Empty(t, endReasons(applyToken(rs, fx, 'a', 5)))
}
