// trie_test.go - Unit Tests fuer den Match-Trie
package match

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestCheckBuffer testet die Klassifikation wachsender Puffer
func TestCheckBuffer(t *testing.T) {
	tests := []struct {
		name   string
		stop   []string
		rewind []string
		buffer string
		want   Result
		match  *Match
	}{
		{
			name:   "kein Treffer",
			stop:   []string{"END"},
			buffer: "xyz",
			want:   ResultNo,
		},
		{
			name:   "Praefix-Pfad am Pufferende",
			stop:   []string{"END"},
			buffer: "EN",
			want:   ResultMaybe,
		},
		{
			name:   "vollstaendiger Treffer am Anfang",
			stop:   []string{"END"},
			buffer: "END",
			want:   ResultMatched,
			match: &Match{
				IDs:     map[int]struct{}{IDStop: {}},
				Prefix:  "",
				Literal: "END",
			},
		},
		{
			name:   "Treffer mitten im Puffer",
			stop:   []string{"END"},
			buffer: "12END34",
			want:   ResultMatched,
			match: &Match{
				IDs:       map[int]struct{}{IDStop: {}},
				Prefix:    "12",
				Literal:   "END",
				Remainder: "34",
			},
		},
		{
			name:   "Muster beginnt mitten im Token",
			rewind: []string{"*"},
			buffer: " *actions*",
			want:   ResultMatched,
			match: &Match{
				IDs:       map[int]struct{}{IDRewind: {}},
				Prefix:    " ",
				Literal:   "*",
				Remainder: "actions*",
			},
		},
		{
			name:   "case-insensitiv mit Original-Schreibung",
			stop:   []string{"end"},
			buffer: "xEnDy",
			want:   ResultMatched,
			match: &Match{
				IDs:       map[int]struct{}{IDStop: {}},
				Prefix:    "x",
				Literal:   "EnD",
				Remainder: "y",
			},
		},
		{
			name:   "Teil-Praefix mitten im Puffer",
			stop:   []string{"END"},
			buffer: "xyzE",
			want:   ResultMaybe,
		},
		{
			name:   "fruehester Treffer gewinnt",
			stop:   []string{"cd"},
			rewind: []string{"bcx"},
			buffer: "abcd",
			want:   ResultMatched,
			match: &Match{
				IDs:       map[int]struct{}{IDStop: {}},
				Prefix:    "ab",
				Literal:   "cd",
				Remainder: "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trie := NewTrie()
			trie.Add(tt.stop, IDStop)
			trie.Add(tt.rewind, IDRewind)

			result, m := trie.CheckBuffer(tt.buffer)
			if result != tt.want {
				t.Fatalf("CheckBuffer(%q) = %v, erwartet %v", tt.buffer, result, tt.want)
			}

			if tt.match != nil {
				if diff := cmp.Diff(*tt.match, m); diff != "" {
					t.Errorf("Match weicht ab (-want +got):\n%s", diff)
				}
			}
		})
	}
}

// TestCheckBufferEmptyTrie testet den leeren Trie
func TestCheckBufferEmptyTrie(t *testing.T) {
	trie := NewTrie()
	if result, _ := trie.CheckBuffer("anything"); result != ResultNo {
		t.Errorf("leerer Trie = %v, erwartet ResultNo", result)
	}
	if !trie.Empty() {
		t.Error("Empty() = false, erwartet true")
	}
}

// TestBindAllocatesUserIDs testet die Vergabe von Benutzer-Ids
func TestBindAllocatesUserIDs(t *testing.T) {
	trie := NewTrie()
	first := trie.Bind([]string{"foo"})
	second := trie.Bind([]string{"bar"})

	if first == second {
		t.Fatalf("Bind vergab doppelte Id %d", first)
	}
	if first == IDStop || first == IDRewind || second == IDStop || second == IDRewind {
		t.Fatalf("Benutzer-Ids kollidieren mit reservierten Ids: %d, %d", first, second)
	}

	result, m := trie.CheckBuffer("foo")
	if result != ResultMatched {
		t.Fatalf("CheckBuffer(foo) = %v, erwartet ResultMatched", result)
	}
	if _, ok := m.IDs[first]; !ok {
		t.Errorf("Id-Menge %v enthaelt %d nicht", m.IDs, first)
	}
}

// TestRemovePrunesLeafChains testet das Abschneiden terminal-loser Ketten
func TestRemovePrunesLeafChains(t *testing.T) {
	trie := NewTrie()
	id := trie.Bind([]string{"abc"})
	trie.Add([]string{"ab"}, IDStop)

	trie.Remove(id)

	// "abc" darf nicht mehr treffen, "ab" weiterhin
	if result, _ := trie.CheckBuffer("xabc"); result != ResultMatched {
		t.Errorf("CheckBuffer(xabc) = %v, erwartet ResultMatched ueber ab", result)
	}
	result, m := trie.CheckBuffer("ab")
	if result != ResultMatched {
		t.Fatalf("CheckBuffer(ab) = %v, erwartet ResultMatched", result)
	}
	if _, ok := m.IDs[IDStop]; !ok {
		t.Errorf("Id-Menge %v enthaelt IDStop nicht", m.IDs)
	}

	// Nach dem Entfernen von IDStop ist der Trie leer
	trie.Remove(IDStop)
	if !trie.Empty() {
		t.Error("Trie nach Entfernen aller Ids nicht leer")
	}
}
