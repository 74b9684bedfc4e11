package engine

import (
	"testing"
)

func sampleEvaluation() *Evaluation {
	return &Evaluation{
		WinProb:   0.6,
		WinG:      0.12,
		WinBG:     0.03,
		Equity:    0.2,
		BestMoves: []Move{{0, 3, 3}, {18, 19, 1}},
		Source:    SourceSearch,
		Depth:     2,
	}
}

func TestTranspositionPutGet(t *testing.T) {
	tt := NewTranspositionTable(0)

	if _, ok := tt.Get("missing"); ok {
		t.Fatal("empty table reported a hit")
	}

	ev := sampleEvaluation()
	tt.Put("a", ev)

	// the stored copy is independent of both the caller's value and the
	// returned one
	ev.BestMoves[0].From = 5
	got, ok := tt.Get("a")
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.BestMoves[0].From != 0 {
		t.Errorf("stored entry was modified through the caller's pointer")
	}
	got.BestMoves[1].To = 22
	again, _ := tt.Get("a")
	if again.BestMoves[1].To != 19 {
		t.Errorf("stored entry was modified through a returned copy")
	}

	st := tt.Stats()
	if st.Entries != 1 || st.Hits != 2 || st.Misses != 1 || st.Stores != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestTranspositionCorruptEntryIsMiss(t *testing.T) {
	tt := NewTranspositionTable(0)
	tt.Put("a", sampleEvaluation())

	tt.entries["a"].WinProb = 1.5
	if _, ok := tt.Get("a"); ok {
		t.Error("an entry with an out-of-range probability must not be returned")
	}

	tt.Put("b", sampleEvaluation())
	tt.entries["b"].WinG = 0.9
	if _, ok := tt.Get("b"); ok {
		t.Error("an entry with gammons above wins must not be returned")
	}
}

func TestTranspositionGenerations(t *testing.T) {
	tt := NewTranspositionTable(2)
	tt.Put("a", sampleEvaluation())
	tt.Put("b", sampleEvaluation())

	// overwriting a present key never flushes
	tt.Put("a", sampleEvaluation())
	if tt.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tt.Len())
	}

	tt.Put("c", sampleEvaluation())
	if tt.Len() != 1 {
		t.Errorf("Len() after overflow = %d, want 1", tt.Len())
	}
	if _, ok := tt.Get("c"); !ok {
		t.Error("newest entry should survive the flush")
	}
	if g := tt.Stats().Generations; g != 1 {
		t.Errorf("Generations = %d, want 1", g)
	}

	tt.Flush()
	if st := tt.Stats(); st.Entries != 0 || st.Stores != 0 {
		t.Errorf("Stats() after Flush = %+v", st)
	}
}
