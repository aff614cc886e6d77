package game

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestAppendAssignsSequence(t *testing.T) {
	var log Log
	a := log.Append(EvGoldGained, GoldPayload{Amount: 10, Total: 10})
	b := log.Append(EvGoldGained, GoldPayload{Amount: 5, Total: 15})
	if a.Seq != 0 || b.Seq != 1 {
		t.Errorf("seqs = %d, %d, want 0, 1", a.Seq, b.Seq)
	}
	if log.Len() != 2 {
		t.Errorf("len = %d, want 2", log.Len())
	}
}

func TestPayloadBytesStable(t *testing.T) {
	var a, b Log
	a.Append(EvDamageDealt, DamageDealtPayload{Source: "player", Target: "enemy", Amount: 8, TargetHP: 14})
	b.Append(EvDamageDealt, DamageDealtPayload{Source: "player", Target: "enemy", Amount: 8, TargetHP: 14})
	aj, _ := json.Marshal(a.All())
	bj, _ := json.Marshal(b.All())
	if !bytes.Equal(aj, bj) {
		t.Errorf("identical appends produced different bytes:\n%s\n%s", aj, bj)
	}
}

func TestAfterFilters(t *testing.T) {
	var log Log
	for i := 0; i < 5; i++ {
		log.Append(EvRoundStarted, RoundStartedPayload{Round: i + 1, Energy: 3})
	}
	tail := log.After(2)
	if len(tail) != 2 {
		t.Fatalf("after(2) returned %d records, want 2", len(tail))
	}
	if tail[0].Seq != 3 {
		t.Errorf("first tail seq = %d, want 3", tail[0].Seq)
	}
}

func TestMarshalTailRoundTrip(t *testing.T) {
	var log Log
	for i := 0; i < 10; i++ {
		log.Append(EvGoldGained, GoldPayload{Amount: i, Total: i})
	}
	raw, err := log.MarshalTail(4)
	if err != nil {
		t.Fatalf("marshal tail: %v", err)
	}
	var restored Log
	if err := restored.RestoreTail(raw); err != nil {
		t.Fatalf("restore tail: %v", err)
	}
	if restored.Len() != 4 {
		t.Fatalf("restored %d records, want 4", restored.Len())
	}
	next := restored.Append(EvGoldGained, GoldPayload{Amount: 99, Total: 99})
	if next.Seq != 10 {
		t.Errorf("continued seq = %d, want 10", next.Seq)
	}
}

func TestRestoreTailRejectsGarbage(t *testing.T) {
	var log Log
	if err := log.RestoreTail(json.RawMessage(`{"not":"a list"}`)); err == nil {
		t.Errorf("garbage tail should not restore")
	}
}
