package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestMemoryLoggerSequencesEvents(t *testing.T) {
	l := NewMemoryLogger()
	l.Log(NewTurnEvent(1))
	l.Log(NewDamageEvent(1, "hero", "e1", 6, 0, 14))
	l.Log(NewDefeatEvent(1, "e1"))

	events := l.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, e := range events {
		if e.Seq != i+1 {
			t.Errorf("event %d: seq %d", i, e.Seq)
		}
	}
	if got := l.Since(1); len(got) != 2 {
		t.Errorf("Since(1): expected 2 events, got %d", len(got))
	}
	if got := l.EventsOfType(EventDefeat); len(got) != 1 || got[0].Target != "e1" {
		t.Errorf("EventsOfType(Defeat) = %+v", got)
	}
	if last := l.LastEvent(); last.Type != EventDefeat {
		t.Errorf("LastEvent type = %v", last.Type)
	}
}

func TestTextLoggerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewTextLogger(&buf)
	l.Log(NewTurnEvent(2))
	l.Log(NewShuffleEvent(2, 7))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "T2 ") {
		t.Errorf("line should start with the turn: %q", lines[0])
	}
	if len(l.Events()) != 2 {
		t.Errorf("text logger should also record events")
	}
}

func TestFuncLoggerForwardsRecordedEvents(t *testing.T) {
	var got []BattleEvent
	l := NewFuncLogger(func(e BattleEvent) { got = append(got, e) })
	l.Log(NewWinEvent(3))

	if len(got) != 1 || got[0].Seq != 1 || got[0].Type != EventWin {
		t.Fatalf("forwarded = %+v", got)
	}
	if FormatAll(l.Events()) != FormatEvent(got[0])+"\n" {
		t.Errorf("FormatAll mismatch")
	}
}

func TestBattleEventJSONRoundTrip(t *testing.T) {
	for typ := EventTurn; typ <= EventLoss; typ++ {
		in := BattleEvent{Seq: 3, Turn: 2, Type: typ, Actor: "Hero", Target: "Imp", Amount: 4, Details: "x"}
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("%s: marshal: %v", typ, err)
		}
		if !strings.Contains(string(data), `"type":"`+typ.String()+`"`) {
			t.Errorf("%s: type not written by name: %s", typ, data)
		}
		var out BattleEvent
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s: unmarshal: %v", typ, err)
		}
		if out != in {
			t.Errorf("%s: round trip = %+v, want %+v", typ, out, in)
		}
	}

	var e BattleEvent
	if err := json.Unmarshal([]byte(`{"type":"Teleport"}`), &e); err == nil {
		t.Error("expected an error for an unknown event type")
	}
}
