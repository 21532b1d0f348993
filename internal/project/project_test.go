package project

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Strength int
	Note     string `json:"note,omitempty"`
}

type fighter struct {
	stats
	Base

	ID       string `json:"id"`
	Health   int    `json:"health"`
	OnHit    func(int)
	Events   chan int
	secret   int
	Cache    map[string]int `project:"-"`
	Internal string         `json:"-"`
	Tags     []string       `json:"tags"`
	Weights  map[string]float32
	Joined   time.Time
}

type Base struct {
	Level uint8
}

func (fighter) Kind() string { return "fighter" }

// Computed values are methods and never appear in a projection.
func (f fighter) Alive() bool { return f.Health > 0 }

func TestProjectFiltersFields(t *testing.T) {
	f := &fighter{
		stats:    stats{Strength: 3},
		Base:     Base{Level: 2},
		ID:       "f1",
		Health:   12,
		OnHit:    func(int) {},
		Events:   make(chan int),
		secret:   9,
		Cache:    map[string]int{"x": 1},
		Internal: "hidden",
		Weights:  map[string]float32{"a": 0.5},
		Joined:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	out, ok := Project(f).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, map[string]any{
		KindKey:   "fighter",
		"Level":   2,
		"id":      "f1",
		"health":  12,
		"tags":    []any{},
		"Weights": map[string]any{"a": 0.5},
		"Joined":  "2024-05-01T00:00:00Z",
	}, out)
}

type link struct {
	Name string
	Next *link
	Peer *link
}

func TestProjectBreaksCycles(t *testing.T) {
	a := &link{Name: "a"}
	b := &link{Name: "b", Next: a}
	a.Next = b

	out := Project(a).(map[string]any)
	next := out["Next"].(map[string]any)
	assert.Equal(t, "b", next["Name"])
	_, hasBack := next["Next"]
	assert.False(t, hasBack, "back-edge to a should be omitted")
}

func TestProjectBreaksSliceCycles(t *testing.T) {
	loop := make([]any, 2)
	loop[0] = "head"
	loop[1] = loop

	out := Project(map[string]any{"loop": loop}).(map[string]any)
	assert.Equal(t, []any{"head"}, out["loop"])

	// a shorter view of the same backing array is a different value
	out = Project(map[string]any{"loop": loop, "head": loop[:1]}).(map[string]any)
	assert.Equal(t, []any{"head"}, out["head"])
}

func TestProjectKeepsLargeUnsigned(t *testing.T) {
	out := Project(map[string]any{"small": uint8(7), "big": uint64(math.MaxUint64)}).(map[string]any)
	assert.Equal(t, 7, out["small"])
	assert.Equal(t, uint64(math.MaxUint64), out["big"])
}

func TestProjectSharesRepeatedReference(t *testing.T) {
	shared := &link{Name: "shared"}
	root := &link{Name: "root", Next: shared, Peer: shared}

	out := Project(root).(map[string]any)
	n := reflect.ValueOf(out["Next"]).Pointer()
	p := reflect.ValueOf(out["Peer"]).Pointer()
	assert.Equal(t, n, p, "both references should map to one copy")
}

func TestProjectDropsFuncMapValues(t *testing.T) {
	out := Project(map[string]any{
		"n":  1,
		"fn": func() {},
		"l":  []any{"x", func() {}},
	}).(map[string]any)

	assert.Equal(t, map[string]any{"n": 1, "l": []any{"x"}}, out)
}

func TestProjectIsDetached(t *testing.T) {
	src := &fighter{ID: "f", Tags: []string{"a"}}
	out := Project(src).(map[string]any)
	src.Tags[0] = "changed"
	src.Health = 99

	assert.Equal(t, []any{"a"}, out["tags"])
	assert.Equal(t, 0, out["health"])
}
