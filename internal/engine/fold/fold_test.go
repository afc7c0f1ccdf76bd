package fold

import (
	"reflect"
	"testing"

	"github.com/dshills/scenepad/internal/engine/buffer"
)

const scene = `sources:
    osm:
        type: MVT
        url: x

layers:
    water:
        data: { source: osm }
        draw:
            polygons:
                color: blue
    earth:
        data: { source: osm }
        draw:
            lines:
                color: gray
    roads:
        data: x`

func newEngine(t *testing.T) (*Engine, *buffer.Buffer) {
	t.Helper()
	buf := buffer.NewFromString(scene)
	return New(buf), buf
}

func visible(buf *buffer.Buffer) []int {
	return buf.VisibleLines()
}

func TestUnfoldAll(t *testing.T) {
	e, buf := newEngine(t)
	e.FoldByLevel(0)
	e.UnfoldAll()

	for i, s := range buf.FoldStates() {
		if s != buffer.Visible {
			t.Errorf("line %d = %v, want visible", i, s)
		}
	}
	if len(e.Ranges()) != 0 {
		t.Errorf("Ranges = %v, want none", e.Ranges())
	}

	e.UnfoldAll()
	if len(buf.CollapsedLines()) != 0 {
		t.Error("UnfoldAll should be idempotent")
	}
}

func TestFoldByLevel(t *testing.T) {
	tests := []struct {
		level int
		want  []int
	}{
		{0, []int{0, 4, 5}},
		{1, []int{0, 1, 4, 5, 6, 11, 16}},
		{2, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 11, 12, 13, 16, 17}},
		{5, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17}},
	}

	for _, tt := range tests {
		e, buf := newEngine(t)
		e.FoldByLevel(tt.level)
		if got := visible(buf); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FoldByLevel(%d) visible = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestFoldByLevelSkipsLeaves(t *testing.T) {
	e, buf := newEngine(t)
	e.FoldByLevel(2)
	for _, line := range buf.CollapsedLines() {
		if !buf.Foldable(line) {
			t.Errorf("leaf line %d was collapsed", line)
		}
	}
	if buf.Collapsed(7) {
		t.Error("line 7 has no children and must not be a fold point")
	}
}

func TestFoldByLevelIdempotent(t *testing.T) {
	for level := 0; level < 5; level++ {
		e, buf := newEngine(t)
		e.FoldByLevel(level)
		once := buf.CollapsedLines()
		onceStates := buf.FoldStates()

		e.FoldByLevel(level)
		if !reflect.DeepEqual(buf.CollapsedLines(), once) {
			t.Errorf("level %d: collapsed %v then %v", level, once, buf.CollapsedLines())
		}
		if !reflect.DeepEqual(buf.FoldStates(), onceStates) {
			t.Errorf("level %d: fold states changed on second application", level)
		}
	}
}

func TestFoldByLevelResetsPriorState(t *testing.T) {
	e, buf := newEngine(t)
	e.FoldByLevel(0)
	e.FoldByLevel(3)
	want := []int{9, 14}
	if got := buf.CollapsedLines(); !reflect.DeepEqual(got, want) {
		t.Errorf("collapsed = %v, want %v", got, want)
	}
}

func TestFoldAllButRevealsNestedRange(t *testing.T) {
	e, buf := newEngine(t)
	e.FoldAllBut(14, 15, 1)

	want := []int{0, 1, 4, 5, 6, 11, 12, 13, 14, 15, 16}
	if got := visible(buf); !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
	// Preceding sibling blocks stay collapsed.
	if !buf.Collapsed(6) {
		t.Error("water should stay collapsed")
	}
	// Blocks after the range collapse per level.
	if !buf.Collapsed(16) {
		t.Error("roads should be collapsed")
	}
}

func TestFoldAllButCollapsesEverySiblingBeforeTarget(t *testing.T) {
	e, buf := newEngine(t)
	e.FoldAllBut(17, 17, 2)

	for _, line := range []int{6, 8, 11, 13} {
		if !buf.Collapsed(line) {
			t.Errorf("sibling block at line %d should be collapsed", line)
		}
	}
	if buf.Collapsed(1) {
		t.Error("blocks above the enclosing top-level line are left at the level fold")
	}
	want := []int{0, 1, 2, 3, 4, 5, 6, 11, 16, 17}
	if got := visible(buf); !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
}

func TestFoldAllButRangeVisibleForEveryInput(t *testing.T) {
	buf := buffer.NewFromString(scene)
	e := New(buf)
	n := buf.LineCount()

	for level := 0; level <= 4; level++ {
		for from := 0; from < n; from++ {
			for to := from; to < n; to++ {
				e.FoldByLevel(0)
				e.FoldAllBut(from, to, level)
				states := buf.FoldStates()
				for i := from; i <= to; i++ {
					if states[i] != buffer.Visible {
						t.Fatalf("FoldAllBut(%d, %d, %d): line %d is %v", from, to, level, i, states[i])
					}
				}
			}
		}
	}
}

func TestFoldAllButClampsArguments(t *testing.T) {
	e, buf := newEngine(t)
	e.FoldAllBut(40, -3, 0)
	for i, s := range buf.FoldStates() {
		if s != buffer.Visible {
			t.Errorf("line %d = %v, want visible for whole-buffer range", i, s)
		}
	}
}

func TestFoldAllButBlankLinesDoNotLowerFloor(t *testing.T) {
	buf := buffer.NewFromString("a:\n    b:\n        c: 1\n\n        d: 2\n    e:\n        f: 1")
	e := New(buf)
	e.FoldAllBut(3, 4, 1)

	states := buf.FoldStates()
	if states[3] != buffer.Visible || states[4] != buffer.Visible {
		t.Errorf("states = %v", states)
	}
	if !buf.Collapsed(5) {
		t.Error("block after the range should collapse")
	}
}

func TestFoldAllButWalksPastBlankLines(t *testing.T) {
	compact := buffer.NewFromString("a:\n    b:\n        x: 1\n    c:\n        y: 1\n    d:\n        z: 1")
	New(compact).FoldAllBut(5, 6, 3)

	spaced := buffer.NewFromString("a:\n    b:\n        x: 1\n\n    c:\n        y: 1\n    d:\n        z: 1")
	New(spaced).FoldAllBut(6, 7, 3)

	// Blank lines do not end the upward walk from d.
	if !compact.Collapsed(1) || compact.Collapsed(3) {
		t.Errorf("compact: b collapsed = %v, c collapsed = %v", compact.Collapsed(1), compact.Collapsed(3))
	}
	if !spaced.Collapsed(1) || spaced.Collapsed(4) {
		t.Errorf("spaced: b collapsed = %v, c collapsed = %v", spaced.Collapsed(1), spaced.Collapsed(4))
	}
}

func TestToggle(t *testing.T) {
	e, buf := newEngine(t)
	if e.Toggle(2) {
		t.Error("leaf cannot toggle")
	}
	if !e.Toggle(1) || !buf.Collapsed(1) {
		t.Error("toggle should collapse osm")
	}
	if !e.Toggle(1) || buf.Collapsed(1) {
		t.Error("second toggle should expand osm")
	}
	if e.Toggle(99) {
		t.Error("out of range toggle should fail")
	}
}

func TestFoldUnfold(t *testing.T) {
	e, buf := newEngine(t)
	if !e.Fold(5) {
		t.Fatal("Fold(5) failed")
	}
	if got := e.Ranges(); !reflect.DeepEqual(got, []Range{{Start: 5, End: 17}}) {
		t.Errorf("Ranges = %v", got)
	}
	if !e.Unfold(5) || buf.Collapsed(5) {
		t.Error("Unfold(5) failed")
	}
	if e.Fold(4) {
		t.Error("blank line cannot fold")
	}
}

func TestEditsInvalidateRanges(t *testing.T) {
	e, buf := newEngine(t)
	e.Fold(1)
	// Dedent the children so line 1 no longer has a block.
	if _, err := buf.ReplaceLine(2, "type: MVT"); err != nil {
		t.Fatal(err)
	}
	if _, err := buf.ReplaceLine(3, "url: x"); err != nil {
		t.Fatal(err)
	}
	if buf.FoldState(2) != buffer.Visible {
		t.Error("dedented line should be visible")
	}
	e.FoldByLevel(0)
	if buf.Collapsed(1) {
		t.Error("line 1 is no longer foldable")
	}
}
