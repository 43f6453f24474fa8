package codegen

import "fmt"

// FixupState tracks whether a forward jump/call's target label has been
// placed yet.
type FixupState int

const (
	FixupPending FixupState = iota
	FixupResolved
)

// Fixup records one not-yet-resolved jump target: instruction InstrIndex's
// operand A must be overwritten with LabelID's instruction index once that
// label is placed. This is the explicit two-pass worklist SPEC_FULL.md §4.6
// mandates in place of the teacher's yasm/assembler.go pass1/pass2 approach
// (which reruns both passes over the whole input): here a single forward
// pass emits instructions and records fixups as it goes, then a second,
// much cheaper pass only walks the (typically short) fixups list instead of
// re-scanning every instruction.
type Fixup struct {
	InstrIndex int
	LabelID    int
	State      FixupState
}

// newLabel allocates a fresh, as-yet-unplaced label ID.
func (g *Generator) newLabel() int {
	id := g.nextLabel
	g.nextLabel++
	return id
}

// placeLabel records the current instruction index as labelID's target.
// Emitting code is append-only, so "current index" is always len(g.instrs).
func (g *Generator) placeLabel(labelID int) {
	g.labelPos[labelID] = int32(len(g.instrs))
}

// emitJump appends a jump-family instruction whose target is a label that
// may not have been placed yet, queuing a Fixup to resolve it later.
func (g *Generator) emitJump(op Opcode, labelID int) {
	idx := len(g.instrs)
	g.emit(op, 0, 0, 0, 0)
	g.fixups = append(g.fixups, Fixup{InstrIndex: idx, LabelID: labelID, State: FixupPending})
}

// resolveFixups walks the fixups worklist exactly once, writing each
// pending fixup's now-known label position into its instruction's operand
// A. Every label referenced by a fixup must have been placed by the time
// this runs (every AST jump always has a reachable corresponding label in a
// single function body) — a missing label is an internal codegen bug, not
// a user source error, so it fails fast rather than accumulating a
// diagnostic (spec §7: codegen errors are fail-fast).
func (g *Generator) resolveFixups() error {
	for i := range g.fixups {
		fx := &g.fixups[i]
		pos, ok := g.labelPos[fx.LabelID]
		if !ok {
			return fmt.Errorf("codegen: unresolved label %d referenced by instruction %d", fx.LabelID, fx.InstrIndex)
		}
		if fx.InstrIndex < 0 || fx.InstrIndex >= len(g.instrs) {
			return fmt.Errorf("codegen: fixup instruction index %d out of range", fx.InstrIndex)
		}
		g.instrs[fx.InstrIndex].A = pos
		fx.State = FixupResolved
	}
	return nil
}
