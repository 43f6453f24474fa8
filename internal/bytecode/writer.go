package bytecode

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
)

// Magic identifies a .vmb container, "VMB\0" as four bytes, matching the
// teacher's magic-number-first convention (yasm/output.go's MAGIC_NUMBER /
// MAGIC_WOF) but a four-byte ASCII tag instead of a 16-bit number since
// this format has no fixed 16-byte header budget to fit inside.
var Magic = [4]byte{'V', 'M', 'B', 0}

const (
	FormatVersion = 1

	// FlagDebugInfo marks that a DebugLine table follows the instruction table.
	FlagDebugInfo uint16 = 1 << 0
)

// Write serializes prog as a .vmb container to w. debug controls whether
// the debug-line table is emitted, mirroring CompileMode DEBUG (present)
// vs RELEASE (stripped) from original_source/RTMC-Compiler/main.py.
func Write(w io.Writer, prog *Program, debug bool) error {
	var buf bytes.Buffer

	buf.Write(Magic[:])
	writeU16(&buf, FormatVersion)
	var flags uint16
	if debug {
		flags |= FlagDebugInfo
	}
	writeU16(&buf, flags)

	writeIntConsts(&buf, prog.IntConsts)
	writeFloatConsts(&buf, prog.FloatConsts)
	writeStrings(&buf, prog.Strings)
	writeGlobals(&buf, prog.Globals)
	writeFunctions(&buf, prog.Functions)
	writeInstructions(&buf, prog.Instructions)

	if debug {
		writeDebugLines(&buf, prog.DebugLines)
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())

	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, sum)
}

func writeU16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }
func writeU32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func writeI32(buf *bytes.Buffer, v int32)  { binary.Write(buf, binary.LittleEndian, v) }
func writeI64(buf *bytes.Buffer, v int64)  { binary.Write(buf, binary.LittleEndian, v) }
func writeF64(buf *bytes.Buffer, v float64) { binary.Write(buf, binary.LittleEndian, v) }

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeIntConsts(buf *bytes.Buffer, vals []int64) {
	writeU32(buf, uint32(len(vals)))
	for _, v := range vals {
		writeI64(buf, v)
	}
}

func writeFloatConsts(buf *bytes.Buffer, vals []float64) {
	writeU32(buf, uint32(len(vals)))
	for _, v := range vals {
		writeF64(buf, v)
	}
}

func writeStrings(buf *bytes.Buffer, vals []string) {
	writeU32(buf, uint32(len(vals)))
	for _, v := range vals {
		writeString(buf, v)
	}
}

func writeGlobals(buf *bytes.Buffer, vals []Global) {
	writeU32(buf, uint32(len(vals)))
	for _, g := range vals {
		writeString(buf, g.Name)
		writeI32(buf, g.Offset)
		writeI32(buf, g.Size)
	}
}

func writeFunctions(buf *bytes.Buffer, vals []Function) {
	writeU32(buf, uint32(len(vals)))
	for _, f := range vals {
		writeString(buf, f.Name)
		writeI32(buf, f.EntryPC)
		writeI32(buf, f.NumParams)
		writeI32(buf, f.FrameSize)
		if f.IsTask {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
}

func writeInstructions(buf *bytes.Buffer, vals []Instruction) {
	writeU32(buf, uint32(len(vals)))
	for _, in := range vals {
		writeI32(buf, int32(in.Op))
		writeI32(buf, in.A)
		writeI32(buf, in.B)
		writeI32(buf, in.C)
		writeI64(buf, in.Imm)
	}
}

func writeDebugLines(buf *bytes.Buffer, vals []DebugLine) {
	writeU32(buf, uint32(len(vals)))
	for _, d := range vals {
		writeI32(buf, d.InstrIndex)
		writeString(buf, d.File)
		writeI32(buf, d.Line)
	}
}
