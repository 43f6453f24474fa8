package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// Read deserializes a .vmb container, grounded on yld/reader.go's
// binary.LittleEndian field-by-field decoding, verifying the trailing
// CRC-32 before trusting any table (spec invariant I8: Writer->Reader must
// round-trip byte-identical tables).
func Read(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading vmb: %w", err)
	}
	if len(data) < 4+2+2+4 {
		return nil, fmt.Errorf("vmb file too short")
	}
	body := data[:len(data)-4]
	wantSum := binary.LittleEndian.Uint32(data[len(data)-4:])
	gotSum := crc32.ChecksumIEEE(body)
	if gotSum != wantSum {
		return nil, fmt.Errorf("vmb checksum mismatch: got %08x want %08x", gotSum, wantSum)
	}

	br := bytes.NewReader(body)
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("bad vmb magic %v", magic)
	}
	version := readU16(br)
	if version != FormatVersion {
		return nil, fmt.Errorf("unsupported vmb version %d", version)
	}
	flags := readU16(br)
	debug := flags&FlagDebugInfo != 0

	prog := &Program{}
	prog.IntConsts = readIntConsts(br)
	prog.FloatConsts = readFloatConsts(br)
	prog.Strings = readStrings(br)
	prog.Globals = readGlobals(br)
	prog.Functions = readFunctions(br)
	prog.Instructions = readInstructions(br)
	if debug {
		prog.DebugLines = readDebugLines(br)
	}
	return prog, nil
}

func readU16(r *bytes.Reader) uint16 {
	var v uint16
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readU32(r *bytes.Reader) uint32 {
	var v uint32
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readI32(r *bytes.Reader) int32 {
	var v int32
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readI64(r *bytes.Reader) int64 {
	var v int64
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readF64(r *bytes.Reader) float64 {
	var v float64
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readString(r *bytes.Reader) string {
	n := readU32(r)
	buf := make([]byte, n)
	io.ReadFull(r, buf)
	return string(buf)
}

func readIntConsts(r *bytes.Reader) []int64 {
	n := readU32(r)
	out := make([]int64, n)
	for i := range out {
		out[i] = readI64(r)
	}
	return out
}

func readFloatConsts(r *bytes.Reader) []float64 {
	n := readU32(r)
	out := make([]float64, n)
	for i := range out {
		out[i] = readF64(r)
	}
	return out
}

func readStrings(r *bytes.Reader) []string {
	n := readU32(r)
	out := make([]string, n)
	for i := range out {
		out[i] = readString(r)
	}
	return out
}

func readGlobals(r *bytes.Reader) []Global {
	n := readU32(r)
	out := make([]Global, n)
	for i := range out {
		out[i] = Global{Name: readString(r), Offset: readI32(r), Size: readI32(r)}
	}
	return out
}

func readFunctions(r *bytes.Reader) []Function {
	n := readU32(r)
	out := make([]Function, n)
	for i := range out {
		name := readString(r)
		entry := readI32(r)
		params := readI32(r)
		frame := readI32(r)
		isTaskByte, _ := r.ReadByte()
		out[i] = Function{Name: name, EntryPC: entry, NumParams: params, FrameSize: frame, IsTask: isTaskByte != 0}
	}
	return out
}

func readInstructions(r *bytes.Reader) []Instruction {
	n := readU32(r)
	out := make([]Instruction, n)
	for i := range out {
		op := Opcode(readI32(r))
		a := readI32(r)
		b := readI32(r)
		c := readI32(r)
		imm := readI64(r)
		out[i] = Instruction{Op: op, A: a, B: b, C: c, Imm: imm}
	}
	return out
}

func readDebugLines(r *bytes.Reader) []DebugLine {
	n := readU32(r)
	out := make([]DebugLine, n)
	for i := range out {
		idx := readI32(r)
		file := readString(r)
		line := readI32(r)
		out[i] = DebugLine{InstrIndex: idx, File: file, Line: line}
	}
	return out
}
