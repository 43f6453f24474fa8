package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineStructLaysOutSequentialIntFields(t *testing.T) {
	lt := NewLayoutTable()
	def, err := lt.DefineStruct("Point", false, []FieldSpec{
		{Name: "x", Type: Base(BInt)},
		{Name: "y", Type: Base(BInt)},
	})
	require.NoError(t, err)
	require.Len(t, def.Fields, 2)
	assert.Equal(t, 0, def.Fields[0].Offset)
	assert.Equal(t, 4, def.Fields[1].Offset)
	assert.Equal(t, 8, def.Size)
}

func TestDefineStructPacksConsecutiveBitfieldsIntoOneUnit(t *testing.T) {
	lt := NewLayoutTable()
	def, err := lt.DefineStruct("F", false, []FieldSpec{
		{Name: "a", Type: Base(BInt), BitWidth: 4},
		{Name: "b", Type: Base(BInt), BitWidth: 8},
		{Name: "c", Type: Base(BInt), BitWidth: 20},
	})
	require.NoError(t, err)
	require.Len(t, def.Fields, 3)

	a, b, c := def.Fields[0], def.Fields[1], def.Fields[2]
	assert.Equal(t, 0, a.Offset)
	assert.Equal(t, 0, a.BitOffset)
	assert.Equal(t, 4, a.BitWidth)
	assert.Equal(t, 0, b.Offset)
	assert.Equal(t, 4, b.BitOffset)
	assert.Equal(t, 8, b.BitWidth)
	assert.Equal(t, 0, c.Offset)
	assert.Equal(t, 12, c.BitOffset)
	assert.Equal(t, 20, c.BitWidth)
	assert.Equal(t, 4, def.Size)
	assert.Equal(t, 4, def.Align)
}

func TestDefineStructStartsNewUnitWhenBitfieldWouldOverflow(t *testing.T) {
	lt := NewLayoutTable()
	def, err := lt.DefineStruct("G", false, []FieldSpec{
		{Name: "a", Type: Base(BInt), BitWidth: 24},
		{Name: "b", Type: Base(BInt), BitWidth: 16}, // 24+16 > 32 bits: must start a new unit
	})
	require.NoError(t, err)
	a, b := def.Fields[0], def.Fields[1]
	assert.Equal(t, 0, a.Offset)
	assert.Equal(t, 4, b.Offset, "b must open a new storage unit rather than split across the boundary")
	assert.Equal(t, 0, b.BitOffset)
	assert.Equal(t, 8, def.Size)
}

func TestDefineStructFollowingNormalFieldAfterBitfieldStartsNewWord(t *testing.T) {
	lt := NewLayoutTable()
	def, err := lt.DefineStruct("H", false, []FieldSpec{
		{Name: "flags", Type: Base(BInt), BitWidth: 4},
		{Name: "next", Type: Base(BInt)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, def.Fields[0].Offset)
	assert.Equal(t, 4, def.Fields[1].Offset, "a normal field after a bitfield must start at the next storage unit")
	assert.Equal(t, 8, def.Size)
}

func TestDefineUnionOverlapsAllFieldsAtOffsetZero(t *testing.T) {
	lt := NewLayoutTable()
	def, err := lt.DefineStruct("U", true, []FieldSpec{
		{Name: "i", Type: Base(BInt)},
		{Name: "c", Type: Base(BChar)},
		{Name: "arr", Type: Base(BChar), ArrayLen: 16},
	})
	require.NoError(t, err)
	for _, f := range def.Fields {
		assert.Equal(t, 0, f.Offset)
	}
	assert.Equal(t, 16, def.Size, "union size must be the largest member's size")
}

func TestDefineStructAlignsTotalSizeToItsAlignment(t *testing.T) {
	lt := NewLayoutTable()
	def, err := lt.DefineStruct("Odd", false, []FieldSpec{
		{Name: "c", Type: Base(BChar)},
		{Name: "i", Type: Base(BInt)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, def.Size%def.Align, "total size must be a multiple of the struct's alignment")
	for _, f := range def.Fields {
		assert.LessOrEqual(t, f.Offset+f.Type.Size(lt.Structs), def.Size)
	}
}

func TestDefineStructNestedStructFieldIsLaidOutRecursively(t *testing.T) {
	lt := NewLayoutTable()
	_, err := lt.DefineStruct("Inner", false, []FieldSpec{
		{Name: "a", Type: Base(BInt)},
		{Name: "b", Type: Base(BInt)},
	})
	require.NoError(t, err)

	outer, err := lt.DefineStruct("Outer", false, []FieldSpec{
		{Name: "first", Type: Base(BChar)},
		{Name: "inner", Type: StructRef("Inner")},
	})
	require.NoError(t, err)
	require.Len(t, outer.Fields, 2)
	assert.Equal(t, 4, outer.Fields[1].Offset, "nested struct field must align to its own alignment (word-sized here)")
	assert.Equal(t, 12, outer.Size)
}
