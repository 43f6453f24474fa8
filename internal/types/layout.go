package types

// FieldSpec is one source-level struct/union field before layout: either a
// normal typed field or a bitfield (BitWidth > 0) sharing a storage unit
// with its neighbors.
type FieldSpec struct {
	Name     string
	Type     *Type // must be an integral base type when BitWidth > 0
	ArrayLen int
	BitWidth int // 0 = not a bitfield
}

// LayoutTable resolves struct/union field offsets and overall size/alignment.
// Struct layout is grounded on yparse/symtab.go's DefineStruct (sequential
// field placement with alignUp at each field and a final size round-up to
// the struct's alignment), generalized to:
//   - cap any field's alignment at WordSize (spec's layout rule; the
//     teacher had no such cap since YAPL's widest base type was already
//     word-sized),
//   - union layout (all fields at offset 0, size/align from the largest
//     member) — entirely new, no teacher analog,
//   - bitfield packing — entirely new, no teacher analog. Consecutive
//     bitfields of the same underlying type share one WordSize-byte storage
//     unit while bits fit; a bitfield that would cross the unit boundary
//     starts a new unit instead of splitting across units (spec invariant
//     I4: a bitfield is never split across storage units).
type LayoutTable struct {
	Structs map[string]*StructDef
}

func NewLayoutTable() *LayoutTable {
	return &LayoutTable{Structs: make(map[string]*StructDef)}
}

// DefineStruct computes the layout for a struct (ordered, packed fields)
// or a union (overlapping fields, all at offset 0) and registers it.
func (lt *LayoutTable) DefineStruct(name string, isUnion bool, fields []FieldSpec) (*StructDef, error) {
	if isUnion {
		return lt.defineUnion(name, fields)
	}
	return lt.defineStruct(name, fields)
}

func (lt *LayoutTable) defineStruct(name string, fields []FieldSpec) (*StructDef, error) {
	def := &StructDef{Name: name, Fields: make([]FieldDef, 0, len(fields)), Align: 1}

	offset := 0
	// bitUnit tracks the currently open bitfield storage unit, if any:
	// its byte offset and how many bits of it are already consumed.
	bitUnitOpen := false
	bitUnitOffset := 0
	bitUnitUsed := 0
	bitUnitType := BInvalid

	closeBitUnit := func() {
		if bitUnitOpen {
			offset = bitUnitOffset + WordSize
			bitUnitOpen = false
			bitUnitUsed = 0
		}
	}

	for _, f := range fields {
		if f.BitWidth > 0 {
			baseKind := BInvalid
			if f.Type.Kind == KBase {
				baseKind = f.Type.Base
			}
			needsNewUnit := !bitUnitOpen ||
				bitUnitType != baseKind ||
				bitUnitUsed+f.BitWidth > WordSize*8

			if needsNewUnit {
				closeBitUnit()
				offset = AlignUp(offset, WordSize)
				if WordSize > def.Align {
					def.Align = WordSize
				}
				bitUnitOpen = true
				bitUnitOffset = offset
				bitUnitUsed = 0
				bitUnitType = baseKind
			}

			def.Fields = append(def.Fields, FieldDef{
				Name:       f.Name,
				Type:       f.Type,
				IsBitfield: true,
				Offset:     bitUnitOffset,
				BitOffset:  bitUnitUsed,
				BitWidth:   f.BitWidth,
			})
			bitUnitUsed += f.BitWidth
			continue
		}

		closeBitUnit()

		fieldAlign := f.Type.Alignment(lt.Structs)
		if fieldAlign > def.Align {
			def.Align = fieldAlign
		}
		offset = AlignUp(offset, fieldAlign)

		def.Fields = append(def.Fields, FieldDef{
			Name:     f.Name,
			Type:     f.Type,
			ArrayLen: f.ArrayLen,
			Offset:   offset,
		})

		size := f.Type.Size(lt.Structs)
		if f.ArrayLen > 0 {
			size *= f.ArrayLen
		}
		offset += size
	}
	closeBitUnit()

	def.Size = AlignUp(offset, def.Align)
	lt.Structs[name] = def
	return def, nil
}

func (lt *LayoutTable) defineUnion(name string, fields []FieldSpec) (*StructDef, error) {
	def := &StructDef{Name: name, IsUnion: true, Fields: make([]FieldDef, 0, len(fields)), Align: 1}

	maxSize := 0
	for _, f := range fields {
		fieldAlign := f.Type.Alignment(lt.Structs)
		if fieldAlign > def.Align {
			def.Align = fieldAlign
		}
		size := f.Type.Size(lt.Structs)
		if f.ArrayLen > 0 {
			size *= f.ArrayLen
		}
		if size > maxSize {
			maxSize = size
		}
		def.Fields = append(def.Fields, FieldDef{
			Name:     f.Name,
			Type:     f.Type,
			ArrayLen: f.ArrayLen,
			Offset:   0,
		})
	}
	def.Size = AlignUp(maxSize, def.Align)
	lt.Structs[name] = def
	return def, nil
}

func (lt *LayoutTable) Lookup(name string) (*StructDef, bool) {
	sd, ok := lt.Structs[name]
	return sd, ok
}
