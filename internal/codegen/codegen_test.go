package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/bytecode"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/parser"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/sema"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/token"
)

func compile(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	lex := token.NewLexer([]byte(src), "t.rtmc")
	toks := lex.Tokenize()
	require.False(t, lex.Errors.HasErrors())
	p := parser.New(toks)
	prog := p.Parse()
	require.False(t, p.Errors.HasErrors(), "%v", p.Errors.All())
	an := sema.New(prog)
	ok := an.Analyze()
	require.True(t, ok, "%v", an.Errors.All())
	out, err := New(prog, an, ModeRelease).Generate()
	require.NoError(t, err)
	return out
}

func countOp(instrs []bytecode.Instruction, op bytecode.Opcode) int {
	n := 0
	for _, in := range instrs {
		if in.Op == op {
			n++
		}
	}
	return n
}

func TestGenerateSimpleFunctionReturnsExpectedInstructionShape(t *testing.T) {
	prog := compile(t, `
		int add(int a, int b) {
			return a + b;
		}
	`)
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, int32(0), fn.EntryPC)
	assert.Equal(t, int32(2), fn.NumParams)
	assert.Equal(t, 1, countOp(prog.Instructions, bytecode.OpAddI))
	assert.Equal(t, 1, countOp(prog.Instructions, bytecode.OpReturn))
}

func TestGenerateBitfieldLoadEmitsLoadFieldThenLoadBitfield(t *testing.T) {
	prog := compile(t, `
		struct Flags {
			int a : 3;
			int b : 5;
		};
		Flags f;
		int read() {
			return f.b;
		}
	`)
	var idx int
	found := false
	for i, in := range prog.Instructions {
		if in.Op == bytecode.OpLoadField && i+1 < len(prog.Instructions) && prog.Instructions[i+1].Op == bytecode.OpLoadBitfield {
			idx = i
			found = true
			break
		}
	}
	require.True(t, found, "expected OpLoadField immediately followed by OpLoadBitfield, got %v", prog.Instructions)
	bf := prog.Instructions[idx+1]
	assert.Equal(t, int32(3), bf.A, "bit offset of field b")
	assert.Equal(t, int32(5), bf.B, "bit width of field b")
}

func TestGenerateBitfieldStoreLoadsMergesAndWritesBackWholeUnit(t *testing.T) {
	prog := compile(t, `
		struct Flags {
			int a : 3;
			int b : 5;
		};
		Flags f;
		void write() {
			f.b = 1;
		}
	`)
	var loadIdx, storeIdx, storeFieldIdx int = -1, -1, -1
	for i, in := range prog.Instructions {
		switch in.Op {
		case bytecode.OpLoadField:
			if loadIdx == -1 {
				loadIdx = i
			}
		case bytecode.OpStoreBitfield:
			storeIdx = i
		case bytecode.OpStoreField:
			storeFieldIdx = i
		}
	}
	require.NotEqual(t, -1, loadIdx, "bitfield store must first load the storage unit it writes into")
	require.NotEqual(t, -1, storeIdx)
	require.NotEqual(t, -1, storeFieldIdx)
	assert.True(t, loadIdx < storeIdx, "load must precede the bitfield merge")
	assert.True(t, storeIdx < storeFieldIdx, "merge must precede writing the whole unit back")
}

func TestGenerateArrayInitializerStoresEachElement(t *testing.T) {
	prog := compile(t, `
		int xs[3] = {10, 20, 30};
		int f() {
			return xs[1];
		}
	`)
	assert.Equal(t, 3, countOp(prog.Instructions, bytecode.OpStoreIndex),
		"each initializer element must be stored at its own index")
}

func TestGenerateStructInitializerStoresEachField(t *testing.T) {
	prog := compile(t, `
		struct Point {
			int x;
			int y;
		};
		Point origin = {0, 0};
		int f() {
			return origin.x;
		}
	`)
	assert.Equal(t, 2, countOp(prog.Instructions, bytecode.OpStoreField),
		"each struct initializer element must be stored at its field offset")
}

func TestGenerateFrameSizeAccountsForLocalsInNestedBlocks(t *testing.T) {
	prog := compile(t, `
		int f(int a) {
			int b = 1;
			if (a) {
				int c = 2;
				return c;
			}
			return b;
		}
	`)
	require.Len(t, prog.Functions, 1)
	// One word each for param a, local b, and local c (all int-sized, one
	// word minimum per slot): the frame must have room for all three even
	// though only one of b/c is live at a time, matching the flat
	// (non-stack-discipline) frame layout.
	assert.GreaterOrEqual(t, prog.Functions[0].FrameSize, int32(12))
}

func TestGenerateNestedIndexThenFieldComputesAddressAllTheWay(t *testing.T) {
	// S2: pts[2].y must lower to base_addr(pts) + 2*8 + 4 then one
	// OpLoadField, never an OpLoadIndex trying to "load" a whole P struct.
	prog := compile(t, `
		struct P {
			int x;
			int y;
		};
		P pts[4];
		int f() {
			return pts[2].y;
		}
	`)
	require.Equal(t, 0, countOp(prog.Instructions, bytecode.OpLoadIndex),
		"pts[2] must contribute an address, not a loaded struct value")
	var addrIdx, fieldIdx int = -1, -1
	for i, in := range prog.Instructions {
		switch in.Op {
		case bytecode.OpAddrIndex:
			addrIdx = i
		case bytecode.OpLoadField:
			fieldIdx = i
		}
	}
	require.NotEqual(t, -1, addrIdx)
	require.NotEqual(t, -1, fieldIdx)
	assert.True(t, addrIdx < fieldIdx, "the element's address must be computed before its field is loaded")
	assert.Equal(t, int32(8), prog.Instructions[addrIdx].C, "elemSize operand must be sizeof(P)")
	assert.Equal(t, int32(4), prog.Instructions[fieldIdx].A, "offset operand must be y's offset")
}

func TestGenerateNestedFieldOfFieldChainsAddresses(t *testing.T) {
	// a.b.c: the inner a.b access must contribute b's address (OpAddrField),
	// not a loaded value, for the outer .c access to build on.
	prog := compile(t, `
		struct Inner {
			int c;
		};
		struct Outer {
			int tag;
			Inner b;
		};
		Outer a;
		int f() {
			return a.b.c;
		}
	`)
	require.Equal(t, 1, countOp(prog.Instructions, bytecode.OpAddrField),
		"resolving a.b's address must use OpAddrField, not a value load")
	require.Equal(t, 1, countOp(prog.Instructions, bytecode.OpLoadField),
		"only the terminal .c access loads a value")
}

func TestGenerateNestedFieldThenIndexStoreComputesAddress(t *testing.T) {
	prog := compile(t, `
		struct P {
			int x;
			int y;
		};
		P pts[4];
		void f() {
			pts[1].x = 7;
		}
	`)
	require.Equal(t, 0, countOp(prog.Instructions, bytecode.OpLoadIndex))
	require.Equal(t, 1, countOp(prog.Instructions, bytecode.OpAddrIndex))
	require.Equal(t, 1, countOp(prog.Instructions, bytecode.OpStoreField))
}

func TestGenerateMessageSendRecvTimeoutEncodesQueueAndTimeoutAsOperands(t *testing.T) {
	// S6: MSG_RECV_TIMEOUT Q, 100 / PUSH_CONST 1 / ADD_INT / MSG_SEND Q —
	// no stack push for either the queue or the timeout.
	prog := compile(t, `
		message<int> Q;
		void t() {
			int v = Q.recv(timeout: 100);
			Q.send(v + 1);
		}
	`)
	var recvIdx, sendIdx int = -1, -1
	for i, in := range prog.Instructions {
		switch in.Op {
		case bytecode.OpMsgRecvTimeout:
			recvIdx = i
		case bytecode.OpMsgSend:
			sendIdx = i
		}
	}
	require.NotEqual(t, -1, recvIdx)
	require.NotEqual(t, -1, sendIdx)
	assert.Equal(t, int64(100), prog.Instructions[recvIdx].Imm, "timeout must be encoded as an immediate operand")
	assert.Equal(t, prog.Instructions[recvIdx].A, prog.Instructions[sendIdx].A,
		"both instructions must carry the same compile-time queue identity")

	for _, in := range prog.Instructions[:recvIdx] {
		assert.NotEqual(t, bytecode.OpLoadGlobal, in.Op, "the queue must never be loaded as a runtime value")
	}
}

func TestGenerateMessageRecvWithoutTimeoutHasNoTimeoutOperand(t *testing.T) {
	prog := compile(t, `
		message<int> Q;
		int f() {
			return Q.recv();
		}
	`)
	require.Equal(t, 1, countOp(prog.Instructions, bytecode.OpMsgRecv))
	require.Equal(t, 0, countOp(prog.Instructions, bytecode.OpMsgRecvTimeout))
}

func TestGenerateVoidCallStatementDoesNotEmitExtraPop(t *testing.T) {
	prog := compile(t, `
		void noop() {}
		void f() {
			noop();
		}
	`)
	// Exactly one OpCall for the noop() call; no OpPop should be stranded
	// trying to discard a value a void call never pushed.
	require.Len(t, prog.Functions, 2)
	assert.Equal(t, 1, countOp(prog.Instructions, bytecode.OpCall))
	assert.Equal(t, 0, countOp(prog.Instructions, bytecode.OpPop))
}
