// Package bytecode defines the RT-Micro-C bytecode instruction set and the
// .vmb container format, grounded on yasm/output.go's manual little-endian
// header packing (writer side) and yld/reader.go's encoding/binary reader
// (reader side) — the teacher uses both styles across its own packages, so
// standardizing on encoding/binary for both directions here is a grounded
// simplification rather than an invented one.
package bytecode

// Opcode identifies one bytecode instruction. One opcode per primitive
// operation, including one opcode per HW_*/RTOS_* intrinsic and per message
// operation, mirroring ygen/emit.go's one-instruction-one-helper idiom
// (Ldw/Ldb/Instr2/Instr3) adapted to struct emission instead of text.
type Opcode int32

const (
	OpNop Opcode = iota

	// Stack / immediate.
	OpPushConst  // push the int constant at pool index A
	OpPushFloat  // push float constant from the pool index in A
	OpPushStr    // push string constant (pool index in A)
	OpPop
	OpDup

	// Arithmetic (int).
	OpAddI
	OpSubI
	OpMulI
	OpDivI
	OpModI
	OpNegI

	// Arithmetic (float).
	OpAddF
	OpSubF
	OpMulF
	OpDivF
	OpNegF

	// Bitwise / shift.
	OpAnd
	OpOr
	OpXor
	OpNot
	OpShl
	OpShr

	// Comparison (push 0/1).
	OpEqI
	OpNeI
	OpLtI
	OpGtI
	OpLeI
	OpGeI
	OpEqF
	OpNeF
	OpLtF
	OpGtF
	OpLeF
	OpGeF

	// Logical.
	OpLNot

	// Memory: globals, locals/params, struct fields, arrays, pointers.
	OpLoadGlobal
	OpStoreGlobal
	OpLoadLocal
	OpStoreLocal
	OpLoadAddrLocal  // push address of a local/param (for '&' and arg-by-ref)
	OpLoadAddrGlobal // push address of a global
	OpLoadField      // load N bytes at [addr+offset]
	OpStoreField
	OpLoadIndex  // load element: addr, idx, elemSize -> value
	OpStoreIndex
	OpLoadDeref  // load through a pointer already on the stack
	OpStoreDeref
	OpLoadBitfield  // extract bitOffset/bitWidth from a loaded storage unit
	OpStoreBitfield // insert bitOffset/bitWidth into a storage unit, write back
	OpAddrIndex     // addr, idx, elemSize(C) -> addr + idx*elemSize (for '&a[i]')
	OpAddrField     // addr, offset(A) -> addr + offset (for '&s.field')

	// Control flow.
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpCall
	OpReturn
	OpReturnVoid

	// Casts / widening.
	OpCastIntToFloat
	OpCastFloatToInt
	OpTruncToChar

	// Intrinsics: one opcode per HW_*/RTOS_* name, operand count varies by
	// call; args are pushed left-to-right before the intrinsic opcode, per
	// the teacher's own arg-then-op stack convention (yasm/assembler.go's
	// operand emission order).
	OpCallIntrinsic // operand A = intrinsic ID (see IntrinsicID), B = argc

	// Messages: the queue is a compile-time identity, not data, so it travels
	// as operand A (the message global's offset) rather than a stack value;
	// only the payload (OpMsgSend) and result (OpMsgRecv*) use the stack.
	OpMsgSend        // A = queue offset; pops and enqueues the payload value
	OpMsgRecv        // A = queue offset; pushes the dequeued value, blocking
	OpMsgRecvTimeout // A = queue offset, Imm = timeout in ms; pushes the value
)

// IntrinsicID enumerates the HW_*/RTOS_* names OpCallIntrinsic can invoke,
// in the same order internal/sema.Intrinsics lists them, so codegen can
// look a name up once at generation time and encode a stable small integer
// rather than re-resolving a string at VM runtime.
type IntrinsicID int32

const (
	IntrRTOS_CREATE_TASK IntrinsicID = iota
	IntrRTOS_DELETE_TASK
	IntrRTOS_DELAY_MS
	IntrRTOS_SEMAPHORE_CREATE
	IntrRTOS_SEMAPHORE_TAKE
	IntrRTOS_SEMAPHORE_GIVE
	IntrRTOS_YIELD
	IntrRTOS_SUSPEND_TASK
	IntrRTOS_RESUME_TASK
	IntrHW_GPIO_INIT
	IntrHW_GPIO_SET
	IntrHW_GPIO_GET
	IntrHW_TIMER_INIT
	IntrHW_TIMER_START
	IntrHW_TIMER_STOP
	IntrHW_TIMER_SET_PWM_DUTY
	IntrHW_ADC_INIT
	IntrHW_ADC_READ
	IntrHW_UART_WRITE
	IntrHW_SPI_TRANSFER
	IntrHW_I2C_WRITE
	IntrHW_I2C_READ
)

// IntrinsicIDs maps an intrinsic's source name to its stable ID, the
// codegen-side mirror of internal/sema.Intrinsics' signature table.
var IntrinsicIDs = map[string]IntrinsicID{
	"RTOS_CREATE_TASK":      IntrRTOS_CREATE_TASK,
	"RTOS_DELETE_TASK":      IntrRTOS_DELETE_TASK,
	"RTOS_DELAY_MS":         IntrRTOS_DELAY_MS,
	"RTOS_SEMAPHORE_CREATE": IntrRTOS_SEMAPHORE_CREATE,
	"RTOS_SEMAPHORE_TAKE":   IntrRTOS_SEMAPHORE_TAKE,
	"RTOS_SEMAPHORE_GIVE":   IntrRTOS_SEMAPHORE_GIVE,
	"RTOS_YIELD":            IntrRTOS_YIELD,
	"RTOS_SUSPEND_TASK":     IntrRTOS_SUSPEND_TASK,
	"RTOS_RESUME_TASK":      IntrRTOS_RESUME_TASK,
	"HW_GPIO_INIT":          IntrHW_GPIO_INIT,
	"HW_GPIO_SET":           IntrHW_GPIO_SET,
	"HW_GPIO_GET":           IntrHW_GPIO_GET,
	"HW_TIMER_INIT":         IntrHW_TIMER_INIT,
	"HW_TIMER_START":        IntrHW_TIMER_START,
	"HW_TIMER_STOP":         IntrHW_TIMER_STOP,
	"HW_TIMER_SET_PWM_DUTY": IntrHW_TIMER_SET_PWM_DUTY,
	"HW_ADC_INIT":           IntrHW_ADC_INIT,
	"HW_ADC_READ":           IntrHW_ADC_READ,
	"HW_UART_WRITE":         IntrHW_UART_WRITE,
	"HW_SPI_TRANSFER":       IntrHW_SPI_TRANSFER,
	"HW_I2C_WRITE":          IntrHW_I2C_WRITE,
	"HW_I2C_READ":           IntrHW_I2C_READ,
}

// Instruction is one bytecode instruction: an opcode plus up to three
// integer operands (register/slot numbers, offsets, jump targets, pool
// indices) and one 64-bit immediate for literal int/float payloads.
type Instruction struct {
	Op   Opcode
	A, B, C int32
	Imm  int64
}

// Function describes one compiled function's entry point and frame shape.
type Function struct {
	Name      string
	EntryPC   int32
	NumParams int32
	FrameSize int32 // bytes, grounded on ysem/ir.go's IRFunction.FrameSize
	IsTask    bool
}

// Global describes one global variable's storage slot.
type Global struct {
	Name   string
	Offset int32
	Size   int32
}

// DebugLine maps one instruction index to its source location, emitted only
// in DEBUG builds (CompileMode, SPEC_FULL.md §4.6).
type DebugLine struct {
	InstrIndex int32
	File       string
	Line       int32
}

// Program is the fully generated, pre-serialization form of a compiled
// RT-Micro-C module: every table the .vmb writer needs, already resolved
// (no pending fixups — internal/codegen.Generator guarantees every jump
// target is concrete before returning a Program).
type Program struct {
	IntConsts    []int64
	FloatConsts  []float64
	Strings      []string
	Globals      []Global
	Functions    []Function
	Instructions []Instruction
	DebugLines   []DebugLine // empty unless built in DEBUG mode
}
