// Package token defines RT-Micro-C's lexical tokens and the hand-rolled
// byte-level scanner that produces them, generalizing the teacher's
// ylex/lexer.go scanning style (digit/ident/string/char handling, escape
// table) to RT-Micro-C's keyword set and diagnostic-accumulation rules.
package token

import "github.com/OmidArdestani/RTMC-Framework-sub001/internal/diag"

// Kind enumerates token categories.
type Kind int

const (
	EOF Kind = iota
	Ident
	IntLit
	FloatLit
	CharLit
	StringLit

	// Keywords
	KwInt
	KwFloat
	KwChar
	KwBool
	KwVoid
	KwConst
	KwStruct
	KwUnion
	KwTask
	KwMessage
	KwImport
	KwTrue
	KwFalse
	KwSend
	KwRecv
	KwIf
	KwElse
	KwWhile
	KwFor
	KwBreak
	KwContinue
	KwReturn
	KwGoto
	KwSizeof

	// Intrinsic identifiers (HW_*/RTOS_*) are lexed as KwIntrinsic with the
	// exact name kept in Lexeme, per original_source's ply_lexer.py reserved
	// table mapping each spelling to its own token type. We collapse them to
	// one kind here; the parser/semantic analyzer dispatch on Lexeme.
	KwIntrinsic

	// Punctuation / operators
	Plus
	Minus
	Star
	Slash
	Percent
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	Increment
	Decrement
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	AndAnd
	OrOr
	Not
	Amp
	Pipe
	Caret
	Tilde
	Shl
	Shr
	Semi
	Comma
	Dot
	Arrow
	Colon
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
)

var keywords = map[string]Kind{
	"int": KwInt, "float": KwFloat, "char": KwChar, "bool": KwBool,
	"void": KwVoid, "const": KwConst, "struct": KwStruct, "union": KwUnion,
	"Task": KwTask, "message": KwMessage, "import": KwImport,
	"true": KwTrue, "false": KwFalse, "send": KwSend, "recv": KwRecv,
	"if": KwIf, "else": KwElse, "while": KwWhile, "for": KwFor,
	"break": KwBreak, "continue": KwContinue, "return": KwReturn,
	"goto": KwGoto, "sizeof": KwSizeof,
}

// Intrinsics is the fixed set of RTOS_*/HW_* reserved names, grounded on
// original_source/RTMC-Compiler/src/lexer/ply_lexer.py's reserved table.
var Intrinsics = map[string]bool{
	"RTOS_CREATE_TASK": true, "RTOS_DELETE_TASK": true, "RTOS_DELAY_MS": true,
	"RTOS_SEMAPHORE_CREATE": true, "RTOS_SEMAPHORE_TAKE": true, "RTOS_SEMAPHORE_GIVE": true,
	"RTOS_YIELD": true, "RTOS_SUSPEND_TASK": true, "RTOS_RESUME_TASK": true,
	"HW_GPIO_INIT": true, "HW_GPIO_SET": true, "HW_GPIO_GET": true,
	"HW_TIMER_INIT": true, "HW_TIMER_START": true, "HW_TIMER_STOP": true,
	"HW_TIMER_SET_PWM_DUTY": true, "HW_ADC_INIT": true, "HW_ADC_READ": true,
	"HW_UART_WRITE": true, "HW_SPI_TRANSFER": true, "HW_I2C_WRITE": true,
	"HW_I2C_READ": true,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var kindNames = map[Kind]string{
	EOF: "eof", Ident: "identifier", IntLit: "int literal", FloatLit: "float literal",
	CharLit: "char literal", StringLit: "string literal",
	Semi: ";", Comma: ",", Dot: ".", Arrow: "->", Colon: ":",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
}

// Token is one lexical unit with its source location.
type Token struct {
	Kind   Kind
	Lexeme string
	IntVal int64
	FltVal float64
	Loc    diag.Loc
}
