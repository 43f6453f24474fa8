package sema

import "github.com/OmidArdestani/RTMC-Framework-sub001/internal/types"

// ParamKind is the accepted argument kind for one intrinsic parameter slot.
type ParamKind int

const (
	PInt ParamKind = iota
	PFloat
	PString
	PFuncRef
	PAny
)

// IntrinsicSig describes one HW_*/RTOS_* call's fixed arity and parameter
// kinds; only the arity is checked at call sites. Grounded on the call
// shapes observed in
// original_source/RCMC-Compiler/tests/test_compiler.py
// (HW_GPIO_INIT(25, 1), RTOS_CREATE_TASK(func, "name", 1024, 5, 0)) and the
// reserved-name table in
// original_source/RTMC-Compiler/src/lexer/ply_lexer.py.
type IntrinsicSig struct {
	Name       string
	Params     []ParamKind
	ReturnType *types.Type
}

func intT() *types.Type   { return types.Base(types.BInt) }
func voidT() *types.Type  { return types.Void() }
func boolT() *types.Type  { return types.Base(types.BBool) }

// Intrinsics is the fixed signature table every HW_*/RTOS_* call is checked
// against. Unlike user function calls, only the argument count is compared;
// argument types are not checked against the parameter kinds.
var Intrinsics = map[string]IntrinsicSig{
	"RTOS_CREATE_TASK":      {Params: []ParamKind{PFuncRef, PString, PInt, PInt, PInt}, ReturnType: intT()},
	"RTOS_DELETE_TASK":      {Params: []ParamKind{PInt}, ReturnType: voidT()},
	"RTOS_DELAY_MS":         {Params: []ParamKind{PInt}, ReturnType: voidT()},
	"RTOS_SEMAPHORE_CREATE": {Params: nil, ReturnType: intT()},
	"RTOS_SEMAPHORE_TAKE":   {Params: []ParamKind{PInt, PInt}, ReturnType: boolT()},
	"RTOS_SEMAPHORE_GIVE":   {Params: []ParamKind{PInt}, ReturnType: voidT()},
	"RTOS_YIELD":            {Params: nil, ReturnType: voidT()},
	"RTOS_SUSPEND_TASK":     {Params: []ParamKind{PInt}, ReturnType: voidT()},
	"RTOS_RESUME_TASK":      {Params: []ParamKind{PInt}, ReturnType: voidT()},

	"HW_GPIO_INIT":          {Params: []ParamKind{PInt, PInt}, ReturnType: voidT()},
	"HW_GPIO_SET":           {Params: []ParamKind{PInt, PInt}, ReturnType: voidT()},
	"HW_GPIO_GET":           {Params: []ParamKind{PInt}, ReturnType: intT()},
	"HW_TIMER_INIT":         {Params: []ParamKind{PInt, PInt}, ReturnType: voidT()},
	"HW_TIMER_START":        {Params: []ParamKind{PInt}, ReturnType: voidT()},
	"HW_TIMER_STOP":         {Params: []ParamKind{PInt}, ReturnType: voidT()},
	"HW_TIMER_SET_PWM_DUTY": {Params: []ParamKind{PInt, PInt}, ReturnType: voidT()},
	"HW_ADC_INIT":           {Params: []ParamKind{PInt}, ReturnType: voidT()},
	"HW_ADC_READ":           {Params: []ParamKind{PInt}, ReturnType: intT()},
	"HW_UART_WRITE":         {Params: []ParamKind{PInt, PString}, ReturnType: voidT()},
	"HW_SPI_TRANSFER":       {Params: []ParamKind{PInt, PInt}, ReturnType: intT()},
	"HW_I2C_WRITE":          {Params: []ParamKind{PInt, PInt, PInt}, ReturnType: voidT()},
	"HW_I2C_READ":           {Params: []ParamKind{PInt, PInt}, ReturnType: intT()},
}
