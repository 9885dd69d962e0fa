// Package code defines Coro's bytecode instruction format: how an Opcode
// and its operands are packed into a byte stream, and how that stream is
// decoded back for execution or disassembly.
package code

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Instructions is a packed stream of one or more instructions.
type Instructions []byte

// String disassembles ins into one "position opcode operands" line per
// instruction, used by the --instr debug trace.
func (ins Instructions) String() string {
	var out bytes.Buffer

	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}

		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, ins.fmtInstruction(def, operands))

		i += 1 + read
	}

	return out.String()
}

func (ins Instructions) fmtInstruction(def *Definition, operands []int) string {
	operandCount := len(def.OperandWidths)

	if len(operands) != operandCount {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d\n",
			len(operands), operandCount)
	}

	switch operandCount {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}

	return fmt.Sprintf("ERROR: unhandled operandCount for %s\n", def.Name)
}

// Opcode is the first byte of an instruction.
type Opcode byte

const (
	// PUSH_CONST pushes constants[operand] onto the value stack.
	PushConst Opcode = iota
	// LOAD pushes the value held in slot operand of the current frame.
	Load
	// BIND pops the top of the stack and stores it into slot operand.
	// A `let` of a name already bound in the innermost scope rebinds that
	// slot rather than allocating a new one.
	Bind
	// POP discards the top of the stack.
	Pop
	// ENTER_SCOPE marks the start of a `{ ... }` block. Slots are resolved
	// at compile time, so the VM only steps past it.
	EnterScope
	// LEAVE_SCOPE marks the end of a `{ ... }` block; the VM only steps past
	// it.
	LeaveScope
	// ADD, SUB, MUL, DIV pop two values and push the result of the binary
	// arithmetic operator.
	Add
	Sub
	Mul
	Div
	// EQ, LT pop two values and push the Bool result of the comparison.
	Eq
	Lt
	// NOT, NEG pop one value and push the result of the unary operator.
	Not
	Neg
	// JMP unconditionally sets ip to operand.
	Jmp
	// JMP_IF_FALSE pops one value and sets ip to operand if it is not
	// Truthy.
	JmpIfFalse
	// PRINT pops one value and writes its rendered form to stdout.
	Print
	// CREATE creates a Fresh coroutine for routine table entry
	// operand and pushes its handle.
	Create
	// RESUME pops operand argument values then a coroutine handle, and
	// transfers control into that coroutine.
	Resume
	// YIELD pops one value, suspends the running coroutine and transfers
	// control back to its resumer.
	Yield
	// HALT stops the current frame's execution.
	Halt
)

// Definition names an Opcode and the byte width of each of its operands.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	PushConst:  {"PUSH_CONST", []int{2}},
	Load:       {"LOAD", []int{2}},
	Bind:       {"BIND", []int{2}},
	Pop:        {"POP", []int{}},
	EnterScope: {"ENTER_SCOPE", []int{}},
	LeaveScope: {"LEAVE_SCOPE", []int{}},
	Add:        {"ADD", []int{}},
	Sub:        {"SUB", []int{}},
	Mul:        {"MUL", []int{}},
	Div:        {"DIV", []int{}},
	Eq:         {"EQ", []int{}},
	Lt:         {"LT", []int{}},
	Not:        {"NOT", []int{}},
	Neg:        {"NEG", []int{}},
	Jmp:        {"JMP", []int{2}},
	JmpIfFalse: {"JMP_IF_FALSE", []int{2}},
	Print:      {"PRINT", []int{}},
	Create:     {"CREATE", []int{2}},
	Resume:     {"RESUME", []int{1}},
	Yield:      {"YIELD", []int{}},
	Halt:       {"HALT", []int{}},
}

// Lookup returns the Definition for op, or an error if op is not a known
// Opcode.
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Make encodes a single instruction: op followed by its operands, each
// packed at the byte width its Definition specifies.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}

	instructionLen := 1
	for _, w := range def.OperandWidths {
		instructionLen += w
	}

	instruction := make([]byte, instructionLen)
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		case 1:
			instruction[offset] = byte(o)
		}
		offset += width
	}

	return instruction
}

// ReadOperands decodes the operands of the instruction at the start of ins,
// given its Definition, returning the decoded operands and how many bytes
// were consumed.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ins[offset])
		}
		offset += width
	}

	return operands, offset
}

// ReadUint16 decodes a big-endian two-byte operand from the start of ins.
func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}
