package classfile

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Opcode mnemonics 0x00..0xc9 in order.
var opcodeNames = strings.Fields(`
nop aconst_null iconst_m1 iconst_0 iconst_1 iconst_2 iconst_3 iconst_4 iconst_5
lconst_0 lconst_1 fconst_0 fconst_1 fconst_2 dconst_0 dconst_1 bipush sipush
ldc ldc_w ldc2_w iload lload fload dload aload iload_0 iload_1 iload_2 iload_3
lload_0 lload_1 lload_2 lload_3 fload_0 fload_1 fload_2 fload_3 dload_0 dload_1
dload_2 dload_3 aload_0 aload_1 aload_2 aload_3 iaload laload faload daload
aaload baload caload saload istore lstore fstore dstore astore istore_0 istore_1
istore_2 istore_3 lstore_0 lstore_1 lstore_2 lstore_3 fstore_0 fstore_1 fstore_2
fstore_3 dstore_0 dstore_1 dstore_2 dstore_3 astore_0 astore_1 astore_2 astore_3
iastore lastore fastore dastore aastore bastore castore sastore pop pop2 dup
dup_x1 dup_x2 dup2 dup2_x1 dup2_x2 swap iadd ladd fadd dadd isub lsub fsub dsub
imul lmul fmul dmul idiv ldiv fdiv ddiv irem lrem frem drem ineg lneg fneg dneg
ishl lshl ishr lshr iushr lushr iand land ior lor ixor lxor iinc i2l i2f i2d l2i
l2f l2d f2i f2l f2d d2i d2l d2f i2b i2c i2s lcmp fcmpl fcmpg dcmpl dcmpg ifeq
ifne iflt ifge ifgt ifle if_icmpeq if_icmpne if_icmplt if_icmpge if_icmpgt
if_icmple if_acmpeq if_acmpne goto jsr ret tableswitch lookupswitch ireturn
lreturn freturn dreturn areturn return getstatic putstatic getfield putfield
invokevirtual invokespecial invokestatic invokeinterface invokedynamic new
newarray anewarray arraylength athrow checkcast instanceof monitorenter
monitorexit wide multianewarray ifnull ifnonnull goto_w jsr_w`)

const (
	opBipush          = 0x10
	opSipush          = 0x11
	opLdc             = 0x12
	opLdcW            = 0x13
	opLdc2W           = 0x14
	opIinc            = 0x84
	opTableswitch     = 0xaa
	opLookupswitch    = 0xab
	opGetstatic       = 0xb2
	opPutfield        = 0xb5
	opInvokevirtual   = 0xb6
	opInvokeinterface = 0xb9
	opInvokedynamic   = 0xba
	opNew             = 0xbb
	opNewarray        = 0xbc
	opAnewarray       = 0xbd
	opCheckcast       = 0xc0
	opInstanceof      = 0xc1
	opWide            = 0xc4
	opMultianewarray  = 0xc5
)

// Instruction is one decoded opcode with its raw operand bytes.
type Instruction struct {
	PC       int
	Op       byte
	Operands []byte
}

// Name returns the mnemonic.
func (in Instruction) Name() string {
	if int(in.Op) < len(opcodeNames) {
		return opcodeNames[in.Op]
	}
	return fmt.Sprintf("0x%02x", in.Op)
}

// Index returns the first two operand bytes as a constant pool index.
func (in Instruction) Index() uint16 {
	if in.Op == opLdc && len(in.Operands) >= 1 {
		return uint16(in.Operands[0])
	}
	if len(in.Operands) < 2 {
		return 0
	}
	return binary.BigEndian.Uint16(in.Operands[:2])
}

func fixedOperands(op byte) int {
	switch {
	case op == opBipush, op == opLdc, op == opNewarray,
		op >= 0x15 && op <= 0x19, // xload
		op >= 0x36 && op <= 0x3a, // xstore
		op == 0xa9:               // ret
		return 1
	case op == opSipush, op == opLdcW, op == opLdc2W, op == opIinc,
		op >= 0x99 && op <= 0xa8,        // if*, goto, jsr
		op >= opGetstatic && op <= 0xb8, // field access, invokevirtual/special/static
		op == opNew, op == opAnewarray, op == opCheckcast, op == opInstanceof,
		op == 0xc6, op == 0xc7: // ifnull, ifnonnull
		return 2
	case op == opMultianewarray:
		return 3
	case op == opInvokeinterface, op == opInvokedynamic, op == 0xc8, op == 0xc9:
		return 4
	}
	return 0
}

// Decode splits method code into instructions.
func Decode(code []byte) ([]Instruction, error) {
	var out []Instruction
	pc := 0
	for pc < len(code) {
		op := code[pc]
		n := fixedOperands(op)
		switch op {
		case opTableswitch:
			pad := (4 - (pc+1)%4) % 4
			base := pc + 1 + pad
			if base+12 > len(code) {
				return out, fmt.Errorf("truncated tableswitch at %d", pc)
			}
			low := int32(binary.BigEndian.Uint32(code[base+4:]))
			high := int32(binary.BigEndian.Uint32(code[base+8:]))
			n = pad + 12 + int(high-low+1)*4
		case opLookupswitch:
			pad := (4 - (pc+1)%4) % 4
			base := pc + 1 + pad
			if base+8 > len(code) {
				return out, fmt.Errorf("truncated lookupswitch at %d", pc)
			}
			pairs := int32(binary.BigEndian.Uint32(code[base+4:]))
			n = pad + 8 + int(pairs)*8
		case opWide:
			if pc+1 < len(code) && code[pc+1] == opIinc {
				n = 5
			} else {
				n = 3
			}
		}
		end := pc + 1 + n
		if n < 0 || end > len(code) {
			return out, fmt.Errorf("truncated %s at %d", Instruction{Op: op}.Name(), pc)
		}
		out = append(out, Instruction{PC: pc, Op: op, Operands: code[pc+1 : end]})
		pc = end
	}
	return out, nil
}
