package code

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	tests := []struct {
		op       Opcode
		operands []int
		want     []byte
	}{
		{PushConst, []int{65534}, []byte{byte(PushConst), 255, 254}},
		{Resume, []int{2}, []byte{byte(Resume), 2}},
		{Pop, []int{}, []byte{byte(Pop)}},
	}

	for _, tt := range tests {
		got := Make(tt.op, tt.operands...)
		assert.Equal(t, tt.want, got)
	}
}

func TestReadOperandsRoundTrip(t *testing.T) {
	tests := []struct {
		op        Opcode
		operands  []int
		bytesRead int
	}{
		{PushConst, []int{65535}, 2},
		{Resume, []int{3}, 1},
		{Load, []int{258}, 2},
	}

	for _, tt := range tests {
		instruction := Make(tt.op, tt.operands...)

		def, err := Lookup(byte(tt.op))
		require.NoError(t, err)

		operands, n := ReadOperands(def, instruction[1:])
		assert.Equal(t, tt.bytesRead, n)
		assert.Equal(t, tt.operands, operands)
	}
}

func TestInstructionsString(t *testing.T) {
	instructions := []Instructions{
		Make(Add),
		Make(PushConst, 2),
		Make(PushConst, 65535),
		Make(Resume, 1),
	}

	concatted := Instructions{}
	for _, ins := range instructions {
		concatted = append(concatted, ins...)
	}

	want := `0000 ADD
0001 PUSH_CONST 2
0004 PUSH_CONST 65535
0007 RESUME 1
`

	assert.Equal(t, want, concatted.String())
}

func TestLookupUndefinedOpcode(t *testing.T) {
	_, err := Lookup(255)
	require.Error(t, err)
}
