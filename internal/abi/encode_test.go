package abi

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func word(v uint64) []byte {
	w := uintWord(v)
	return w[:]
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func gethPack(t *testing.T, types []string, vals ...any) []byte {
	t.Helper()
	args := make(gethabi.Arguments, 0, len(types))
	for _, s := range types {
		ty, err := gethabi.NewType(s, "", nil)
		if err != nil {
			t.Fatalf("geth type %q: %v", s, err)
		}
		args = append(args, gethabi.Argument{Type: ty})
	}
	out, err := args.Pack(vals...)
	if err != nil {
		t.Fatalf("geth pack: %v", err)
	}
	return out
}

func TestEncodeCallAdopt(t *testing.T) {
	got, err := EncodeCall("adopt(uint256)", Arg{Type: UintType(256), Value: big.NewInt(2)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := mustHex(t, "8588b2c5"+strings.Repeat("00", 31)+"02")
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x want %x", got, want)
	}
}

func TestFunctionIdentifierAtomicMatch(t *testing.T) {
	sig := "atomicMatch_(address[14],uint256[18],uint8[8],bytes,bytes,bytes,bytes,bytes,bytes,uint8[2],bytes32[5])"
	got := FunctionIdentifier(sig)
	if got != [4]byte{0xab, 0x83, 0x4b, 0xab} {
		t.Fatalf("got %x", got)
	}
}

func TestSelector(t *testing.T) {
	t.Run("hex passthrough", func(t *testing.T) {
		got, err := Selector("0xdeadbeef")
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !bytes.Equal(got, []byte{0xde, 0xad, 0xbe, 0xef}) {
			t.Fatalf("got %x", got)
		}
	})

	t.Run("bad hex", func(t *testing.T) {
		for _, s := range []string{"0xzz", "0x", "0xabc"} {
			if _, err := Selector(s); !errors.Is(err, ErrUnsupported) {
				t.Fatalf("%q: expected ErrUnsupported, got %v", s, err)
			}
		}
	})

	t.Run("cache returns copies", func(t *testing.T) {
		var c SelectorCache
		a, err := c.Get("transfer(address,uint256)")
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		a[0] ^= 0xff
		b, _ := c.Get("transfer(address,uint256)")
		if !bytes.Equal(b, []byte{0xa9, 0x05, 0x9c, 0xbb}) {
			t.Fatalf("cached selector mutated: %x", b)
		}
	})
}

func TestEncodeArgsMatchesGeth(t *testing.T) {
	addr := common.HexToAddress("0x7be8076f4ea4a4ad08075c2508e481d6c946d12b")
	maxU := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	var r [32]byte
	for i := range r {
		r[i] = byte(i + 1)
	}

	tests := []struct {
		name  string
		types []string
		vals  []any
	}{
		{"uint256", []string{"uint256"}, []any{big.NewInt(1234567)}},
		{"max uint256", []string{"uint256"}, []any{maxU}},
		{"negative int256", []string{"int256"}, []any{big.NewInt(-5)}},
		{"int8", []string{"int8"}, []any{int8(-1)}},
		{"address bool", []string{"address", "bool"}, []any{addr, true}},
		{"bytes32", []string{"bytes32"}, []any{r}},
		{"bytes", []string{"bytes"}, []any{bytes.Repeat([]byte{0xaa}, 33)}},
		{"empty bytes", []string{"bytes"}, []any{[]byte{}}},
		{"string", []string{"string"}, []any{"hello wyvern"}},
		{"static fixed array", []string{"uint8[3]"}, []any{[3]uint8{1, 2, 3}}},
		{"dynamic array", []string{"uint256[]"}, []any{[]*big.Int{big.NewInt(1), big.NewInt(2)}}},
		{"fixed array of bytes", []string{"bytes[2]"}, []any{[2][]byte{{0x01}, bytes.Repeat([]byte{0x02}, 40)}}},
		{"nested dynamic", []string{"uint256[][]"}, []any{[][]*big.Int{{big.NewInt(1)}, {big.NewInt(2), big.NewInt(3)}}}},
		{"string array", []string{"string[]"}, []any{[]string{"a", strings.Repeat("b", 70)}}},
		{
			"mixed",
			[]string{"address[2]", "bytes", "uint8[2]", "bytes", "bytes32[2]"},
			[]any{[2]common.Address{addr, {}}, []byte{1, 2, 3}, [2]uint8{0, 27}, []byte{}, [2][32]byte{r, {}}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := make([]Arg, 0, len(tc.types))
			for i, s := range tc.types {
				ty, err := ParseType(s)
				if err != nil {
					t.Fatalf("parse %q: %v", s, err)
				}
				args = append(args, Arg{Type: ty, Value: tc.vals[i]})
			}
			got, err := EncodeArgs(args...)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			want := gethPack(t, tc.types, tc.vals...)
			if !bytes.Equal(got, want) {
				t.Fatalf("mismatch\n got %x\nwant %x", got, want)
			}
		})
	}
}

func TestEncodeDynamicTuple(t *testing.T) {
	got, err := EncodeArgs(Arg{
		Type:  TupleType(UintType(256), BytesType()),
		Value: []any{big.NewInt(7), []byte("abc")},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := concat(
		word(0x20),
		word(7),
		word(0x40),
		word(3),
		common.RightPadBytes([]byte("abc"), 32),
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x\nwant %x", got, want)
	}
}

func TestEncodeStaticTupleInline(t *testing.T) {
	got, err := EncodeArgs(
		Arg{Type: TupleType(UintType(8), BoolType()), Value: []any{uint8(9), true}},
		Arg{Type: BytesType(), Value: []byte{0xff}},
	)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := concat(
		word(9),
		word(1),
		word(3*32),
		word(1),
		common.RightPadBytes([]byte{0xff}, 32),
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x\nwant %x", got, want)
	}
}

func TestEncodeLengths(t *testing.T) {
	t.Run("bytes", func(t *testing.T) {
		for n := 0; n <= 100; n++ {
			m, err := toMediate(BytesType(), make([]byte, n), "x")
			if err != nil {
				t.Fatalf("n=%d: %v", n, err)
			}
			if m.headLen() != 1 {
				t.Fatalf("n=%d: head len %d", n, m.headLen())
			}
			if want := 1 + (n+31)/32; m.tailLen() != want {
				t.Fatalf("n=%d: tail len %d want %d", n, m.tailLen(), want)
			}
			s, _ := toMediate(StringType(), strings.Repeat("x", n), "x")
			if s.tailLen() != m.tailLen() {
				t.Fatalf("n=%d: string tail %d bytes tail %d", n, s.tailLen(), m.tailLen())
			}
		}
	})

	t.Run("array", func(t *testing.T) {
		for n := 0; n <= 20; n++ {
			vals := make([]uint64, n)
			m, err := toMediate(ArrayType(UintType(64)), vals, "x")
			if err != nil {
				t.Fatalf("n=%d: %v", n, err)
			}
			if m.headLen() != 1 || m.tailLen() != 1+n {
				t.Fatalf("n=%d: head %d tail %d", n, m.headLen(), m.tailLen())
			}
			tail := m.tail()
			if tail[0] != uintWord(uint64(n)) {
				t.Fatalf("n=%d: length word %x", n, tail[0])
			}
		}
	})

	t.Run("static fixed array", func(t *testing.T) {
		m, err := toMediate(FixedArrayType(AddressType(), 14), make([]common.Address, 14), "x")
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if m.kind != mediateRaw || m.headLen() != 14 || m.tailLen() != 0 {
			t.Fatalf("kind %d head %d tail %d", m.kind, m.headLen(), m.tailLen())
		}
	})
}

func TestEncodeFixedBytesDefaultWidth(t *testing.T) {
	v := bytes.Repeat([]byte{0xab}, 32)
	got, err := EncodeArgs(Arg{Type: FixedBytesType(0), Value: v})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want, err := EncodeArgs(Arg{Type: FixedBytesType(32), Value: v})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !bytes.Equal(got, want) || len(got) != 32 {
		t.Fatalf("got %x want %x", got, want)
	}
	if s := FixedBytesType(0).String(); s != "bytes32" {
		t.Fatalf("String() = %q", s)
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name string
		args []Arg
		want error
		path string
	}{
		{"address from string", []Arg{{Type: AddressType(), Value: "0x01"}}, ErrTypeMismatch, "args[0]"},
		{"fixed array length", []Arg{{Type: FixedArrayType(UintType(8), 2), Value: []uint8{1}}}, ErrTypeMismatch, "args[0]"},
		{"uint8 overflow", []Arg{{Type: UintType(8), Value: 256}}, ErrTypeMismatch, "args[0]"},
		{"negative uint", []Arg{{Type: UintType(256), Value: big.NewInt(-1)}}, ErrTypeMismatch, "args[0]"},
		{"int8 overflow", []Arg{{Type: IntType(8), Value: 128}}, ErrTypeMismatch, "args[0]"},
		{"bytes32 short", []Arg{{Type: FixedBytesType(32), Value: make([]byte, 20)}}, ErrTypeMismatch, "args[0]"},
		{"default width is 32", []Arg{{Type: FixedBytesType(0), Value: make([]byte, 40)}}, ErrTypeMismatch, "args[0]"},
		{"bytes33", []Arg{{Type: FixedBytesType(33), Value: make([]byte, 33)}}, ErrUnsupported, "args[0]"},
		{"nested element", []Arg{
			{Type: BoolType(), Value: true},
			{Type: ArrayType(AddressType()), Value: []any{common.Address{}, common.Address{}, 5}},
		}, ErrTypeMismatch, "args[1][2]"},
		{"tuple arity", []Arg{{Type: TupleType(BoolType()), Value: []any{true, false}}}, ErrTypeMismatch, "args[0]"},
		{"invalid kind", []Arg{{Type: Token{}, Value: 1}}, ErrUnsupported, "args[0]"},
		{"odd int width", []Arg{{Type: UintType(7), Value: 1}}, ErrUnsupported, "args[0]"},
		{"array without elem", []Arg{{Type: Token{Kind: KindArray}, Value: []any{}}}, ErrUnsupported, "args[0]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := EncodeArgs(tc.args...)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if out != nil {
				t.Fatalf("expected no output, got %x", out)
			}
			var encErr *EncodingError
			if !errors.As(err, &encErr) {
				t.Fatalf("expected *EncodingError, got %T", err)
			}
			if encErr.Path != tc.path {
				t.Fatalf("path = %q, want %q", encErr.Path, tc.path)
			}
		})
	}
}

func TestEncodeCallConcurrent(t *testing.T) {
	want, err := EncodeCall("f(uint256,bytes)", Arg{Type: UintType(256), Value: 1}, Arg{Type: BytesType(), Value: []byte("x")})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := EncodeCall("f(uint256,bytes)", Arg{Type: UintType(256), Value: 1}, Arg{Type: BytesType(), Value: []byte("x")})
			if err != nil || !bytes.Equal(got, want) {
				errs <- hex.EncodeToString(got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for s := range errs {
		t.Fatalf("concurrent encode diverged: %s", s)
	}
}
