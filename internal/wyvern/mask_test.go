package wyvern

import (
	"bytes"
	"errors"
	"math/bits"
	"math/rand/v2"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func maskWith(n int, runs ...[2]int) []byte {
	m := make([]byte, n)
	for _, r := range runs {
		for i := r[0]; i < r[1]; i++ {
			m[i] = Wildcard
		}
	}
	return m
}

func onesCount(b []byte) int {
	n := 0
	for _, x := range b {
		n += bits.OnesCount8(x)
	}
	return n
}

func TestShiftMask(t *testing.T) {
	t.Run("single word", func(t *testing.T) {
		got, err := ShiftMask(maskWith(100, [2]int{36, 68}))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if want := maskWith(100, [2]int{4, 36}); !bytes.Equal(got, want) {
			t.Fatalf("got %x\nwant %x", got, want)
		}
	})

	t.Run("run spanning two words", func(t *testing.T) {
		got, err := ShiftMask(maskWith(132, [2]int{68, 132}))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if want := maskWith(132, [2]int{36, 100}); !bytes.Equal(got, want) {
			t.Fatalf("got %x\nwant %x", got, want)
		}
	})

	t.Run("marker in first word stays", func(t *testing.T) {
		in := maskWith(40, [2]int{0, 1})
		got, err := ShiftMask(in)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !bytes.Equal(got, in) {
			t.Fatalf("got %x", got)
		}
	})

	t.Run("too short", func(t *testing.T) {
		for _, n := range []int{0, 1, 32} {
			_, err := ShiftMask(make([]byte, n))
			if !errors.Is(err, ErrMaskTooShort) || !errors.Is(err, ErrInvalidMask) {
				t.Fatalf("len=%d: expected ErrMaskTooShort, got %v", n, err)
			}
		}
	})

	t.Run("preserves length and set bits", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		for iter := 0; iter < 500; iter++ {
			n := 33 + rng.IntN(300)
			in := make([]byte, n)
			for i := range in {
				switch rng.IntN(4) {
				case 0:
					in[i] = Wildcard
				case 1:
					in[i] = byte(rng.Uint32())
				}
			}
			orig := append([]byte(nil), in...)

			got, err := ShiftMask(in)
			if err != nil {
				t.Fatalf("iter %d: %v", iter, err)
			}
			if len(got) != n {
				t.Fatalf("iter %d: len %d want %d", iter, len(got), n)
			}
			if onesCount(got) != onesCount(in) {
				t.Fatalf("iter %d: set bits %d want %d", iter, onesCount(got), onesCount(in))
			}
			if !bytes.Equal(in, orig) {
				t.Fatalf("iter %d: input mutated", iter)
			}
		}
	})
}

func TestCensorCalldata(t *testing.T) {
	data := bytes.Repeat([]byte{0x11}, 40)
	mask := maskWith(40, [2]int{4, 8}, [2]int{39, 40})

	got, err := CensorCalldata(data, mask)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for i := range got {
		want := byte(0x11)
		if mask[i] == Wildcard {
			want = 0
		}
		if got[i] != want {
			t.Fatalf("byte %d = %x want %x", i, got[i], want)
		}
	}
	if data[4] != 0x11 {
		t.Fatalf("input mutated")
	}

	if _, err := CensorCalldata(data, mask[:39]); !errors.Is(err, ErrMaskLengthMismatch) {
		t.Fatalf("expected ErrMaskLengthMismatch, got %v", err)
	}
}

func TestInsertBuyerAddress(t *testing.T) {
	caller := common.HexToAddress("0x3333333333333333333333333333333333333333")

	t.Run("first window", func(t *testing.T) {
		data := bytes.Repeat([]byte{0x11}, 100)
		mask := maskWith(100, [2]int{36, 68})
		got, err := InsertBuyerAddress(data, mask, caller)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !bytes.Equal(got[36:68], common.LeftPadBytes(caller.Bytes(), 32)) {
			t.Fatalf("window = %x", got[36:68])
		}
		if !bytes.Equal(got[:36], data[:36]) || !bytes.Equal(got[68:], data[68:]) {
			t.Fatalf("bytes outside window changed")
		}
	})

	t.Run("only first of two windows", func(t *testing.T) {
		data := make([]byte, 132)
		mask := maskWith(132, [2]int{36, 68}, [2]int{100, 132})
		got, err := InsertBuyerAddress(data, mask, caller)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !bytes.Equal(got[100:], make([]byte, 32)) {
			t.Fatalf("second window written: %x", got[100:])
		}
		if WildcardRuns(mask) != 2 {
			t.Fatalf("runs = %d", WildcardRuns(mask))
		}
	})

	t.Run("out of bounds", func(t *testing.T) {
		_, err := InsertBuyerAddress(make([]byte, 40), maskWith(40, [2]int{20, 40}), caller)
		if !errors.Is(err, ErrMaskOutOfBounds) {
			t.Fatalf("expected ErrMaskOutOfBounds, got %v", err)
		}
	})

	t.Run("no window", func(t *testing.T) {
		_, err := InsertBuyerAddress(make([]byte, 40), make([]byte, 40), caller)
		if !errors.Is(err, ErrNoWildcard) {
			t.Fatalf("expected ErrNoWildcard, got %v", err)
		}
		// A wildcard at index 0 has no preceding byte and cannot start a window.
		_, err = InsertBuyerAddress(make([]byte, 40), maskWith(40, [2]int{0, 1}), caller)
		if !errors.Is(err, ErrNoWildcard) {
			t.Fatalf("expected ErrNoWildcard, got %v", err)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := InsertBuyerAddress(make([]byte, 40), make([]byte, 41), caller)
		if !errors.Is(err, ErrMaskLengthMismatch) {
			t.Fatalf("expected ErrMaskLengthMismatch, got %v", err)
		}
	})
}

func TestDerivedCalldataReplacesOneWord(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	caller := common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")

	for iter := 0; iter < 200; iter++ {
		words := 1 + rng.IntN(6)
		n := 4 + 32*words
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(rng.Uint32())
		}
		k := rng.IntN(words)
		start := 4 + 32*k
		mask := maskWith(n, [2]int{start, start + 32})

		derive := func(in []byte) []byte {
			censored, err := CensorCalldata(in, mask)
			if err != nil {
				t.Fatalf("iter %d censor: %v", iter, err)
			}
			out, err := InsertBuyerAddress(censored, mask, caller)
			if err != nil {
				t.Fatalf("iter %d insert: %v", iter, err)
			}
			return out
		}

		once := derive(data)
		if !bytes.Equal(once[:start], data[:start]) || !bytes.Equal(once[start+32:], data[start+32:]) {
			t.Fatalf("iter %d: bytes outside word %d changed", iter, k)
		}
		if !bytes.Equal(once[start:start+32], common.LeftPadBytes(caller.Bytes(), 32)) {
			t.Fatalf("iter %d: word %d = %x", iter, k, once[start:start+32])
		}
		if twice := derive(once); !bytes.Equal(twice, once) {
			t.Fatalf("iter %d: not idempotent", iter)
		}
	}
}
