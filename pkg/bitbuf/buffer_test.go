package bitbuf

import (
	"bytes"
	"testing"
)

func TestBuffer_PushPullRoundTrip(t *testing.T) {
	b := New()
	b.PushU8(0xAB)
	b.PushU16(0x1234)
	b.PushU24(0x00BEEF)
	b.PushU32(0xDEADBEEF)
	b.PushBytes([]byte{0x01, 0x02, 0x03})

	b.Rewind()

	u8, err := b.PullU8()
	if err != nil || u8 != 0xAB {
		t.Fatalf("PullU8 = %x, %v", u8, err)
	}
	u16, err := b.PullU16()
	if err != nil || u16 != 0x1234 {
		t.Fatalf("PullU16 = %x, %v", u16, err)
	}
	u24, err := b.PullU24()
	if err != nil || u24 != 0x00BEEF {
		t.Fatalf("PullU24 = %x, %v", u24, err)
	}
	u32, err := b.PullU32()
	if err != nil || u32 != 0xDEADBEEF {
		t.Fatalf("PullU32 = %x, %v", u32, err)
	}
	rest, err := b.PullBytes(3)
	if err != nil || !bytes.Equal(rest, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("PullBytes = %x, %v", rest, err)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBuffer_UnderflowErrors(t *testing.T) {
	b := NewReader([]byte{0x01, 0x02})

	if _, err := b.PullU24(); err != ErrUnderflow {
		t.Errorf("PullU24 on 2 bytes: got %v, want ErrUnderflow", err)
	}

	b.Rewind()
	if _, err := b.PullBytes(5); err != ErrUnderflow {
		t.Errorf("PullBytes(5) on 2 bytes: got %v, want ErrUnderflow", err)
	}
}

func TestBuffer_PeekDoesNotConsume(t *testing.T) {
	b := NewReader([]byte{0xAA, 0xBB, 0xCC})

	v, err := b.Peek(1)
	if err != nil || v != 0xBB {
		t.Fatalf("Peek(1) = %x, %v", v, err)
	}
	if b.Len() != 3 {
		t.Errorf("Peek mutated cursor, Len() = %d, want 3", b.Len())
	}
}

func TestBuffer_PullRemaining(t *testing.T) {
	b := NewReader([]byte{0x01, 0x02, 0x03, 0x04})
	if _, err := b.PullU8(); err != nil {
		t.Fatal(err)
	}

	rest := b.PullRemaining()
	if !bytes.Equal(rest, []byte{0x02, 0x03, 0x04}) {
		t.Errorf("PullRemaining = %x", rest)
	}
	if b.Len() != 0 {
		t.Errorf("Len() after PullRemaining = %d, want 0", b.Len())
	}
}

func TestBuffer_Clear(t *testing.T) {
	b := New()
	b.PushBytes([]byte{0x01, 0x02, 0x03})
	b.Clear()
	if b.Len() != 0 || len(b.Bytes()) != 0 {
		t.Errorf("Clear did not empty buffer")
	}
}
