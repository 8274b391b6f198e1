package main

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestBitWriter_KnownBytes(t *testing.T) {
	buf := &bytes.Buffer{}
	bw := NewBitWriter(buf)

	if err := bw.WriteBit(true); err != nil {
		t.Fatalf("WriteBit: %v", err)
	}
	if err := bw.WriteBits(0b01, 2); err != nil {
		t.Fatalf("WriteBits: %v", err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// 1, 01, then zero padding -> 0b10100000.
	if got, want := buf.Bytes(), []byte{0xA0}; !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestBitWriter_CrossByteChunks(t *testing.T) {
	buf := &bytes.Buffer{}
	bw := NewBitWriter(buf)

	if err := bw.WriteBits(0b101, 3); err != nil {
		t.Fatalf("WriteBits: %v", err)
	}
	if err := bw.WriteBits(0b1001101, 7); err != nil {
		t.Fatalf("WriteBits: %v", err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got, want := buf.Bytes(), []byte{0b10110011, 0b01000000}; !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestBitReader_CrossByteChunks(t *testing.T) {
	br := NewBitReader([]byte{0b10110011, 0b01000000})

	v, err := br.ReadBits(3)
	if err != nil {
		t.Fatalf("ReadBits(3): %v", err)
	}
	if v != 0b101 {
		t.Fatalf("ReadBits(3) = %b, want 101", v)
	}
	v, err = br.ReadBits(7)
	if err != nil {
		t.Fatalf("ReadBits(7): %v", err)
	}
	if v != 0b1001101 {
		t.Fatalf("ReadBits(7) = %b, want 1001101", v)
	}
}

func TestBitRoundTrip_MixedWidths(t *testing.T) {
	type field struct {
		v uint32
		n uint8
	}
	fields := []field{
		{1, 1}, {0, 1}, {0b1011, 4}, {0xFF, 8}, {0x1234, 13},
		{0xDEADBEEF, 32}, {0, 32}, {0x7FFFFFFF, 31}, {5, 3},
	}

	buf := &bytes.Buffer{}
	bw := NewBitWriter(buf)
	for _, f := range fields {
		if err := bw.WriteBits(f.v&(1<<f.n-1), f.n); err != nil {
			t.Fatalf("WriteBits(%x, %d): %v", f.v, f.n, err)
		}
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	br := NewBitReader(buf.Bytes())
	for _, f := range fields {
		got, err := br.ReadBits(f.n)
		if err != nil {
			t.Fatalf("ReadBits(%d): %v", f.n, err)
		}
		if want := f.v & (1<<f.n - 1); got != want {
			t.Fatalf("ReadBits(%d) = %x, want %x", f.n, got, want)
		}
	}
}

func TestBitReader_UnexpectedEnd(t *testing.T) {
	br := NewBitReader([]byte{0xFF})
	if _, err := br.ReadBits(9); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("ReadBits(9) on 1 byte: err = %v, want io.ErrUnexpectedEOF", err)
	}

	br = NewBitReader(nil)
	if _, err := br.ReadBit(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("ReadBit on empty data: err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestPow2Helpers(t *testing.T) {
	for _, tc := range []struct {
		n    int
		pow2 bool
		next int
	}{
		{1, true, 1}, {2, true, 2}, {3, false, 4}, {4, true, 4},
		{5, false, 8}, {64, true, 64}, {65, false, 128}, {16384, true, 16384},
	} {
		if got := isPow2(tc.n); got != tc.pow2 {
			t.Errorf("isPow2(%d) = %v, want %v", tc.n, got, tc.pow2)
		}
		if got := nextPow2(tc.n); got != tc.next {
			t.Errorf("nextPow2(%d) = %d, want %d", tc.n, got, tc.next)
		}
	}
	if got := ilog2(1024); got != 10 {
		t.Errorf("ilog2(1024) = %d, want 10", got)
	}
}
