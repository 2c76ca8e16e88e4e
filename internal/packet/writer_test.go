package packet

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWriter_GShortRoundTrip(t *testing.T) {
	for _, v := range []int{0, 1, 127, 128, 16383, -16384, -5000} {
		w := NewWriter(2)
		w.WriteGShort(v)
		if err := w.Err(); err != nil {
			t.Fatalf("WriteGShort(%d) failed: %v", v, err)
		}

		got, err := NewReader(w.Bytes()).ReadGShort()
		if err != nil {
			t.Fatalf("ReadGShort failed: %v", err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestWriter_GInt3RoundTrip(t *testing.T) {
	for _, v := range []int{0, 1, 1<<14 + 3, 1<<21 - 1} {
		w := NewWriter(3)
		w.WriteGInt3(v)
		if err := w.Err(); err != nil {
			t.Fatalf("WriteGInt3(%d) failed: %v", v, err)
		}

		got, err := NewReader(w.Bytes()).ReadGInt3()
		if err != nil {
			t.Fatalf("ReadGInt3 failed: %v", err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestWriter_GInt5RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 1 << 28, 1<<35 - 1} {
		w := NewWriter(5)
		w.WriteGInt5(v)
		if err := w.Err(); err != nil {
			t.Fatalf("WriteGInt5(%d) failed: %v", v, err)
		}
		if w.Len() != 5 {
			t.Errorf("expected 5 bytes, got %d", w.Len())
		}

		got, err := NewReader(w.Bytes()).ReadGInt5()
		if err != nil {
			t.Fatalf("ReadGInt5 failed: %v", err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestWriter_LengthStringBounds(t *testing.T) {
	for _, n := range []int{0, 1, 223} {
		s := strings.Repeat("a", n)
		w := NewWriter(n + 1)
		w.WriteLengthString(s)
		if err := w.Err(); err != nil {
			t.Fatalf("WriteLengthString(len %d) failed: %v", n, err)
		}

		got, err := NewReader(w.Bytes()).ReadLengthString()
		if err != nil {
			t.Fatalf("ReadLengthString failed: %v", err)
		}
		if got != s {
			t.Errorf("round trip len %d: got len %d", n, len(got))
		}
	}

	w := NewWriter(256)
	w.WriteLengthString(strings.Repeat("a", 224))
	if !errors.Is(w.Err(), ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for 224 bytes, got %v", w.Err())
	}
}

func TestWriter_OutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
	}{
		{"byte above 223", func(w *Writer) { w.WriteGChar(224) }},
		{"gshort above max", func(w *Writer) { w.WriteGShort(16384) }},
		{"gshort below min", func(w *Writer) { w.WriteGShort(-16385) }},
		{"gint3 negative", func(w *Writer) { w.WriteGInt3(-1) }},
		{"gint3 overflow", func(w *Writer) { w.WriteGInt3(1 << 21) }},
		{"gint5 overflow", func(w *Writer) { w.WriteGInt5(1 << 35) }},
		{"short half above 223", func(w *Writer) { w.WriteShort(0xFF) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(8)
			tt.write(w)
			if !errors.Is(w.Err(), ErrOutOfRange) {
				t.Errorf("expected ErrOutOfRange, got %v", w.Err())
			}
		})
	}
}

func TestWriter_NegativeByteClamps(t *testing.T) {
	w := NewWriter(1)
	w.WriteGChar(-5)
	if err := w.Err(); err != nil {
		t.Fatalf("WriteGChar failed: %v", err)
	}
	if !bytes.Equal(w.Bytes(), []byte{32}) {
		t.Errorf("expected wire byte 32, got %v", w.Bytes())
	}
}

func TestWriter_FirstErrorSticks(t *testing.T) {
	w := NewWriter(8)
	w.WriteGChar(1)
	w.WriteGChar(500)
	w.WriteGChar(2)

	if w.Err() == nil {
		t.Fatal("expected an error")
	}
	if w.Len() != 1 {
		t.Errorf("writes after the error must be ignored, got %d bytes", w.Len())
	}

	w.Reset()
	if w.Err() != nil || w.Len() != 0 {
		t.Errorf("Reset must clear state, got err=%v len=%d", w.Err(), w.Len())
	}
}

func TestWriter_HeadImage(t *testing.T) {
	tests := []struct {
		name    string
		image   string
		wireLen int
	}{
		{"preset", "head0.png", 1},
		{"preset max", "head99.png", 1},
		{"preset out of range", "head100.png", 12},
		{"leading zero is a name", "head07.png", 11},
		{"custom", "custom.png", 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(16)
			w.WriteHeadImage(tt.image)
			if err := w.Err(); err != nil {
				t.Fatalf("WriteHeadImage failed: %v", err)
			}
			if w.Len() != tt.wireLen {
				t.Errorf("expected %d wire bytes, got %d", tt.wireLen, w.Len())
			}

			got, err := NewReader(w.Bytes()).ReadHeadImage()
			if err != nil {
				t.Fatalf("ReadHeadImage failed: %v", err)
			}
			if got != tt.image {
				t.Errorf("expected %q, got %q", tt.image, got)
			}
		})
	}
}

func TestWriter_PowerImage(t *testing.T) {
	tests := []struct {
		name  string
		power int
		image string
	}{
		{"power only zero", 0, ""},
		{"power only max", 4, ""},
		{"with image", 3, "sword1.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(16)
			w.WritePowerImage(tt.power, tt.image, 4)
			if err := w.Err(); err != nil {
				t.Fatalf("WritePowerImage failed: %v", err)
			}

			power, image, err := NewReader(w.Bytes()).ReadPowerImage(4)
			if err != nil {
				t.Fatalf("ReadPowerImage failed: %v", err)
			}
			if power != tt.power || image != tt.image {
				t.Errorf("expected (%d,%q), got (%d,%q)", tt.power, tt.image, power, image)
			}
		})
	}

	w := NewWriter(4)
	w.WritePowerImage(5, "", 4)
	if !errors.Is(w.Err(), ErrOutOfRange) {
		t.Errorf("bare power above threshold: expected ErrOutOfRange, got %v", w.Err())
	}
}

func TestWriter_Latin1(t *testing.T) {
	w := NewWriter(8)
	w.WriteFixedString("café")
	if err := w.Err(); err != nil {
		t.Fatalf("WriteFixedString failed: %v", err)
	}
	if !bytes.Equal(w.Bytes(), []byte{'c', 'a', 'f', 0xE9}) {
		t.Errorf("expected latin-1 bytes, got %x", w.Bytes())
	}

	w = NewWriter(8)
	w.WriteFixedString("€")
	if w.Err() == nil {
		t.Error("expected error for a rune outside latin-1")
	}
}

func TestWriterPool(t *testing.T) {
	w := Get()
	w.WriteGChar(300)
	w.Put()

	w = Get()
	defer w.Put()
	if w.Err() != nil || w.Len() != 0 {
		t.Errorf("pooled writer must be reset, got err=%v len=%d", w.Err(), w.Len())
	}
}
