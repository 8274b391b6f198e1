package main

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestColorSpaceByte_KnownValue(t *testing.T) {
	// 0b010_00111: n=2, b=8, c = (2+9) * 2^(8-4) = 176.
	n, b := parseColorSpace(0b01000111)
	if n != 2 || b != 8 {
		t.Fatalf("parseColorSpace = (%d, %d), want (2, 8)", n, b)
	}
	if c := paletteLen(n, b); c != 176 {
		t.Fatalf("paletteLen(2, 8) = %d, want 176", c)
	}
	if got := colorSpaceByte(2, 8); got != 0b01000111 {
		t.Fatalf("colorSpaceByte(2, 8) = %#08b, want 0b01000111", got)
	}
}

func TestColorSpaceByte_RoundTrip(t *testing.T) {
	for n := 0; n <= 7; n++ {
		for b := 1; b <= 32; b++ {
			gotN, gotB := parseColorSpace(colorSpaceByte(n, b))
			if gotN != n || gotB != b {
				t.Fatalf("(%d, %d) round-tripped to (%d, %d)", n, b, gotN, gotB)
			}
		}
	}
}

// An encoder-chosen geometry must cover the requested color count and be a
// fixed point: re-deriving parameters from its own palette length yields the
// same header byte.
func TestParamsForColors_Stable(t *testing.T) {
	for count := 1; count <= 4096; count++ {
		n, b := paramsForColors(count)
		if err := validateParams(n, b); err != nil {
			t.Fatalf("paramsForColors(%d) = invalid (%d, %d): %v", count, n, b, err)
		}
		c := paletteLen(n, b)
		if c < count {
			t.Fatalf("paramsForColors(%d) = (%d, %d): c=%d does not cover", count, n, b, c)
		}
		n2, b2 := paramsForColors(c)
		if n2 != n || b2 != b {
			t.Fatalf("paramsForColors(%d)=(%d,%d) but paramsForColors(c=%d)=(%d,%d)",
				count, n, b, c, n2, b2)
		}
	}
}

func TestValidateParams(t *testing.T) {
	for _, tc := range []struct{ n, b int }{
		{0, 0}, {0, 33}, {-1, 8}, {8, 8}, {0, -1},
	} {
		if err := validateParams(tc.n, tc.b); !errors.Is(err, ErrBadParams) {
			t.Errorf("validateParams(%d, %d) = %v, want ErrBadParams", tc.n, tc.b, err)
		}
	}
	if err := validateParams(7, 32); err != nil {
		t.Errorf("validateParams(7, 32) = %v, want nil", err)
	}
}

func TestGeneratePalette_OrderAndDeterminism(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	red := color.RGBA{200, 0, 0, 255}
	blue := color.RGBA{0, 0, 200, 255}
	for i := 0; i < 16; i++ {
		if i < 12 {
			img.SetRGBA(i%4, i/4, red)
		} else {
			img.SetRGBA(i%4, i/4, blue)
		}
	}

	pal := generatePalette(img, 256)
	want := Palette{red, blue}
	if diff := cmp.Diff(want, pal); diff != "" {
		t.Fatalf("palette mismatch (-want +got):\n%s", diff)
	}

	// Bit-reproducible across runs.
	if diff := cmp.Diff(pal, generatePalette(img, 256)); diff != "" {
		t.Fatalf("palette not deterministic (-first +second):\n%s", diff)
	}
}

func TestGeneratePalette_MergesNearColors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{100, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{100, 0, 0, 255})
	img.SetRGBA(0, 1, color.RGBA{100, 0, 0, 255})
	img.SetRGBA(1, 1, color.RGBA{104, 0, 0, 255})

	// Distance 16 < 256: one cluster, count-weighted average 101.
	pal := generatePalette(img, 256)
	want := Palette{{R: 101, A: 255}}
	if diff := cmp.Diff(want, pal); diff != "" {
		t.Fatalf("palette mismatch (-want +got):\n%s", diff)
	}

	// A tight threshold keeps them apart.
	pal = generatePalette(img, 16)
	want = Palette{{R: 100, A: 255}, {R: 104, A: 255}}
	if diff := cmp.Diff(want, pal); diff != "" {
		t.Fatalf("palette mismatch (-want +got):\n%s", diff)
	}
}

func TestQuantizeToPalette_NearestWithTieBreak(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{10, 0, 0, 255})

	pal := Palette{
		{R: 0, A: 255},
		{R: 20, A: 255}, // pixel at x=1 is equidistant; lower index wins
		{R: 200, A: 255},
	}
	got := quantizeToPalette(img, pal)
	if diff := cmp.Diff([]uint32{0, 0}, got); diff != "" {
		t.Fatalf("index raster mismatch (-want +got):\n%s", diff)
	}
}
