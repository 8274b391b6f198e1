package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

func usage() {
	fmt.Fprint(os.Stderr, `Encode: qti [flags] <input-image> [output.qti]
Decode: qti <input.qti> [output.png]
Flags:
`)
	flag.PrintDefaults()
}

func main() {
	var (
		dedup       = flag.Uint("d", 256, "squared color distance for palette deduplication")
		sensitivity = flag.Int("s", 63, "noise sensitivity as a fraction s/(s+1)")
		blur        = flag.Float64("b", 1, "precompression gaussian blur sigma (0 disables)")
		trim        = flag.Int("t", 0, "number of leaf-trimming passes")
		gradient    = flag.Bool("g", true, "gradient mode (corner-sampled blendable leaves)")
		resize      = flag.Bool("r", false, "resize non-square or non-power-of-two input instead of rejecting it")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)
	ext := strings.ToLower(filepath.Ext(inputPath))
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))

	// If input is .qti → decode to PNG.
	if ext == ".qti" {
		outPath := base + ".png"
		if flag.NArg() == 2 {
			outPath = flag.Arg(1)
		}
		if err := decodeFile(inputPath, outPath); err != nil {
			fmt.Fprintln(os.Stderr, "decode error:", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Decoded %s -> %s\n", inputPath, outPath)
		return
	}

	outPath := base + ".qti"
	if flag.NArg() == 2 {
		outPath = flag.Arg(1)
	}
	opts := DefaultOptions()
	opts.DedupDist = uint32(*dedup)
	if *sensitivity >= 0 {
		opts.Threshold = 16384 / (*sensitivity + 1)
	}
	opts.TrimPasses = *trim
	opts.Gradient = *gradient

	if err := encodeFile(inputPath, outPath, opts, *blur, *resize); err != nil {
		fmt.Fprintln(os.Stderr, "encode error:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Encoded %s -> %s\n", inputPath, outPath)
}

func encodeFile(inPath, outPath string, opts Options, blur float64, resize bool) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return err
	}

	if resize {
		img = squareUp(img)
	}
	if blur > 0 {
		img = imaging.Blur(img, blur)
	}

	enc, err := Encode(img, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d bytes (%dx%d)\n", len(enc), img.Bounds().Dx(), img.Bounds().Dy())

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.Write(enc); err != nil {
		return err
	}
	return nil
}

func decodeFile(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	dec, err := Decode(data)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return png.Encode(out, dec)
}

// squareUp rescales an image whose geometry the encoder would reject onto
// the smallest acceptable power-of-two square.
func squareUp(img image.Image) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == h && isPow2(w) && w <= maxImageSide {
		return img
	}
	side := nextPow2(max(w, h))
	if side > maxImageSide {
		side = maxImageSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
