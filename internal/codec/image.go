// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/gen2brain/avif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/pkg/types"
)

// imageFormat describes one raster format.
type imageFormat struct {
	mime string
	exts []string
}

var imageFormats = map[string]imageFormat{
	"png":  {mime: "image/png", exts: []string{".png"}},
	"jpeg": {mime: "image/jpeg", exts: []string{".jpg", ".jpeg"}},
	"gif":  {mime: "image/gif", exts: []string{".gif"}},
	"bmp":  {mime: "image/bmp", exts: []string{".bmp"}},
	"tiff": {mime: "image/tiff", exts: []string{".tiff", ".tif"}},
	"webp": {mime: "image/webp", exts: []string{".webp"}},
	"ico":  {mime: "image/x-icon", exts: []string{".ico"}},
	"avif": {mime: "image/avif", exts: []string{".avif"}},
}

// avifSpeed trades encoder speed for size; 0 is slowest, 10 fastest.
const avifSpeed = 8

// ImageExtensions lists every extension the image adapter accepts.
func ImageExtensions() []string {
	var exts []string
	for _, name := range []string{"png", "jpeg", "gif", "bmp", "webp", "tiff", "ico", "avif"} {
		exts = append(exts, imageFormats[name].exts...)
	}
	return exts
}

// ImageFormatForPath returns the format implied by the extension of path, or
// "" when the extension is not a supported image extension.
func ImageFormatForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for name, f := range imageFormats {
		for _, e := range f.exts {
			if e == ext {
				return name
			}
		}
	}
	return ""
}

// ImageExtension returns the canonical extension for a format name such as
// "PNG" or "jpeg", or "" when the format is unknown.
func ImageExtension(format string) string {
	f, ok := imageFormats[strings.ToLower(format)]
	if !ok {
		if strings.EqualFold(format, "jpg") {
			return ".jpg"
		}
		return ""
	}
	return f.exts[0]
}

// ImageAdapter converts raster images to and from Base64.
type ImageAdapter struct{}

// NewImageAdapter returns the image codec adapter.
func NewImageAdapter() *ImageAdapter { return &ImageAdapter{} }

func (a *ImageAdapter) Domain() types.Domain { return types.DomainImage }

func (a *ImageAdapter) Extensions() []string { return ImageExtensions() }

// Encode reads an image and returns it as Base64. Without Resize the bytes are
// passed through unchanged; with Resize the image is scaled and re-encoded in
// its own format.
func (a *ImageAdapter) Encode(ctx context.Context, path string, opts EncodeOptions) (types.TextArtifact, error) {
	if err := ctx.Err(); err != nil {
		return types.TextArtifact{}, err
	}
	data, _, err := fsutil.ReadFile(path)
	if err != nil {
		return types.TextArtifact{}, err
	}

	name := filepath.Base(path)
	format, info, err := detectImage(data)
	if err != nil {
		return types.TextArtifact{}, fmt.Errorf("%s: file is not a valid image: %w", name, err)
	}

	out := data
	if opts.Resize != nil {
		img, err := decodePixels(data, format)
		if err != nil {
			return types.TextArtifact{}, fmt.Errorf("resizing %s: %w", name, err)
		}
		img = fit(img, *opts.Resize)

		out, err = encodeImage(img, format, quality(opts.Quality), opts.Optimize)
		if err != nil {
			return types.TextArtifact{}, fmt.Errorf("re-encoding %s: %w", name, err)
		}
		b := img.Bounds()
		info.Format, info.Width, info.Height = strings.ToUpper(format), b.Dx(), b.Dy()
	}

	mime := imageFormats[format].mime
	return types.TextArtifact{
		Payload:        EncodeText(out, opts.IncludeMIME, mime),
		MIMEHint:       mime,
		SourceFilename: name,
		SourcePath:     path,
		Format:         info.Format,
		Size:           int64(len(out)),
		Image:          &info,
	}, nil
}

// Decode validates Base64 text, checks that it holds an image, and writes it
// to outputPath. The target format follows the output extension when it is a
// supported one and the detected format otherwise. Bytes already in the target
// format are written unchanged unless opts.Reencode is set.
func (a *ImageAdapter) Decode(ctx context.Context, text, outputPath string, opts DecodeOptions) (types.BinaryArtifact, error) {
	if err := ctx.Err(); err != nil {
		return types.BinaryArtifact{}, err
	}
	data, err := DecodeText(text)
	if err != nil {
		return types.BinaryArtifact{}, err
	}

	source, info, err := detectImage(data)
	if err != nil {
		return types.BinaryArtifact{}, fmt.Errorf("decoded data is not a valid image: %w", err)
	}

	target := ImageFormatForPath(outputPath)
	if target == "" {
		target = source
	}

	out := data
	if target != source || opts.Reencode {
		img, err := decodePixels(data, source)
		if err != nil {
			return types.BinaryArtifact{}, err
		}
		out, err = encodeImage(img, target, quality(opts.Quality), opts.Optimize)
		if err != nil {
			return types.BinaryArtifact{}, fmt.Errorf("encoding %s: %w", target, err)
		}
		info.Format = strings.ToUpper(target)
	}

	if err := fsutil.WriteFileAtomic(outputPath, out); err != nil {
		return types.BinaryArtifact{}, err
	}

	return types.BinaryArtifact{
		Bytes:          out,
		DeclaredFormat: strings.ToUpper(target),
		SourceFilename: filepath.Base(outputPath),
		Path:           outputPath,
		Size:           int64(len(out)),
		Image:          &info,
	}, nil
}

// Info reports the format and dimensions of an image held in memory.
func (a *ImageAdapter) Info(data []byte) (types.ImageInfo, error) {
	_, info, err := detectImage(data)
	return info, err
}

// detectImage identifies the image format of data. Registered formats are
// inspected through image.DecodeConfig; ico by its directory header, and
// avif by its ftyp brand when the header cannot be parsed.
func detectImage(data []byte) (string, types.ImageInfo, error) {
	if cfg, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return name, types.ImageInfo{
			Format:   strings.ToUpper(name),
			Width:    cfg.Width,
			Height:   cfg.Height,
			Channels: channels(cfg.ColorModel),
		}, nil
	}
	if w, h, ok := icoSize(data); ok {
		return "ico", types.ImageInfo{Format: "ICO", Width: w, Height: h, Channels: 4}, nil
	}
	if isAVIF(data) {
		return "avif", types.ImageInfo{Format: "AVIF"}, nil
	}
	return "", types.ImageInfo{}, types.ErrInvalidFormat
}

func isAVIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "avif" || brand == "avis"
}

func decodePixels(data []byte, format string) (image.Image, error) {
	var img image.Image
	var err error
	switch format {
	case "ico":
		return decodeICO(data)
	case "avif":
		img, err = avif.Decode(bytes.NewReader(data))
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %v: %w", format, err, types.ErrInvalidFormat)
	}
	return img, nil
}

func encodeImage(img image.Image, format string, q int, optimize bool) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		if optimize {
			enc.CompressionLevel = png.BestCompression
		}
		err = enc.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: q})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		var to *tiff.Options
		if optimize {
			to = &tiff.Options{Compression: tiff.Deflate}
		}
		err = tiff.Encode(&buf, img, to)
	case "webp":
		// VP8L is lossless, so quality does not apply.
		err = nativewebp.Encode(&buf, img, nil)
	case "avif":
		err = avif.Encode(&buf, img, avif.Options{Quality: q, QualityAlpha: q, Speed: avifSpeed})
	case "ico":
		return encodeICO(img)
	default:
		return nil, fmt.Errorf("no encoder for %s: %w", format, types.ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fit scales img into the bounding box r, keeping the aspect ratio.
func fit(img image.Image, r Resize) image.Image {
	b := img.Bounds()
	w, h := targetSize(b.Dx(), b.Dy(), r)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func targetSize(ow, oh int, r Resize) (int, int) {
	if ow == 0 || oh == 0 || (r.Width <= 0 && r.Height <= 0) {
		return ow, oh
	}
	scale := math.Inf(1)
	if r.Width > 0 {
		scale = float64(r.Width) / float64(ow)
	}
	if r.Height > 0 {
		scale = math.Min(scale, float64(r.Height)/float64(oh))
	}
	if scale > 1 && !r.AllowUpscale {
		return ow, oh
	}
	w := max(1, int(math.Round(float64(ow)*scale)))
	h := max(1, int(math.Round(float64(oh)*scale)))
	return w, h
}

func channels(m color.Model) int {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.YCbCrModel, color.RGBAModel, color.RGBA64Model:
		return 3
	case color.CMYKModel, color.NRGBAModel, color.NRGBA64Model:
		return 4
	}
	if _, ok := m.(color.Palette); ok {
		return 3
	}
	return 4
}
