// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/bmp"

	"github.com/pdiddy/textbridge/pkg/types"
)

// icoMaxSide is the largest width or height an ICONDIR entry can describe.
const icoMaxSide = 256

const (
	icoHeaderSize = 6
	icoEntrySize  = 16
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

type icoEntry struct {
	width, height int
	size, offset  int
}

// icoEntries parses the ICONDIR header and its directory entries.
func icoEntries(data []byte) ([]icoEntry, bool) {
	if len(data) < icoHeaderSize+icoEntrySize {
		return nil, false
	}
	if binary.LittleEndian.Uint16(data[0:2]) != 0 || binary.LittleEndian.Uint16(data[2:4]) != 1 {
		return nil, false
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count == 0 || len(data) < icoHeaderSize+count*icoEntrySize {
		return nil, false
	}
	entries := make([]icoEntry, count)
	for i := range entries {
		e := data[icoHeaderSize+i*icoEntrySize:]
		w, h := int(e[0]), int(e[1])
		if w == 0 {
			w = icoMaxSide
		}
		if h == 0 {
			h = icoMaxSide
		}
		entries[i] = icoEntry{
			width:  w,
			height: h,
			size:   int(binary.LittleEndian.Uint32(e[8:12])),
			offset: int(binary.LittleEndian.Uint32(e[12:16])),
		}
	}
	return entries, true
}

// icoSize returns the size of the first directory entry.
func icoSize(data []byte) (int, int, bool) {
	entries, ok := icoEntries(data)
	if !ok {
		return 0, 0, false
	}
	return entries[0].width, entries[0].height, true
}

// decodeICO decodes the largest image in an icon. PNG entries are decoded
// directly; BMP entries are decoded as a DIB with the AND mask ignored.
func decodeICO(data []byte) (image.Image, error) {
	entries, ok := icoEntries(data)
	if !ok {
		return nil, fmt.Errorf("icon directory: %w", types.ErrInvalidFormat)
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.width*e.height > best.width*best.height {
			best = e
		}
	}
	if best.offset < 0 || best.size <= 0 || best.offset+best.size > len(data) {
		return nil, fmt.Errorf("icon entry out of range: %w", types.ErrInvalidFormat)
	}
	blob := data[best.offset : best.offset+best.size]

	var img image.Image
	var err error
	if bytes.HasPrefix(blob, pngSignature) {
		img, err = png.Decode(bytes.NewReader(blob))
	} else {
		img, err = decodeDIB(blob)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding icon entry: %v: %w", err, types.ErrInvalidFormat)
	}
	return img, nil
}

// decodeDIB turns an icon's BITMAPINFOHEADER payload into a BMP file. The
// header height counts the XOR and AND masks together, so it is halved.
func decodeDIB(blob []byte) (image.Image, error) {
	if len(blob) < 40 {
		return nil, fmt.Errorf("bitmap header truncated")
	}
	hdrSize := int(binary.LittleEndian.Uint32(blob[0:4]))
	if hdrSize < 40 || hdrSize > len(blob) {
		return nil, fmt.Errorf("bitmap header size %d", hdrSize)
	}
	dib := bytes.Clone(blob)
	h := int32(binary.LittleEndian.Uint32(dib[8:12]))
	binary.LittleEndian.PutUint32(dib[8:12], uint32(h/2))

	bpp := int(binary.LittleEndian.Uint16(dib[14:16]))
	colors := int(binary.LittleEndian.Uint32(dib[32:36]))
	if colors == 0 && bpp <= 8 {
		colors = 1 << bpp
	}

	var file bytes.Buffer
	file.WriteString("BM")
	binary.Write(&file, binary.LittleEndian, uint32(14+len(dib)))
	binary.Write(&file, binary.LittleEndian, uint32(0))
	binary.Write(&file, binary.LittleEndian, uint32(14+hdrSize+colors*4))
	file.Write(dib)
	return bmp.Decode(&file)
}

// encodeICO writes img as a single-entry icon holding a PNG. Images larger
// than 256x256 are scaled down to fit.
func encodeICO(img image.Image) ([]byte, error) {
	img = fit(img, Resize{Width: icoMaxSide, Height: icoMaxSide})
	var payload bytes.Buffer
	if err := png.Encode(&payload, img); err != nil {
		return nil, err
	}

	b := img.Bounds()
	var buf bytes.Buffer
	buf.Grow(icoHeaderSize + icoEntrySize + payload.Len())
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	buf.WriteByte(byte(b.Dx() % icoMaxSide))
	buf.WriteByte(byte(b.Dy() % icoMaxSide))
	buf.WriteByte(0) // palette size
	buf.WriteByte(0) // reserved
	binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(payload.Len()), icoHeaderSize + icoEntrySize})
	buf.Write(payload.Bytes())
	return buf.Bytes(), nil
}
