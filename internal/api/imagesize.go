package api

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"strings"
)

// imageDimensions reads pixel dimensions straight out of the file header for
// PNG, JPEG and GIF. Anything else, or a header that does not parse, reports
// no dimensions.
func imageDimensions(data []byte, filename string) (int, int, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return pngDimensions(data)
	case ".jpg", ".jpeg":
		return jpegDimensions(data)
	case ".gif":
		return gifDimensions(data)
	}
	return 0, 0, false
}

func pngDimensions(data []byte) (int, int, bool) {
	// IHDR width/height sit at fixed offsets right after the signature.
	if len(data) < 24 || !bytes.Equal(data[1:4], []byte("PNG")) {
		return 0, 0, false
	}
	width := int(binary.BigEndian.Uint32(data[16:20]))
	height := int(binary.BigEndian.Uint32(data[20:24]))
	return width, height, true
}

// jpegDimensions walks the marker segments until a start-of-frame carries
// the dimensions.
func jpegDimensions(data []byte) (int, int, bool) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0, false
	}

	i := 2
	for i+8 < len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		// 0xFF fill bytes may pad the stream before the marker byte.
		if data[i+1] == 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0xC0 || marker == 0xC1 || marker == 0xC2 {
			height := int(data[i+5])<<8 + int(data[i+6])
			width := int(data[i+7])<<8 + int(data[i+8])
			return width, height, true
		}
		i += 2 + int(data[i+2])<<8 + int(data[i+3])
	}
	return 0, 0, false
}

func gifDimensions(data []byte) (int, int, bool) {
	if len(data) < 10 || !bytes.HasPrefix(data, []byte("GIF")) {
		return 0, 0, false
	}
	width := int(binary.LittleEndian.Uint16(data[6:8]))
	height := int(binary.LittleEndian.Uint16(data[8:10]))
	return width, height, true
}
