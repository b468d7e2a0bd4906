package conversation

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// RenderQRCode draws content as a QR code made of half-block glyphs, two modules
// per character cell. Colors are inverted so the code scans on dark terminals.
func RenderQRCode(content string) (string, error) {
	code, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}

	return halfBlocks(code.Bitmap()), nil
}

func halfBlocks(bitmap [][]bool) string {
	var sb strings.Builder

	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			// inverted: light modules are drawn
			top := !bitmap[y][x]
			bottom := y+1 < len(bitmap) && !bitmap[y+1][x]

			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}

		sb.WriteByte('\n')
	}

	return sb.String()
}
