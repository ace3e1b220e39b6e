package sink

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/xerrors"
)

// channelMax mirrors the original's 65535.99 scale factor: the .99 biases
// the truncation so a channel value of exactly 1.0 rounds up to 65535
// instead of landing one unit short from float rounding.
const channelMax = 65535.99

// WritePPM writes img to w in P3 (ASCII) format with 16-bit channel depth.
// Rows are always written at the image's full width; NewImage allocates every
// row at full width and black, so any row or pixel a work unit never covered
// is already zero and there is no short-row case
// to compensate for here (unlike the original, which wrote incomplete rows
// directly and padded the remainder at write time).
func WritePPM(img *Image, w io.Writer) error {
	buf := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(buf, "P3\n%d %d\n65535\n", img.width, img.height); err != nil {
		return xerrors.Errorf("sink: write PPM header: %w", err)
	}

	for r := 0; r < img.height; r++ {
		row := img.Row(r)
		for _, px := range row {
			c := px.Clamp()
			if _, err := fmt.Fprintf(buf, "%d %d %d\n",
				uint16(c.R*channelMax), uint16(c.G*channelMax), uint16(c.B*channelMax)); err != nil {
				return xerrors.Errorf("sink: write PPM row %d: %w", r, err)
			}
		}
	}

	if err := buf.Flush(); err != nil {
		return xerrors.Errorf("sink: flush PPM: %w", err)
	}
	return nil
}
