package barcode

import (
	"fmt"
	"image"
	"image/color"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode/decoder"
)

// Encode renders content as a black-on-white symbol of roughly width x height
// pixels. Only the symbologies needed for fixtures and test pages are supported.
func Encode(f Format, content string, width, height, margin int) (*image.RGBA, error) {
	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_MARGIN: margin,
	}

	var writer gozxing.Writer
	switch f {
	case FormatQR:
		hints[gozxing.EncodeHintType_ERROR_CORRECTION] = decoder.ErrorCorrectionLevel_M
		hints[gozxing.EncodeHintType_CHARACTER_SET] = "UTF-8"
		writer = qrcode.NewQRCodeWriter()
	case FormatEAN13:
		writer = oned.NewEAN13Writer()
	case FormatEAN8:
		writer = oned.NewEAN8Writer()
	case FormatCode128:
		writer = oned.NewCode128Writer()
	case FormatCode39:
		writer = oned.NewCode39Writer()
	default:
		return nil, fmt.Errorf("encoding %s is not supported", f)
	}

	bf, _ := mapFormatToZXing(f)
	bm, err := writer.Encode(content, bf, width, height, hints)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}

	w, h := bm.GetWidth(), bm.GetHeight()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bm.Get(x, y) {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img, nil
}
