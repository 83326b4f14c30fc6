package barcode

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type gozxingBackend struct{}

// allFormats is searched when Options.Formats is empty.
var allFormats = []Format{
	FormatQR, FormatDataMatrix, FormatCode128, FormatCode39, FormatCode93,
	FormatEAN8, FormatEAN13, FormatUPCA, FormatUPCE, FormatITF, FormatCodabar,
}

func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil
	}
	if !opts.ROI.Empty() {
		if roiImg, ok := subImage(img, opts.ROI); ok {
			img = roiImg
		}
	}
	// gozxing reports points relative to the top-left of the decoded image.
	offset := img.Bounds().Min

	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return nil, fmt.Errorf("binarize: %w", err)
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = allFormats
	}
	hints := buildHints(formats, opts.TryHarder)

	var raw []*gozxing.Result
	for _, pass := range decodePasses(formats, hints, opts.Multi) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs, err := pass.run(bitmap, hints)
		if err != nil {
			slog.Debug("barcode pass found nothing", "pass", pass.name, "error", err)
			continue
		}
		raw = append(raw, rs...)
	}

	out := make([]Result, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		f := mapFormatFromZXing(r.GetBarcodeFormat())
		key := fmt.Sprintf("%d\x00%s", f, r.GetText())
		if seen[key] {
			continue
		}
		seen[key] = true

		var points []Point
		if pts := r.GetResultPoints(); len(pts) > 0 {
			points = make([]Point, 0, len(pts))
			for _, p := range pts {
				points = append(points, Point{X: int(p.GetX()) + offset.X, Y: int(p.GetY()) + offset.Y})
			}
		}
		out = append(out, Result{
			Type:   f,
			Value:  r.GetText(),
			Raw:    r.GetRawBytes(),
			Points: points,
			BBox:   rectFromPoints(points),
		})
	}
	return out, nil
}

type decodePass struct {
	name string
	run  func(*gozxing.BinaryBitmap, map[gozxing.DecodeHintType]interface{}) ([]*gozxing.Result, error)
}

func singlePass(name string, reader gozxing.Reader) decodePass {
	return decodePass{
		name: name,
		run: func(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) (rs []*gozxing.Result, err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%s reader panic: %v", name, p)
				}
			}()
			r, err := reader.Decode(bmp, hints)
			if err != nil {
				return nil, err
			}
			return []*gozxing.Result{r}, nil
		},
	}
}

func decodePasses(formats []Format, hints map[gozxing.DecodeHintType]interface{}, multi bool) []decodePass {
	want := make(map[Format]bool, len(formats))
	for _, f := range formats {
		want[f] = true
	}

	var passes []decodePass
	if want[FormatQR] {
		if multi {
			passes = append(passes, decodePass{
				name: "qr_multi",
				run: func(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) (rs []*gozxing.Result, err error) {
					defer func() {
						if p := recover(); p != nil {
							err = fmt.Errorf("qr_multi reader panic: %v", p)
						}
					}()
					return multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, hints)
				},
			})
		} else {
			passes = append(passes, singlePass("qr", qrcode.NewQRCodeReader()))
		}
	}
	if want[FormatDataMatrix] {
		passes = append(passes, singlePass("data_matrix", datamatrix.NewDataMatrixReader()))
	}
	if want[FormatEAN8] || want[FormatEAN13] || want[FormatUPCA] || want[FormatUPCE] {
		passes = append(passes, singlePass("upc_ean", oned.NewMultiFormatUPCEANReader(hints)))
	}
	if want[FormatCode128] {
		passes = append(passes, singlePass("code_128", oned.NewCode128Reader()))
	}
	if want[FormatCode39] {
		passes = append(passes, singlePass("code_39", oned.NewCode39Reader()))
	}
	if want[FormatCode93] {
		passes = append(passes, singlePass("code_93", oned.NewCode93Reader()))
	}
	if want[FormatITF] {
		passes = append(passes, singlePass("itf", oned.NewITFReader()))
	}
	if want[FormatCodabar] {
		passes = append(passes, singlePass("codabar", oned.NewCodaBarReader()))
	}
	return passes
}

func buildHints(formats []Format, tryHarder bool) map[gozxing.DecodeHintType]interface{} {
	hints := make(map[gozxing.DecodeHintType]interface{})
	var zx []gozxing.BarcodeFormat
	for _, f := range formats {
		if bf, ok := mapFormatToZXing(f); ok {
			zx = append(zx, bf)
		}
	}
	if len(zx) > 0 {
		hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = zx
	}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return hints
}

func mapFormatToZXing(f Format) (gozxing.BarcodeFormat, bool) {
	switch f {
	case FormatQR:
		return gozxing.BarcodeFormat_QR_CODE, true
	case FormatDataMatrix:
		return gozxing.BarcodeFormat_DATA_MATRIX, true
	case FormatAztec:
		return gozxing.BarcodeFormat_AZTEC, true
	case FormatPDF417:
		return gozxing.BarcodeFormat_PDF_417, true
	case FormatCode128:
		return gozxing.BarcodeFormat_CODE_128, true
	case FormatCode39:
		return gozxing.BarcodeFormat_CODE_39, true
	case FormatCode93:
		return gozxing.BarcodeFormat_CODE_93, true
	case FormatEAN8:
		return gozxing.BarcodeFormat_EAN_8, true
	case FormatEAN13:
		return gozxing.BarcodeFormat_EAN_13, true
	case FormatUPCA:
		return gozxing.BarcodeFormat_UPC_A, true
	case FormatUPCE:
		return gozxing.BarcodeFormat_UPC_E, true
	case FormatITF:
		return gozxing.BarcodeFormat_ITF, true
	case FormatCodabar:
		return gozxing.BarcodeFormat_CODABAR, true
	default:
		return 0, false
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return FormatAztec
	case gozxing.BarcodeFormat_PDF_417:
		return FormatPDF417
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_CODE_93:
		return FormatCode93
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}

func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// subImage returns the part of img inside r, keeping the source coordinates.
func subImage(img image.Image, r image.Rectangle) (image.Image, bool) {
	rb := r.Intersect(img.Bounds())
	if rb.Empty() {
		return nil, false
	}
	type subImager interface{ SubImage(r image.Rectangle) image.Image }
	if s, ok := img.(subImager); ok {
		return s.SubImage(rb), true
	}
	dst := image.NewRGBA(rb)
	draw.Draw(dst, rb, img, rb.Min, draw.Src)
	return dst, true
}
