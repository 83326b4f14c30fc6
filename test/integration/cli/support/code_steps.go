package support

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

func (testCtx *TestContext) writeCode(symbology, content, filename string) error {
	formats, err := barcode.ParseFormats([]string{symbology})
	if err != nil || len(formats) != 1 {
		return fmt.Errorf("unknown symbology %q", symbology)
	}
	w, h := 240, 240
	if !formats[0].Matrix() {
		w, h = 320, 128
	}
	img, err := barcode.Encode(formats[0], content, w, h, 4)
	if err != nil {
		return fmt.Errorf("encode %q: %w", content, err)
	}
	return testCtx.writeImage(filename, img)
}

func (testCtx *TestContext) writeImage(filename string, img image.Image) error {
	path := testCtx.Path(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return utils.SaveImage(path, img)
}

func (testCtx *TestContext) aQRCodeSavedAs(content, filename string) error {
	return testCtx.writeCode("qr", content, filename)
}

func (testCtx *TestContext) aBarcodeSavedAs(symbology, content, filename string) error {
	return testCtx.writeCode(symbology, content, filename)
}

func (testCtx *TestContext) anImageWithoutCodesSavedAs(filename string) error {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return testCtx.writeImage(filename, img)
}

func (testCtx *TestContext) aFileContaining(filename, content string) error {
	path := testCtx.Path(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(unescape(content)), 0o600)
}

// aPDFWithQRCodes builds a PDF with one page per QR code.
func (testCtx *TestContext) aPDFWithQRCodes(filename string, table *godog.Table) error {
	var images []string
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		name := filepath.Join("pdf-src", fmt.Sprintf("page%d.png", i))
		if err := testCtx.writeCode("qr", row.Cells[0].Value, name); err != nil {
			return err
		}
		images = append(images, testCtx.Path(name))
	}
	if len(images) == 0 {
		return fmt.Errorf("no payloads given for %s", filename)
	}
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile(images, testCtx.Path(filename), pdfcpu.DefaultImportConfig(), conf); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return nil
}

// RegisterCodeSteps registers fixture generation steps.
func (testCtx *TestContext) RegisterCodeSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR code "([^"]*)" saved as "([^"]*)"$`, testCtx.aQRCodeSavedAs)
	sc.Step(`^an? "([^"]*)" barcode "([^"]*)" saved as "([^"]*)"$`, testCtx.aBarcodeSavedAs)
	sc.Step(`^an image without codes saved as "([^"]*)"$`, testCtx.anImageWithoutCodesSavedAs)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)
	sc.Step(`^a PDF "([^"]*)" with the QR codes:$`, testCtx.aPDFWithQRCodes)
}
