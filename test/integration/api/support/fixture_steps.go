package support

import (
	"fmt"
	"image"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/pdfcodes/internal/testutil"
)

const (
	pageWidth  = 700
	pageHeight = 400
)

func (c *APIContext) addImage(name string, img image.Image) error {
	data, err := testutil.EncodeImage(name, img)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	c.Uploads[name] = data
	return nil
}

func (c *APIContext) addPDF(name string, pages []image.Image) error {
	data, err := testutil.PDFBytes(pages...)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}
	c.Uploads[name] = data
	return nil
}

func code128Page(payload string) (image.Image, error) {
	sym, err := testutil.Code128(payload, 3, 120)
	if err != nil {
		return nil, err
	}
	return testutil.Page(pageWidth, pageHeight, testutil.Placement{Image: sym, At: image.Pt(60, 60)}), nil
}

func qrPage(payload string) (image.Image, error) {
	sym, err := testutil.QR(payload, 200)
	if err != nil {
		return nil, err
	}
	return testutil.Page(pageWidth, pageHeight, testutil.Placement{Image: sym, At: image.Pt(60, 60)}), nil
}

// anImageWithABarcode prepares an image containing one CODE128 symbol.
func (c *APIContext) anImageWithABarcode(name, payload string) error {
	page, err := code128Page(payload)
	if err != nil {
		return err
	}
	return c.addImage(name, page)
}

func (c *APIContext) anImageWithAQRCode(name, payload string) error {
	page, err := qrPage(payload)
	if err != nil {
		return err
	}
	return c.addImage(name, page)
}

func (c *APIContext) aBlankImage(name string) error {
	return c.addImage(name, testutil.Page(pageWidth, pageHeight))
}

// aPDFWithSymbolOnPage builds a PDF of total pages with one symbol on page.
func (c *APIContext) aPDFWithSymbolOnPage(name, kind, payload string, page, total int) error {
	if page < 1 || page > total {
		return fmt.Errorf("page %d outside 1..%d", page, total)
	}
	var (
		marked image.Image
		err    error
	)
	switch kind {
	case "CODE128 barcode":
		marked, err = code128Page(payload)
	case "QR code":
		marked, err = qrPage(payload)
	default:
		return fmt.Errorf("unknown symbol kind %q", kind)
	}
	if err != nil {
		return err
	}

	pages := make([]image.Image, total)
	for i := range pages {
		pages[i] = testutil.Page(pageWidth, pageHeight)
	}
	pages[page-1] = marked
	return c.addPDF(name, pages)
}

func (c *APIContext) aBlankPDF(name string, total int) error {
	pages := make([]image.Image, total)
	for i := range pages {
		pages[i] = testutil.Page(pageWidth, pageHeight)
	}
	return c.addPDF(name, pages)
}

func (c *APIContext) aTextPDF(name, text string) error {
	data, err := testutil.TextPDF(text)
	if err != nil {
		return err
	}
	c.Uploads[name] = data
	return nil
}

func (c *APIContext) aTruncatedPDF(name string) error {
	c.Uploads[name] = testutil.TruncatedPDF()
	return nil
}

func (c *APIContext) aFileContaining(name, content string) error {
	c.Uploads[name] = []byte(content)
	return nil
}

func (c *APIContext) aFileOfMegabytes(name string, mb int) error {
	c.Uploads[name] = make([]byte, mb<<20)
	return nil
}

// RegisterFixtureSteps registers the Given steps that prepare uploads.
func (c *APIContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an image "([^"]*)" with a CODE128 barcode "([^"]*)"$`, c.anImageWithABarcode)
	sc.Step(`^an image "([^"]*)" with a QR code "([^"]*)"$`, c.anImageWithAQRCode)
	sc.Step(`^a blank image "([^"]*)"$`, c.aBlankImage)
	sc.Step(`^a PDF "([^"]*)" with a (CODE128 barcode|QR code) "([^"]*)" on page (\d+) of (\d+)$`, c.aPDFWithSymbolOnPage)
	sc.Step(`^a blank PDF "([^"]*)" with (\d+) pages?$`, c.aBlankPDF)
	sc.Step(`^a text PDF "([^"]*)" reading "([^"]*)"$`, c.aTextPDF)
	sc.Step(`^a truncated PDF "([^"]*)"$`, c.aTruncatedPDF)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, c.aFileContaining)
	sc.Step(`^a file "([^"]*)" of (\d+) MB$`, c.aFileOfMegabytes)
}
