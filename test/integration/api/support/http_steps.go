package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
)

var client = &http.Client{Timeout: 60 * time.Second}

// multipartBody encodes the named uploads under field, plus plain form values.
func (c *APIContext) multipartBody(field string, names []string, values map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, name := range names {
		data, ok := c.Uploads[name]
		if !ok {
			return nil, "", fmt.Errorf("no upload named %q was prepared", name)
		}
		part, err := mw.CreateFormFile(field, name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	for k, v := range values {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return body, mw.FormDataContentType(), nil
}

func (c *APIContext) do(req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.LastStatus = resp.StatusCode
	c.LastBody = body
	c.LastHeaders = resp.Header
	c.LastJSON = nil
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var parsed map[string]any
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("invalid JSON response %q: %w", body, err)
		}
		c.LastJSON = parsed
	}
	return nil
}

func (c *APIContext) post(path, field string, names []string, values map[string]string) error {
	body, contentType, err := c.multipartBody(field, names, values)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.URL(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req)
}

// iUploadTo posts one file under the "file" field.
func (c *APIContext) iUploadTo(name, path string) error {
	return c.post(path, "file", []string{name}, nil)
}

func (c *APIContext) iUploadWithTextTo(name, text, path string) error {
	return c.post(path, "file", []string{name}, map[string]string{"text": text})
}

func (c *APIContext) iUploadWithPagesTo(name, pages, path string) error {
	return c.post(path, "file", []string{name}, map[string]string{"pages": pages})
}

// iUploadFilesTo posts a comma separated list of uploads under "files".
func (c *APIContext) iUploadFilesTo(list, path string) error {
	var names []string
	for _, n := range strings.Split(list, ",") {
		names = append(names, strings.Trim(strings.TrimSpace(n), `"`))
	}
	return c.post(path, "files", names, nil)
}

func (c *APIContext) iPostAnEmptyFormTo(path string) error {
	return c.post(path, "file", nil, nil)
}

func (c *APIContext) iSendTo(method, path string) error {
	req, err := http.NewRequest(method, c.URL(path), nil)
	if err != nil {
		return err
	}
	if method == http.MethodOptions {
		req.Header.Set("Origin", "https://client.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	return c.do(req)
}

func (c *APIContext) theResponseStatusShouldBe(status int) error {
	if c.LastStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, c.LastStatus, c.LastBody)
	}
	return nil
}

func (c *APIContext) theResponseHeaderShouldContain(header, want string) error {
	got := c.LastHeaders.Get(header)
	if !strings.Contains(got, want) {
		return fmt.Errorf("header %s is %q, want it to contain %q", header, got, want)
	}
	return nil
}

func (c *APIContext) jsonField(field string) (any, error) {
	if c.LastJSON == nil {
		return nil, fmt.Errorf("response is not JSON: %s", c.LastBody)
	}
	v, ok := c.LastJSON[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, c.LastBody)
	}
	return v, nil
}

func (c *APIContext) theResponseFieldShouldBe(field, want string) error {
	v, err := c.jsonField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("field %q is %q, want %q", field, got, want)
	}
	return nil
}

func (c *APIContext) theResponseMessageShouldContain(want string) error {
	v, err := c.jsonField("message")
	if err != nil {
		return err
	}
	if msg, _ := v.(string); !strings.Contains(msg, want) {
		return fmt.Errorf("message %q does not contain %q", msg, want)
	}
	return nil
}

func (c *APIContext) list(field string) ([]map[string]any, error) {
	v, err := c.jsonField(field)
	if err != nil {
		return nil, err
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is %T, not a list", field, v)
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q holds %T", field, item)
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *APIContext) theListShouldBeEmpty(field string) error {
	items, err := c.list(field)
	if err != nil {
		return err
	}
	if len(items) != 0 {
		return fmt.Errorf("expected %q to be empty, got %v", field, items)
	}
	return nil
}

// theListShouldContainCode looks for a hit with the given type and data, and
// the given page when page > 0.
func (c *APIContext) theListShouldContainCode(field, kind, data string, page int) error {
	items, err := c.list(field)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item["type"] != kind || item["data"] != data {
			continue
		}
		if page == 0 {
			if _, has := item["page"]; has {
				return fmt.Errorf("image hit %v should not carry a page", item)
			}
			return nil
		}
		if p, _ := item["page"].(float64); int(p) == page {
			return nil
		}
	}
	return fmt.Errorf("no %s %q (page %d) in %q: %s", kind, data, page, field, c.LastBody)
}

func (c *APIContext) theListShouldContainCodeOnPage(field, kind, data string, page int) error {
	return c.theListShouldContainCode(field, kind, data, page)
}

func (c *APIContext) theListShouldContainImageCode(field, kind, data string) error {
	return c.theListShouldContainCode(field, kind, data, 0)
}

func (c *APIContext) everyBarcodeShouldHaveBounds() error {
	items, err := c.list("barcodes")
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, ok := item["bounds"].(map[string]any); !ok {
			return fmt.Errorf("barcode %v has no bounds", item)
		}
	}
	return nil
}

func (c *APIContext) theResponseShouldBeAPDFWithPages(pages int) error {
	path := filepath.Join(c.TempDir, "response.pdf")
	if err := os.WriteFile(path, c.LastBody, 0o600); err != nil {
		return err
	}
	n, err := pdf.PageCount(path)
	if err != nil {
		return fmt.Errorf("response is not a readable PDF: %w", err)
	}
	if n != pages {
		return fmt.Errorf("expected %d pages, got %d", pages, n)
	}
	return nil
}

func (c *APIContext) theResponseBodyShouldContain(want string) error {
	if !bytes.Contains(c.LastBody, []byte(want)) {
		return fmt.Errorf("body does not contain %q: %s", want, c.LastBody)
	}
	return nil
}

func (c *APIContext) noTemporaryFilesShouldRemain() error {
	left, err := c.LeftoverFiles()
	if err != nil {
		return err
	}
	if len(left) > 0 {
		return fmt.Errorf("temporary files left behind: %v", left)
	}
	return nil
}

// RegisterHTTPSteps registers request and response steps.
func (c *APIContext) RegisterHTTPSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, c.iUploadTo)
	sc.Step(`^I upload "([^"]*)" with text "([^"]*)" to "([^"]*)"$`, c.iUploadWithTextTo)
	sc.Step(`^I upload "([^"]*)" with pages "([^"]*)" to "([^"]*)"$`, c.iUploadWithPagesTo)
	sc.Step(`^I upload files (.+) to "([^"]*)"$`, c.iUploadFilesTo)
	sc.Step(`^I post an empty form to "([^"]*)"$`, c.iPostAnEmptyFormTo)
	sc.Step(`^I send (GET|POST|OPTIONS) "([^"]*)"$`, c.iSendTo)

	sc.Step(`^the response status should be (\d+)$`, c.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, c.theResponseHeaderShouldContain)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, c.theResponseFieldShouldBe)
	sc.Step(`^the response message should contain "([^"]*)"$`, c.theResponseMessageShouldContain)
	sc.Step(`^the "([^"]*)" list should be empty$`, c.theListShouldBeEmpty)
	sc.Step(`^the "([^"]*)" list should contain a (barcode|qr) "([^"]*)" on page (\d+)$`, c.theListShouldContainCodeOnPage)
	sc.Step(`^the "([^"]*)" list should contain a (barcode|qr) "([^"]*)" without a page$`, c.theListShouldContainImageCode)
	sc.Step(`^every barcode should have bounds$`, c.everyBarcodeShouldHaveBounds)
	sc.Step(`^the response should be a PDF with (\d+) pages?$`, c.theResponseShouldBeAPDFWithPages)
	sc.Step(`^the response body should contain "([^"]*)"$`, c.theResponseBodyShouldContain)
	sc.Step(`^no temporary files should remain$`, c.noTemporaryFilesShouldRemain)
}
