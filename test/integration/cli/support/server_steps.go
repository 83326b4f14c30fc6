package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/qrscan/internal/dedup"
	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/prefs"
	"github.com/MeKo-Tech/qrscan/internal/scan"
	"github.com/MeKo-Tech/qrscan/internal/server"
)

// theScanServerIsRunning starts the real router on an httptest server with
// an in-memory history.
func (testCtx *TestContext) theScanServerIsRunning() error {
	return testCtx.startServer(server.Config{OverlayEnabled: true})
}

func (testCtx *TestContext) theScanServerIsRunningWithRateLimit(rps float64, burst int) error {
	return testCtx.startServer(server.Config{OverlayEnabled: true, RateLimitRPS: rps, RateLimitBurst: burst})
}

func (testCtx *TestContext) startServer(cfg server.Config) error {
	if testCtx.HTTPTestServer != nil {
		return errors.New("server already running")
	}
	testCtx.History = history.New(prefs.NewMemory(), history.DefaultOptions())
	factory := func(opts scan.Options) scan.Factory {
		return func() (*scan.Runner, error) {
			s := detect.NewScanner(context.Background(), detect.ScannerConfig{Loader: detect.ZXingLoader(0)})
			return scan.NewRunner(s, testCtx.History, scan.NewNotifier(scan.DefaultRevert), opts), nil
		}
	}
	pool, err := scan.NewPool(2, factory(scan.DefaultOptions()))
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ready(context.Background()); err != nil {
		pool.Close()
		return fmt.Errorf("load engine: %w", err)
	}
	streamOpts := scan.DefaultOptions()
	streamOpts.Dedup = dedup.PerSession

	testCtx.Pool = pool
	testCtx.Server = server.NewServer(cfg, server.Deps{Pool: pool, History: testCtx.History, Sessions: factory(streamOpts)})
	testCtx.HTTPTestServer = httptest.NewServer(testCtx.Server.Router())
	return nil
}

// StopServer shuts the in-process server down.
func (testCtx *TestContext) StopServer() error {
	var err error
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Close()
		testCtx.HTTPTestServer = nil
	}
	if testCtx.Server != nil {
		err = testCtx.Server.Close()
		testCtx.Server = nil
	}
	if testCtx.Pool != nil {
		testCtx.Pool.Close()
		testCtx.Pool = nil
	}
	return err
}

func (testCtx *TestContext) url(endpoint string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", errors.New("server is not running")
	}
	return testCtx.HTTPTestServer.URL + endpoint, nil
}

func (testCtx *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k, v := range resp.Header {
		if len(v) > 0 {
			testCtx.LastHTTPHeaders[k] = v[0]
		}
	}
	return nil
}

func (testCtx *TestContext) upload(endpoint, field, filename string, fields map[string]string) error {
	target, err := testCtx.url(endpoint)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.Path(filename))
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filepath.Base(filename))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, target, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iPOSTTheImageTo(filename, endpoint string) error {
	return testCtx.upload(endpoint, "image", filename, nil)
}

func (testCtx *TestContext) iPOSTTheImageToWithOverlay(filename, endpoint string) error {
	return testCtx.upload(endpoint, "image", filename, map[string]string{"overlay": "true"})
}

func (testCtx *TestContext) iPOSTThePDFTo(filename, endpoint string) error {
	return testCtx.upload(endpoint, "pdf", filename, nil)
}

func (testCtx *TestContext) iRequest(method, endpoint string) error {
	target, err := testCtx.url(endpoint)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), method, target, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) iPOSTJSONTo(endpoint string, doc *godog.DocString) error {
	target, err := testCtx.url(endpoint)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, target, strings.NewReader(doc.Content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return testCtx.do(req)
}

func (testCtx *TestContext) theResponseStatusShouldBe(expected int) error {
	if testCtx.LastHTTPStatusCode != expected {
		return fmt.Errorf("expected status %d, got %d\nResponse: %s",
			expected, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, unescape(text)) {
		return fmt.Errorf("response does not contain '%s'\nResponse: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	val, err := jsonLookup(testCtx.LastHTTPResponse, field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(val); got != expected {
		return fmt.Errorf("field '%s' is %q, expected %q", field, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldIncludeOverlayImageData() error {
	val, err := jsonLookup(testCtx.LastHTTPResponse, "result.overlay")
	if err != nil {
		return err
	}
	if s, _ := val.(string); s == "" {
		return errors.New("overlay image data is empty")
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, got, expected)
	}
	return nil
}

// iStreamTheImages sends every listed file as a binary frame over
// /ws/scan and collects the messages the server answers with until the
// last frame has been acknowledged.
func (testCtx *TestContext) iStreamTheImages(list string) error {
	target, err := testCtx.url("/ws/scan")
	if err != nil {
		return err
	}
	target = "ws" + strings.TrimPrefix(target, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	testCtx.StreamMessages = nil
	names := strings.Split(list, ",")
	for _, name := range names {
		data, err := os.ReadFile(testCtx.Path(strings.TrimSpace(name)))
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return fmt.Errorf("send frame: %w", err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	for frames := 0; frames < len(names); {
		var msg server.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read stream message: %w", err)
		}
		testCtx.StreamMessages = append(testCtx.StreamMessages, msg)
		if msg.Type == "frame" {
			frames++
		}
	}
	return nil
}

func (testCtx *TestContext) iShouldReceiveDetectionMessages(n int) error {
	var got int
	for _, m := range testCtx.StreamMessages {
		if m.Type == "detection" {
			got++
		}
	}
	if got != n {
		return fmt.Errorf("expected %d detection messages, got %d", n, got)
	}
	return nil
}

func (testCtx *TestContext) aStatusMessageShouldSay(text string) error {
	for _, m := range testCtx.StreamMessages {
		if m.Type == "status" && strings.Contains(m.Message, text) {
			return nil
		}
	}
	raw, _ := json.Marshal(testCtx.StreamMessages)
	return fmt.Errorf("no status message containing %q in %s", text, raw)
}

func (testCtx *TestContext) theServerHistoryShouldHoldEntries(n int) error {
	if got := len(testCtx.History.List()); got != n {
		return fmt.Errorf("expected %d history entries, got %d", n, got)
	}
	return nil
}

// RegisterServerSteps registers HTTP and WebSocket steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the scan server is running$`, testCtx.theScanServerIsRunning)
	sc.Step(`^the scan server is running with a rate limit of ([\d.]+) requests per second and burst (\d+)$`,
		testCtx.theScanServerIsRunningWithRateLimit)

	sc.Step(`^I POST the image "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTTheImageTo)
	sc.Step(`^I POST the image "([^"]*)" to "([^"]*)" with overlay enabled$`, testCtx.iPOSTTheImageToWithOverlay)
	sc.Step(`^I POST the PDF "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTThePDFTo)
	sc.Step(`^I POST JSON to "([^"]*)":$`, testCtx.iPOSTJSONTo)
	sc.Step(`^I (GET|DELETE|OPTIONS) "([^"]*)"$`, testCtx.iRequest)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response should include overlay image data$`, testCtx.theResponseShouldIncludeOverlayImageData)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)

	sc.Step(`^I stream the images "([^"]*)"$`, testCtx.iStreamTheImages)
	sc.Step(`^I should receive (\d+) detection messages?$`, testCtx.iShouldReceiveDetectionMessages)
	sc.Step(`^a status message should say "([^"]*)"$`, testCtx.aStatusMessageShouldSay)
	sc.Step(`^the server history should hold (\d+) entr(?:y|ies)$`, testCtx.theServerHistoryShouldHoldEntries)
}
