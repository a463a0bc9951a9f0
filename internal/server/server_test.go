package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"medsummary/internal/llm"
	"medsummary/internal/ocr"
	"medsummary/internal/pdfreport"
	"medsummary/internal/playback"
	"medsummary/internal/report"
	"medsummary/internal/tts"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const hemoglobinText = "Hemoglobin: 10.5 g/dL (Reference Range: 13 to 17 g/dL)"

const hemoglobinReply = "```json\n" + `{
  "keyFindings": "Hemoglobin is below the reference range.",
  "abnormalities": [
    {"test": "Hemoglobin", "result": "10.5 g/dL", "normalRange": "13-17 g/dL", "abnormality": "Low hemoglobin suggests anemia."}
  ],
  "recommendedSteps": "Consult a physician and repeat the blood count.",
  "healthAdvice": "Eat iron rich food such as spinach and lentils."
}` + "\n```"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeOCR struct {
	text string
}

func (f fakeOCR) ProcessDocument(ctx context.Context, data io.Reader) (string, error) {
	return f.text, nil
}

func (f fakeOCR) ProcessDocumentWithMetadata(ctx context.Context, data io.Reader) (*ocr.OCRResult, error) {
	return &ocr.OCRResult{Text: f.text, PageCount: 1, Source: "fake"}, nil
}

type fakeLLM struct {
	reply string
}

func (f fakeLLM) Generate(ctx context.Context, prompt string, cfg llm.GenerationConfig) (string, error) {
	return f.reply, nil
}

func (f fakeLLM) Chat(ctx context.Context, history []llm.Message, prompt string, cfg llm.GenerationConfig) (string, error) {
	return f.reply, nil
}

func (f fakeLLM) Name() string { return "fake" }

func testOptions() Options {
	return Options{
		MaxUploadBytes: 1 << 20,
		Playback: playback.Options{
			ChunkSize:        80,
			CallInterval:     time.Millisecond,
			SectionPause:     time.Millisecond,
			RateLimitBackoff: time.Millisecond,
		},
	}
}

func newTestServer(t *testing.T, llmReply string, synth tts.Synthesizer, opts Options) *Server {
	t.Helper()
	renderer, err := pdfreport.NewRenderer("")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	svc := report.NewService(ocr.NewExtractor(fakeOCR{text: hemoglobinText}), fakeLLM{reply: llmReply}, renderer, report.DefaultConfig())
	return New(svc, svc, synth, opts)
}

func multipartBody(t *testing.T, field string, content []byte, language string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		part, err := w.CreateFormFile(field, "report.png")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(content)
	}
	w.WriteField("language", language)
	w.Close()
	return &body, w.FormDataContentType()
}

func doUpload(t *testing.T, s *Server, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, content, "English")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestUploadSummarizesReport(t *testing.T) {
	s := newTestServer(t, hemoglobinReply, nil, testOptions())

	for _, field := range []string{"file", "report"} {
		t.Run(field, func(t *testing.T) {
			rec := doUpload(t, s, field, pngHeader)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}

			var resp uploadResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if len(resp.Summary.Abnormalities) != 1 || resp.Summary.Abnormalities[0].Test != "Hemoglobin" {
				t.Errorf("summary = %+v", resp.Summary)
			}
			pdfData, err := base64.StdEncoding.DecodeString(resp.PDFData)
			if err != nil || !bytes.HasPrefix(pdfData, []byte("%PDF-")) {
				t.Errorf("pdfData is not a base64 PDF (err %v)", err)
			}
			if rec.Header().Get(requestIDHeader) == "" {
				t.Error("missing request id header")
			}
		})
	}
}

func TestUploadUnparseableSummary(t *testing.T) {
	s := newTestServer(t, "Sorry, I cannot help.", nil, testOptions())

	rec := doUpload(t, s, "file", pngHeader)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "Error processing report" || body["details"] != "failed to parse summary" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["pdfData"]; ok {
		t.Error("error response must not carry pdfData")
	}
}

func TestUploadWithoutFile(t *testing.T) {
	s := newTestServer(t, hemoglobinReply, nil, testOptions())

	rec := doUpload(t, s, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "No file uploaded" {
		t.Errorf("error = %q", body.Error)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-multipart status = %d", rec.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	opts := testOptions()
	opts.MaxUploadBytes = 1024
	s := newTestServer(t, hemoglobinReply, nil, opts)

	rec := doUpload(t, s, "file", bytes.Repeat([]byte("x"), 4096))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	opts := testOptions()
	opts.ScratchDirs = []string{dir, filepath.Join(dir, "missing")}
	s := newTestServer(t, hemoglobinReply, nil, opts)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/delete-files", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d", i, rec.Code)
		}
		var body map[string]any
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["message"] != "Files deleted successfully" {
			t.Errorf("call %d: body = %v", i, body)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d files left behind", len(entries))
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, hemoglobinReply, nil, testOptions())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("status = %d, body = %v", rec.Code, body)
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"]); err != nil {
		t.Errorf("timestamp %q: %v", body["timestamp"], err)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, hemoglobinReply, nil, testOptions())

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func postChat(t *testing.T, s *Server, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	s := newTestServer(t, "  Hemoglobin carries oxygen in the blood.  ", nil, testOptions())

	rec := postChat(t, s, `{
		"summary": {"keyFindings": "Low hemoglobin."},
		"history": [{"role": "user", "content": "Hi"}, {"role": "assistant", "content": "Hello"}],
		"message": "What is hemoglobin?"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Reply != "Hemoglobin carries oxygen in the blood." {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestChatValidation(t *testing.T) {
	s := newTestServer(t, "unused", nil, testOptions())

	tests := []struct {
		name    string
		payload string
	}{
		{"missing message", `{"summary": {}}`},
		{"bad role", `{"message": "hi", "history": [{"role": "system", "content": "x"}]}`},
		{"blank question", `{"message": "   "}`},
		{"malformed", `{"message": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postChat(t, s, tt.payload)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRecoverReturnsJSON(t *testing.T) {
	s := newTestServer(t, hemoglobinReply, nil, testOptions())
	s.router.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "Server error" {
		t.Errorf("body = %v", body)
	}
}
