package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/viddown/api/internal/downloader"
	"github.com/viddown/api/internal/handler"
	"github.com/viddown/api/internal/history"
	"github.com/viddown/api/internal/metadata"
	"github.com/viddown/api/internal/middleware"
	"github.com/viddown/api/internal/store"
	"github.com/viddown/api/pkg/response"
)

// defaultStub stands in for yt-dlp: it answers version and metadata probes
// and "downloads" by writing a small file at the -o template path.
const defaultStub = `#!/bin/sh
dump=""
for a in "$@"; do
  case "$a" in
    --version) echo "2026.08.01"; exit 0 ;;
    --dump-json) dump=1 ;;
  esac
done
if [ -n "$dump" ]; then
  echo '{"title":"Test Video","uploader":"Test Channel","thumbnail":"https://example.com/t.jpg","duration_string":"3:21","filesize":1048576,"extractor_key":"Youtube"}'
  exit 0
fi
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
echo "[download]  45.2% of 10.00MiB"
echo "[download] 100.0% of 10.00MiB"
printf 'fake media payload' > "$(printf '%s' "$out" | sed 's/%(ext)s/mp4/')"
`

// failingStub exits nonzero after reporting some progress.
const failingStub = `#!/bin/sh
echo "[download] 10.0% of 10.00MiB"
exit 1
`

type testApp struct {
	app   *fiber.App
	store *store.MemoryStore
	dir   string
}

// setupApp wires a Fiber app identical to main.go, with a stub extraction
// binary, a temp downloads directory, a temp history db, and no Redis (rate
// limiting disabled).
func setupApp(t *testing.T) *testApp {
	return setupAppWithStub(t, defaultStub)
}

func setupAppWithStub(t *testing.T, stub string) *testApp {
	t.Helper()

	dir := t.TempDir()
	stubPath := filepath.Join(t.TempDir(), "ytdlp-stub")
	if err := os.WriteFile(stubPath, []byte(stub), 0o755); err != nil {
		t.Fatalf("failed to write stub: %v", err)
	}

	validate := validator.New()
	jobStore := store.NewMemoryStore()
	janitor := downloader.NewJanitor(dir, jobStore)
	supervisor := downloader.NewSupervisor(jobStore, nil, dir, stubPath, "/usr/bin/ffmpeg", "test-agent", time.Minute)
	metadataService := metadata.NewService(stubPath, "test-agent")

	historyStore, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "downloads.db"))
	if err != nil {
		t.Fatalf("failed to open history store: %v", err)
	}
	t.Cleanup(func() { historyStore.Close() })

	processHandler := handler.NewProcessHandler(jobStore, supervisor, janitor, validate)
	historyHandler := handler.NewHistoryHandler(historyStore, validate)
	metadataHandler := handler.NewMetadataHandler(metadataService, validate)
	rateLimiter := middleware.NewRateLimiter(nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return response.Error(c, code, response.CodeServiceError, message, nil)
		},
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		version, err := metadataService.Version(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "yt-dlp not found or failed",
			})
		}
		return c.JSON(fiber.Map{"status": "ok", "ytdlp": version})
	})

	api := app.Group("/api")
	api.Post("/metadata", rateLimiter.MetadataLimit(0), metadataHandler.Fetch)
	api.Post("/process", rateLimiter.ProcessLimit(0), processHandler.Start)
	api.Get("/process/:jobId", processHandler.Status)
	api.Get("/serve/:jobId", processHandler.Serve)
	api.Get("/history", historyHandler.List)
	api.Post("/history", historyHandler.Upsert)
	api.Delete("/history", historyHandler.DeleteByStatus)
	api.Delete("/history/:id", historyHandler.Delete)

	return &testApp{app: app, store: jobStore, dir: dir}
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// pollStatus polls the status endpoint until cond holds or the deadline
// passes, returning the last observed body.
func pollStatus(t *testing.T, app *fiber.App, jobID string, cond func(map[string]interface{}) bool) map[string]interface{} {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	var last map[string]interface{}
	for time.Now().Before(deadline) {
		resp, err := doRequest(app, http.MethodGet, "/api/process/"+jobID, "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		if resp.StatusCode == http.StatusOK {
			last = parseJSON(t, resp)
			if cond(last) {
				return last
			}
		} else {
			resp.Body.Close()
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("condition never met; last status: %v", last)
	return nil
}
