//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/ragchat/internal/cli/admin"
	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/storage"
	"github.com/cloo-solutions/ragchat/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dims     = 1536
	s3Bucket = "test-docs"
)

// vocabulary maps a word onto its own embedding axis.
var vocabulary = map[string]int{
	"pizza":   0,
	"food":    1,
	"tea":     2,
	"deploy":  3,
	"weather": 4,
}

// keywordEmbedder gives texts that share vocabulary words a high cosine similarity.
type keywordEmbedder struct{}

func (keywordEmbedder) EmbedQuery(_ context.Context, value string) ([]float32, error) {
	vec := make([]float32, dims)
	vec[dims-1] = 0.01
	lower := strings.ToLower(value)
	for word, axis := range vocabulary {
		if strings.Contains(lower, word) {
			vec[axis] = 1
		}
	}
	return vec, nil
}

func (e keywordEmbedder) EmbedMany(ctx context.Context, values []string) ([][]float32, error) {
	out := make([][]float32, len(values))
	for i, v := range values {
		out[i], _ = e.EmbedQuery(ctx, v)
	}
	return out, nil
}

// promptEchoGenerator streams back the system instruction it was given.
type promptEchoGenerator struct{}

func (promptEchoGenerator) Stream(_ context.Context, req domain.GenerationRequest) (domain.TokenStream, error) {
	return domain.NewTextStream(req.System), nil
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T         *testing.T
	Ctx       context.Context
	PostgresC *testutil.PostgresContainer
	RustFSC   *testutil.RustFSContainer
	Pool      *pgxpool.Pool
	S3Client  *storage.S3Client
	App       *admin.App
	Server    *httptest.Server
	ServerURL string
	BinaryDir string
	APIKey    string
}

// SetupE2EEnv starts Postgres and RustFS and serves the app against them.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSKey,
		SecretAccessKey: testutil.RustFSKey,
		Bucket:          s3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	cfg := &config.Config{
		DatabaseURL:         pgC.ConnectionString(),
		APIKey:              "e2e-secret",
		EmbeddingDimensions: dims,
		ChatMode:            "augment",
		MinScore:            0.3,
		ResultLimit:         5,
		IngestWorkers:       2,
		RepairInterval:      time.Hour,
		S3Endpoint:          s3C.Endpoint(),
		S3AccessKey:         testutil.RustFSKey,
		S3SecretKey:         testutil.RustFSKey,
		S3Bucket:            s3Bucket,
		S3Region:            "us-east-1",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := admin.NewApp(ctx, cfg, logger,
		admin.WithEmbedder(keywordEmbedder{}),
		admin.WithGenerator(promptEchoGenerator{}),
		admin.WithoutMigrations(),
	)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}

	srv := httptest.NewServer(app.Handler())

	return &E2ETestEnv{
		T:         t,
		Ctx:       ctx,
		PostgresC: pgC,
		RustFSC:   s3C,
		Pool:      pool,
		S3Client:  s3Client,
		App:       app,
		Server:    srv,
		ServerURL: srv.URL,
		APIKey:    cfg.APIKey,
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.App != nil {
		e.App.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildClient builds the ragchat binary
func (e *E2ETestEnv) BuildClient() {
	tmpDir, err := os.MkdirTemp("", "ragchat-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "ragchat"), "./cmd/ragchat")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build ragchat: %v\n%s", err, out)
	}
}

// RunClient runs the ragchat CLI against the test server
func (e *E2ETestEnv) RunClient(stdin string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "ragchat"), args...)
	cmd.Dir = e.T.TempDir()
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(),
		"RAGCHAT_API_KEY="+e.APIKey,
		"RAGCHAT_API_URL="+e.ServerURL,
		"XDG_CONFIG_HOME="+e.T.TempDir(),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Header http.Header
	Body   []byte
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

func (e *E2ETestEnv) Get(path string) *APIResponse {
	return e.do(http.MethodGet, path, nil)
}

func (e *E2ETestEnv) Post(path string, body interface{}) *APIResponse {
	return e.do(http.MethodPost, path, body)
}

func (e *E2ETestEnv) Delete(path string) *APIResponse {
	return e.do(http.MethodDelete, path, nil)
}

func (e *E2ETestEnv) do(method, path string, body interface{}) *APIResponse {
	e.T.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, reqBody)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Server.Client().Do(req)
	if err != nil {
		e.T.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read body: %v", err)
	}

	out := &APIResponse{Status: resp.StatusCode, Header: resp.Header, Body: raw}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, out); err != nil {
			e.T.Fatalf("failed to parse %q: %v", raw, err)
		}
	}
	return out
}
