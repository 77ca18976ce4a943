package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/process"
)

type recordingRunner struct {
	calls [][]string
	res   process.Result
}

func (r *recordingRunner) Run(_ context.Context, _ string, name string, args ...string) (process.Result, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.res, nil
}

func TestScriptStore_Commands(t *testing.T) {
	r := &recordingRunner{}
	s := NewScriptStore(r, []string{"bash", "cloud_mkdir.sh"}, []string{"bash", "cloud_upload.sh"})

	_, err := s.PrepareFolder(context.Background(), "thesis")
	require.NoError(t, err)
	_, err = s.Upload(context.Background(), "thesis/doc1.pdf", "/work/repo-thesis/doc1.pdf")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"bash", "cloud_mkdir.sh", "thesis"},
		{"bash", "cloud_upload.sh", "thesis/doc1.pdf", "/work/repo-thesis/doc1.pdf"},
	}, r.calls)
}

func TestScriptStore_FailureReturnsOutput(t *testing.T) {
	r := &recordingRunner{res: process.Result{ExitCode: 1, Stdout: "HTTP 507 Insufficient Storage"}}
	s := NewScriptStore(r, []string{"mkdir.sh"}, []string{"upload.sh"})

	out, err := s.Upload(context.Background(), "thesis/doc1.pdf", "doc1.pdf")
	require.Error(t, err)
	assert.Equal(t, "HTTP 507 Insufficient Storage", out)
	assert.True(t, errors.HasCategory(err, errors.CategoryStorage))
}

func TestLocalStore(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStore(base)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "doc1.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.5"), 0o600))

	_, err = s.PrepareFolder(context.Background(), "thesis")
	require.NoError(t, err)
	_, err = s.Upload(context.Background(), "thesis/doc1.pdf", src)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(base, "thesis", "doc1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.5", string(data))
}

func TestLocalStore_Rejections(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	out, err := s.Upload(context.Background(), "../escape.pdf", "whatever")
	require.Error(t, err)
	assert.Contains(t, out, "escapes")

	_, err = s.PrepareFolder(context.Background(), "thesis")
	require.NoError(t, err)
	out, err = s.Upload(context.Background(), "thesis/missing.pdf", filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, out, "missing.pdf")
}

// fakeS3 accepts bucket HEADs and object PUTs for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if parts[0] != f.bucket {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchBucket</Code><Message>The specified bucket does not exist</Message></Error>`)
		return
	}
	switch {
	case r.Method == http.MethodHead && len(parts) == 1:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && len(parts) == 2:
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.objects[parts[1]] = body
		f.mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3Store(t *testing.T, bucket string) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "artifacts", objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(context.Background(), config.S3Config{
		Endpoint:  srv.URL,
		Bucket:    bucket,
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	return store, fake
}

func TestS3Store_PrepareAndUpload(t *testing.T) {
	store, fake := newFakeS3Store(t, "artifacts")

	src := filepath.Join(t.TempDir(), "doc1.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.5 body"), 0o600))

	_, err := store.PrepareFolder(context.Background(), "thesis")
	require.NoError(t, err)
	_, err = store.Upload(context.Background(), "thesis/doc1.pdf", src)
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.objects, "thesis/")
	assert.Equal(t, "%PDF-1.5 body", string(fake.objects["thesis/doc1.pdf"]))
}

func TestS3Store_MissingBucket(t *testing.T) {
	store, _ := newFakeS3Store(t, "other")

	out, err := store.PrepareFolder(context.Background(), "thesis")
	require.Error(t, err)
	assert.NotEmpty(t, out)
	assert.True(t, errors.HasCategory(err, errors.CategoryStorage))
}

func TestNew_SelectsBackend(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{
		Backend: config.StorageBackendScript,
		Script:  config.ScriptConfig{Mkdir: []string{"true"}, Upload: []string{"true"}},
	}, &recordingRunner{})
	require.NoError(t, err)
	assert.IsType(t, &ScriptStore{}, s)

	s, err = New(context.Background(), config.StorageConfig{
		Backend: config.StorageBackendLocal,
		Local:   config.LocalConfig{Dir: t.TempDir()},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	client := s3.New(s3.Options{Region: "us-east-1", Credentials: credentials.NewStaticCredentialsProvider("a", "b", "")})
	assert.NotNil(t, NewS3StoreWithClient(client, "bucket"))
}
