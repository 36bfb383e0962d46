package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowershop/internal/apperr"
)

const testBaseURL = "http://localhost:8080"

func newTestManager(t *testing.T, opts ...Option) (*ImageManager, string) {
	t.Helper()
	root := t.TempDir()
	backend := NewLocalBackend(root)
	require.NoError(t, backend.Init())
	return NewImageManager(backend, NewResolver(testBaseURL, "/images"), opts...), root
}

func fileFor(t *testing.T, m *ImageManager, root, publicURL string) string {
	t.Helper()
	rel, ok := m.RelativePath(publicURL)
	require.True(t, ok, publicURL)
	return filepath.Join(root, filepath.FromSlash(rel))
}

func TestSaveFromUpload(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()
	data := []byte("fake png bytes")

	got, err := m.SaveFromUpload(ctx, bytes.NewReader(data), int64(len(data)), "rose.png", KindProduct, 3, RoleMain)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, testBaseURL+"/images/products/3/main/main_"), got)
	assert.True(t, strings.HasSuffix(got, ".png"), got)

	stored, err := os.ReadFile(fileFor(t, m, root, got))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestSaveFromUpload_UniqueNames(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a, err := m.SaveFromUpload(ctx, strings.NewReader("a"), 1, "same.jpg", KindBlog, 1, RoleAdditional)
	require.NoError(t, err)
	b, err := m.SaveFromUpload(ctx, strings.NewReader("b"), 1, "same.jpg", KindBlog, 1, RoleAdditional)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "/images/blogs/1/")
}

func TestSaveFromUpload_Rejects(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	_, err := m.SaveFromUpload(ctx, strings.NewReader(""), 0, "empty.jpg", KindProduct, 1, RoleAdditional)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), "empty upload: %v", err)

	_, err = m.SaveFromUpload(ctx, strings.NewReader("MZ"), 2, "virus.exe", KindProduct, 1, RoleAdditional)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), "bad extension: %v", err)

	entries, err := os.ReadDir(filepath.Join(root, "products"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveFromRemoteURL(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/old/tulip.webp":
			http.Redirect(w, r, "/new/tulip.webp", http.StatusFound)
		case "/new/tulip.webp", "/photo":
			_, _ = w.Write([]byte("remote image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m, root := newTestManager(t)
	ctx := context.Background()

	got, err := m.SaveFromRemoteURL(ctx, srv.URL+"/old/tulip.webp", KindProduct, 4, RoleAdditional)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, ".webp"), got)
	assert.Contains(t, gotUA, "Mozilla/5.0")

	stored, err := os.ReadFile(fileFor(t, m, root, got))
	require.NoError(t, err)
	assert.Equal(t, "remote image", string(stored))

	got, err = m.SaveFromRemoteURL(ctx, srv.URL+"/photo", KindBlog, 2, RoleMain)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, ".jpg"), got)
	assert.Contains(t, got, "/images/blogs/2/main/main_")
}

func TestSaveFromRemoteURL_ManagedPassthrough(t *testing.T) {
	m, _ := newTestManager(t)
	managed := testBaseURL + "/images/products/1/main/main_abc.jpg"

	got, err := m.SaveFromRemoteURL(context.Background(), managed, KindProduct, 1, RoleMain)
	require.NoError(t, err)
	assert.Equal(t, managed, got)
}

func TestSaveFromRemoteURL_ManagedFromOtherEntityIsCopied(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	data := []byte("rose")
	src, err := m.SaveFromUpload(ctx, bytes.NewReader(data), int64(len(data)), "rose.png", KindProduct, 1, RoleMain)
	require.NoError(t, err)

	tests := []struct {
		name   string
		kind   Kind
		id     uint
		role   Role
		prefix string
	}{
		{"other product main", KindProduct, 2, RoleMain, "/images/products/2/main/main_"},
		{"same product additional", KindProduct, 1, RoleAdditional, "/images/products/1/"},
		{"blog main", KindBlog, 1, RoleMain, "/images/blogs/1/main/main_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.SaveFromRemoteURL(ctx, src, tt.kind, tt.id, tt.role)
			require.NoError(t, err)
			assert.NotEqual(t, src, got)
			assert.Contains(t, got, tt.prefix)
			assert.True(t, strings.HasSuffix(got, ".png"), got)

			copied, err := os.ReadFile(fileFor(t, m, root, got))
			require.NoError(t, err)
			assert.Equal(t, data, copied)

			m.Delete(ctx, got)
			_, err = os.Stat(fileFor(t, m, root, src))
			assert.NoError(t, err, "source file must survive")
		})
	}
}

func TestSaveFromRemoteURL_ManagedMissing(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.SaveFromRemoteURL(context.Background(), testBaseURL+"/images/products/1/main/main_gone.jpg", KindProduct, 2, RoleMain)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), "%v", err)
}

func TestSaveFromRemoteURL_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty.jpg":
			w.WriteHeader(http.StatusOK)
		case "/big.jpg":
			_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
		case "/slow.jpg":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer srv.Close()

	m, root := newTestManager(t, WithMaxImageBytes(32), WithFetchTimeout(50*time.Millisecond))
	ctx := context.Background()

	tests := []struct {
		name string
		url  string
		kind apperr.Kind
	}{
		{"blank", "  ", apperr.KindInvalidArgument},
		{"not http", "ftp://example.com/a.jpg", apperr.KindInvalidArgument},
		{"status", srv.URL + "/missing.jpg", apperr.KindInternal},
		{"empty body", srv.URL + "/empty.jpg", apperr.KindInternal},
		{"too large", srv.URL + "/big.jpg", apperr.KindInternal},
		{"timeout", srv.URL + "/slow.jpg", apperr.KindInternal},
		{"unreachable", "http://127.0.0.1:1/a.jpg", apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SaveFromRemoteURL(ctx, tt.url, KindProduct, 8, RoleMain)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	// ни одного недописанного файла не осталось
	_, err := os.Stat(filepath.Join(root, "products", "8", "main"))
	if err == nil {
		entries, err := os.ReadDir(filepath.Join(root, "products", "8", "main"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	}
}

func TestDelete(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	got, err := m.SaveFromUpload(ctx, strings.NewReader("x"), 1, "a.jpg", KindProduct, 1, RoleAdditional)
	require.NoError(t, err)
	path := fileFor(t, m, root, got)

	m.Delete(ctx, got)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// повторное удаление и пустой URL — без паники и ошибок
	m.Delete(ctx, got)
	m.Delete(ctx, "")
}

func TestDelete_ExternalIsNoop(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	outside := filepath.Join(filepath.Dir(root), "keep.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))
	t.Cleanup(func() { _ = os.Remove(outside) })

	inside := filepath.Join(root, "products", "keep.jpg")
	require.NoError(t, os.WriteFile(inside, []byte("keep"), 0o644))

	m.Delete(ctx, "https://cdn.example.com/images/products/keep.jpg")
	m.Delete(ctx, testBaseURL+"/images/../keep.jpg")

	_, err := os.Stat(outside)
	assert.NoError(t, err)
	_, err = os.Stat(inside)
	assert.NoError(t, err)
}

func TestLocalBackend_PathEscapes(t *testing.T) {
	b := NewLocalBackend(t.TempDir())

	for _, key := range []string{"..", "../x.jpg", "products/../../x.jpg"} {
		_, err := b.Path(key)
		assert.ErrorIs(t, err, ErrOutsideRoot, key)
	}

	p, err := b.Path("/products/1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.Root, "products", "1", "a.jpg"), p)
}
