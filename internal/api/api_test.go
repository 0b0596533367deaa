package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/othala/internal/consolidate"
	"github.com/starford/othala/internal/docfolder"
	"github.com/starford/othala/internal/docservice"
	"github.com/starford/othala/internal/folderstore"
	"github.com/starford/othala/internal/index"
)

// testEnv sets up a temp library, SQLite DB, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*docservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithLibrary(t, authToken != "", authToken, nil)
	return svc, router
}

func testEnvWithLibrary(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*docservice.Service, http.Handler, string) {
	t.Helper()

	libraryDir := t.TempDir()
	store, err := folderstore.New(libraryDir)
	if err != nil {
		t.Fatalf("folderstore.New: %v", err)
	}

	dbFile, err := os.CreateTemp("", "othala-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := docservice.NewService(docfolder.NewManager(store), db, consolidate.Options{})
	router := NewRouter(svc, authEnabled, authToken, sseHandler)
	return svc, router, libraryDir
}

func createDocument(t *testing.T, router http.Handler, title, category, content string) DocumentDetail {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"title": title, "category": category, "content": content})
	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	return doc
}

func TestCreateAndGetDocument(t *testing.T) {
	_, router := testEnv(t, "")

	created := createDocument(t, router, "API Doc", "Development", "# API Doc\nBody")
	if created.Path != "Development/API-Doc" {
		t.Errorf("path = %q", created.Path)
	}

	req := httptest.NewRequest(http.MethodGet, "/documents/Development/API-Doc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Title != "API Doc" || doc.Category != "Development" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestGetDocument_EncodedSlash(t *testing.T) {
	_, router := testEnv(t, "")
	createDocument(t, router, "Doc", "Dev", "x")

	req := httptest.NewRequest(http.MethodGet, "/documents/Dev%2FDoc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("encoded slash get = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")
	createDocument(t, router, "Dup", "Cat", "a")

	body, _ := json.Marshal(map[string]string{"title": "Dup", "category": "Cat", "content": "b"})
	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateMissingFields(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]string{"title": "NoCategory"})
	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("create without category = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	created := createDocument(t, router, "Lock", "Cat", "v1")

	// Update with correct checksum.
	updateBody, _ := json.Marshal(map[string]string{"content": "v2"})
	req := httptest.NewRequest(http.MethodPut, "/documents/"+created.Path, bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	// Update with stale checksum → 409.
	req = httptest.NewRequest(http.MethodPut, "/documents/"+created.Path, bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum) // stale now
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	_, router := testEnv(t, "")
	created := createDocument(t, router, "NoLock", "Cat", "v1")

	updateBody, _ := json.Marshal(map[string]string{"content": "v2"})
	req := httptest.NewRequest(http.MethodPut, "/documents/"+created.Path, bytes.NewReader(updateBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	_, router := testEnv(t, "")
	created := createDocument(t, router, "Bye", "Cat", "gone")

	req := httptest.NewRequest(http.MethodDelete, "/documents/"+created.Path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents/"+created.Path, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestMoveDocument(t *testing.T) {
	_, router := testEnv(t, "")
	created := createDocument(t, router, "Doc", "CatA", "body")

	body, _ := json.Marshal(map[string]string{"source": created.Path, "target": "CatB/Doc"})
	req := httptest.NewRequest(http.MethodPost, "/documents/move", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("move = %d, body = %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/documents/CatB/Doc", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get at target = %d", w.Code)
	}
}

func TestMoveDocument_Conflict(t *testing.T) {
	_, router := testEnv(t, "")
	src := createDocument(t, router, "Src", "Cat", "x")
	dst := createDocument(t, router, "Dst", "Cat", "y")

	body, _ := json.Marshal(map[string]string{"source": src.Path, "target": dst.Path})
	req := httptest.NewRequest(http.MethodPost, "/documents/move", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("move onto existing = %d, want 409", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	_, router := testEnv(t, "")
	createDocument(t, router, "A", "Dev", "# A")
	createDocument(t, router, "B", "Dev", "# B")

	req := httptest.NewRequest(http.MethodGet, "/documents?limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	docs := resp["documents"].([]any)
	if len(docs) != 2 {
		t.Errorf("len(documents) = %d, want 2", len(docs))
	}
}

func TestMetadataEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	created := createDocument(t, router, "Doc", "Dev", "body")

	req := httptest.NewRequest(http.MethodGet, "/metadata/"+created.Path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metadata = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["category"] != "Dev" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createDocument(t, router, "Find", "Cat", "uniquetoken here")

	req := httptest.NewRequest(http.MethodGet, "/search?q=uniquetoken", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	results := resp["results"].([]any)
	if len(results) != 1 {
		t.Errorf("search results = %d, want 1", len(results))
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestConsolidateEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	a := createDocument(t, router, "A", "Cat", "# A\n\ncontent a")
	b := createDocument(t, router, "B", "Cat", "# B\n\ncontent b")

	body, _ := json.Marshal(map[string]any{
		"document_folders": []string{a.Path, b.Path},
		"topic":            "Merged Guide",
		"strategy":         "simple_merge",
	})
	req := httptest.NewRequest(http.MethodPost, "/consolidate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("consolidate = %d, body = %s", w.Code, w.Body.String())
	}
	var res ConsolidateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Success || res.ConsolidatedFolder != "Consolidated/Merged-Guide" {
		t.Errorf("result = %+v", res)
	}
}

// recordingSSE serves the event stream endpoint and records published
// document events.
type recordingSSE struct {
	http.Handler
	kinds []string
	paths []string
}

func (r *recordingSSE) PublishDocumentEvent(kind, path string) {
	r.kinds = append(r.kinds, kind)
	r.paths = append(r.paths, path)
}

func TestConsolidateEndpoint_PublishesEvent(t *testing.T) {
	rec := &recordingSSE{Handler: sseStub()}
	_, router, _ := testEnvWithLibrary(t, false, "", rec)
	a := createDocument(t, router, "A", "Cat", "content a")

	body, _ := json.Marshal(map[string]any{
		"document_folders": []string{a.Path},
		"topic":            "Merged Guide",
	})
	req := httptest.NewRequest(http.MethodPost, "/consolidate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("consolidate = %d, body = %s", w.Code, w.Body.String())
	}
	if len(rec.kinds) != 1 || rec.kinds[0] != "consolidated" {
		t.Fatalf("published kinds = %v, want one consolidated event", rec.kinds)
	}
	if rec.paths[0] != "Consolidated/Merged-Guide" {
		t.Errorf("published path = %q", rec.paths[0])
	}
}

func TestConsolidateEndpoint_DryRunPublishesNothing(t *testing.T) {
	rec := &recordingSSE{Handler: sseStub()}
	_, router, _ := testEnvWithLibrary(t, false, "", rec)
	a := createDocument(t, router, "A", "Cat", "content a")

	body, _ := json.Marshal(map[string]any{
		"document_folders": []string{a.Path},
		"topic":            "Preview",
		"dry_run":          true,
	})
	req := httptest.NewRequest(http.MethodPost, "/consolidate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("dry-run consolidate = %d", w.Code)
	}
	if len(rec.kinds) != 0 {
		t.Errorf("dry run published %v", rec.kinds)
	}
}

func TestConsolidateEndpoint_DryRun(t *testing.T) {
	_, router := testEnv(t, "")
	a := createDocument(t, router, "A", "Cat", "content")

	body, _ := json.Marshal(map[string]any{
		"document_folders": []string{a.Path},
		"topic":            "Preview",
		"dry_run":          true,
	})
	req := httptest.NewRequest(http.MethodPost, "/consolidate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("dry-run consolidate = %d, body = %s", w.Code, w.Body.String())
	}
	var res ConsolidateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.ConsolidatedFolder != "" {
		t.Errorf("dry run materialized %q", res.ConsolidatedFolder)
	}
	if res.MergedContent == "" {
		t.Error("dry run returned no content")
	}
}

func TestConsolidateEndpoint_EmptyFolders(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]any{"document_folders": []string{}, "topic": "T"})
	req := httptest.NewRequest(http.MethodPost, "/consolidate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty folders = %d, want 400", w.Code)
	}
}

func TestConsolidateEndpoint_NoContent(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]any{"document_folders": []string{"No/Such"}, "topic": "T"})
	req := httptest.NewRequest(http.MethodPost, "/consolidate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("no usable sources = %d, want 422", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]string{"title": "Auth", "category": "Cat", "content": "test"})
	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnvWithLibrary(t, true, "secret", sseStub())

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnvWithLibrary(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// Attachment tests.

func uploadFile(t *testing.T, router http.Handler, folder, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("folder", folder)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeAttachment(t *testing.T) {
	_, router, libraryDir := testEnvWithLibrary(t, false, "", nil)
	created := createDocument(t, router, "Doc", "Cat", "body")

	w := uploadFile(t, router, created.Path, "test.png", []byte("fake-png-data"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp AttachmentUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Filename != "test.png" || resp.Markdown != "![test.png](images/test.png)" {
		t.Errorf("resp = %+v", resp)
	}

	// Verify file on disk inside the folder's images directory.
	data, err := os.ReadFile(filepath.Join(libraryDir, "Cat", "Doc", "images", "test.png"))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if string(data) != "fake-png-data" {
		t.Error("content mismatch")
	}

	// Serve it back.
	req := httptest.NewRequest(http.MethodGet, "/attachments/Cat/Doc/images/test.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("serve = %d", rec.Code)
	}
	if rec.Body.String() != "fake-png-data" {
		t.Errorf("served content = %q", rec.Body.String())
	}
}

func TestUploadAttachment_UnknownFolder(t *testing.T) {
	_, router := testEnv(t, "")

	w := uploadFile(t, router, "No/Such", "x.png", []byte("data"))
	if w.Code != http.StatusNotFound {
		t.Errorf("upload to missing folder = %d, want 404", w.Code)
	}
}

func TestUploadAttachment_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")
	created := createDocument(t, router, "Doc", "Cat", "body")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("folder", created.Path)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file field = %d, want 400", w.Code)
	}
}

func TestServeAttachment_NotAnAttachmentPath(t *testing.T) {
	_, router := testEnv(t, "")
	created := createDocument(t, router, "Doc", "Cat", "body")

	// Path not under images/ must be rejected, even for a real folder.
	req := httptest.NewRequest(http.MethodGet, "/attachments/"+created.Path+"/Doc.md", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusOK {
		t.Errorf("content file served through attachments = %d", w.Code)
	}
}

func TestServeAttachment_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	created := createDocument(t, router, "Doc", "Cat", "body")

	req := httptest.NewRequest(http.MethodGet, "/attachments/"+created.Path+"/images/nope.png", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing attachment = %d, want 404", w.Code)
	}
}
