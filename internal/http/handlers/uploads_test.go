package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/geocoder89/sheetlens/internal/auth"
	"github.com/geocoder89/sheetlens/internal/cache"
	"github.com/geocoder89/sheetlens/internal/domain/upload"
	"github.com/geocoder89/sheetlens/internal/http/handlers"
	"github.com/geocoder89/sheetlens/internal/http/middlewares"
	"github.com/geocoder89/sheetlens/internal/sheet"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Fake implementation of handlers.UploadStore

type fakeUploadStore struct {
	createFn func(ctx context.Context, u upload.Upload) error
	listFn   func(ctx context.Context, userID string) ([]upload.Summary, error)
	getFn    func(ctx context.Context, id string) (upload.Upload, error)
}

func (f *fakeUploadStore) Create(ctx context.Context, u upload.Upload) error {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}

	return nil
}

func (f *fakeUploadStore) ListByUser(ctx context.Context, userID string) ([]upload.Summary, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID)
	}

	return nil, nil
}

func (f *fakeUploadStore) GetByID(ctx context.Context, id string) (upload.Upload, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return upload.Upload{}, upload.ErrNotFound
}

func uploadsRouter(store handlers.UploadStore, c *cache.Cache, jwt *auth.Manager, maxBytes int64) *gin.Engine {
	h := handlers.NewUploadsHandler(store, c, nil, maxBytes)

	authMW := middlewares.NewAuthMiddleware(jwt)

	r := gin.New()

	g := r.Group("/", authMW.RequireAuth())
	g.POST("/upload", h.Upload)
	g.GET("/upload/history", h.History)
	g.GET("/upload/:id", h.GetByID)

	return r
}

// sampleWorkbook serializes a two-column sheet: Label/Value headers
// plus three data rows.
func sampleWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()

	defer func() {
		_ = f.Close()
	}()

	sheetName := f.GetSheetName(0)

	cells := map[string]any{
		"A1": "Label", "B1": "Value",
		"A2": "A", "B2": 1,
		"A3": "B", "B3": 2,
		"A4": "C", "B4": 3,
	}

	for ref, val := range cells {
		if err := f.SetCellValue(sheetName, ref, val); err != nil {
			t.Fatalf("set cell %s: %v", ref, err)
		}
	}

	buf, err := f.WriteToBuffer()

	if err != nil {
		t.Fatalf("serialize workbook: %v", err)
	}

	return buf.Bytes()
}

// multipartUpload builds a multipart body with a single excelFile part
// carrying an explicit part Content-Type.
func multipartUpload(t *testing.T, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="excelFile"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)

	if err != nil {
		t.Fatalf("create part: %v", err)
	}

	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	return body, mw.FormDataContentType()
}

func doUpload(t *testing.T, r *gin.Engine, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestUpload_IngestsWorkbook(t *testing.T) {
	jwt := testJWT()
	userID := uuid.NewString()

	var created upload.Upload

	store := &fakeUploadStore{
		createFn: func(_ context.Context, u upload.Upload) error {
			created = u
			return nil
		},
	}

	r := uploadsRouter(store, nil, jwt, 10<<20)

	token, err := jwt.GenerateToken(userID, false)

	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	body, contentType := multipartUpload(t, "report.xlsx", sheet.MimeXLSX, sampleWorkbook(t))

	w := doUpload(t, r, token, body, contentType)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201, body=%s", w.Code, w.Body.String())
	}

	if created.UserID != userID {
		t.Fatalf("upload bound to %q, want %q", created.UserID, userID)
	}

	if created.FileName != "report.xlsx" {
		t.Fatalf("got file name %q", created.FileName)
	}

	if len(created.Columns) != 2 || created.Columns[0] != "Label" || created.Columns[1] != "Value" {
		t.Fatalf("unexpected columns: %v", created.Columns)
	}

	if len(created.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(created.Rows))
	}

	var resp struct {
		FileID      string       `json:"fileId"`
		FileName    string       `json:"fileName"`
		DataPreview []upload.Row `json:"dataPreview"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if resp.FileID != created.ID {
		t.Fatalf("response fileId %q does not match stored id %q", resp.FileID, created.ID)
	}

	if len(resp.DataPreview) != 3 {
		t.Fatalf("got %d preview rows, want 3", len(resp.DataPreview))
	}

	if resp.DataPreview[0]["Label"] != "A" || resp.DataPreview[0]["Value"] != float64(1) {
		t.Fatalf("unexpected first preview row: %v", resp.DataPreview[0])
	}
}

func TestUpload_Rejections(t *testing.T) {
	jwt := testJWT()

	token, err := jwt.GenerateToken(uuid.NewString(), false)

	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	t.Run("unsupported_media_type", func(t *testing.T) {
		storeCalled := false

		store := &fakeUploadStore{
			createFn: func(_ context.Context, _ upload.Upload) error {
				storeCalled = true
				return nil
			},
		}

		r := uploadsRouter(store, nil, jwt, 10<<20)

		body, contentType := multipartUpload(t, "data.csv", "text/csv", []byte("a,b\n1,2\n"))

		w := doUpload(t, r, token, body, contentType)

		if w.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("got status %d, want 415, body=%s", w.Code, w.Body.String())
		}

		if storeCalled {
			t.Fatalf("rejected upload must not be persisted")
		}
	})

	t.Run("too_large", func(t *testing.T) {
		r := uploadsRouter(&fakeUploadStore{}, nil, jwt, 16)

		body, contentType := multipartUpload(t, "report.xlsx", sheet.MimeXLSX, sampleWorkbook(t))

		w := doUpload(t, r, token, body, contentType)

		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("got status %d, want 413, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("malformed_workbook", func(t *testing.T) {
		r := uploadsRouter(&fakeUploadStore{}, nil, jwt, 10<<20)

		body, contentType := multipartUpload(t, "report.xlsx", sheet.MimeXLSX, []byte("not a workbook"))

		w := doUpload(t, r, token, body, contentType)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
		}

		var resp errorResponseBody

		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}

		if resp.Error.Code != "malformed_workbook" {
			t.Fatalf("got code %q, want malformed_workbook", resp.Error.Code)
		}
	})

	t.Run("missing_file", func(t *testing.T) {
		r := uploadsRouter(&fakeUploadStore{}, nil, jwt, 10<<20)

		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)

		if err := mw.WriteField("note", "no file here"); err != nil {
			t.Fatalf("write field: %v", err)
		}

		if err := mw.Close(); err != nil {
			t.Fatalf("close writer: %v", err)
		}

		w := doUpload(t, r, token, body, mw.FormDataContentType())

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("no_token", func(t *testing.T) {
		r := uploadsRouter(&fakeUploadStore{}, nil, jwt, 10<<20)

		body, contentType := multipartUpload(t, "report.xlsx", sheet.MimeXLSX, sampleWorkbook(t))

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
		}
	})
}

func TestHistory_ServesCachedListing(t *testing.T) {
	jwt := testJWT()
	userID := uuid.NewString()

	listCalls := 0

	summaries := []upload.Summary{
		{ID: uuid.NewString(), FileName: "latest.xlsx", UploadDate: time.Now().UTC(), DataSize: 12},
		{ID: uuid.NewString(), FileName: "older.xlsx", UploadDate: time.Now().UTC().Add(-time.Hour), DataSize: 3},
	}

	store := &fakeUploadStore{
		listFn: func(_ context.Context, id string) ([]upload.Summary, error) {
			listCalls++

			if id != userID {
				t.Fatalf("listed uploads for %q, want %q", id, userID)
			}

			return summaries, nil
		},
	}

	r := uploadsRouter(store, cache.New(time.Minute), jwt, 10<<20)

	token, err := jwt.GenerateToken(userID, false)

	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/upload/history", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		return w
	}

	first := get()

	if first.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", first.Code, first.Body.String())
	}

	var got []upload.Summary

	if err := json.Unmarshal(first.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if len(got) != 2 || got[0].FileName != "latest.xlsx" {
		t.Fatalf("unexpected listing: %v", got)
	}

	second := get()

	if second.Code != http.StatusOK {
		t.Fatalf("got status %d on cached read, body=%s", second.Code, second.Body.String())
	}

	if listCalls != 1 {
		t.Fatalf("store listed %d times, want 1 (second read served from cache)", listCalls)
	}
}

func TestGetUploadByID(t *testing.T) {
	jwt := testJWT()
	ownerID := uuid.NewString()

	stored := upload.Upload{
		ID:       uuid.NewString(),
		UserID:   ownerID,
		FileName: "report.xlsx",
		Columns:  []string{"Label", "Value"},
		Rows: []upload.Row{
			{"Label": "A", "Value": float64(1)},
		},
		CreatedAt: time.Now().UTC(),
	}

	store := &fakeUploadStore{
		getFn: func(_ context.Context, id string) (upload.Upload, error) {
			if id == stored.ID {
				return stored, nil
			}

			return upload.Upload{}, upload.ErrNotFound
		},
	}

	r := uploadsRouter(store, nil, jwt, 10<<20)

	get := func(userID, uploadID string) *httptest.ResponseRecorder {
		token, err := jwt.GenerateToken(userID, false)

		if err != nil {
			t.Fatalf("generate token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/upload/"+uploadID, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		return w
	}

	t.Run("owner_sees_rows_and_suggestion", func(t *testing.T) {
		w := get(ownerID, stored.ID)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
		}

		var resp struct {
			ID         string       `json:"id"`
			FileName   string       `json:"fileName"`
			Data       []upload.Row `json:"data"`
			Suggestion struct {
				ChartType string `json:"chartType"`
				XAxis     string `json:"xAxis"`
				YAxis     string `json:"yAxis"`
			} `json:"suggestion"`
		}

		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}

		if resp.ID != stored.ID || len(resp.Data) != 1 {
			t.Fatalf("unexpected response: %+v", resp)
		}

		if resp.Suggestion.ChartType != "Bar Chart" || resp.Suggestion.XAxis != "Label" || resp.Suggestion.YAxis != "Value" {
			t.Fatalf("unexpected suggestion: %+v", resp.Suggestion)
		}
	})

	t.Run("non_owner_is_forbidden", func(t *testing.T) {
		w := get(uuid.NewString(), stored.ID)

		if w.Code != http.StatusForbidden {
			t.Fatalf("got status %d, want 403, body=%s", w.Code, w.Body.String())
		}

		if bytes.Contains(w.Body.Bytes(), []byte(`"data"`)) {
			t.Fatalf("rows leaked to a non-owner")
		}
	})

	t.Run("unknown_id_is_not_found", func(t *testing.T) {
		w := get(ownerID, uuid.NewString())

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
		}
	})
}
