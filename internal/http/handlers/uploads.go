package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/sheetlens/internal/analytics"
	"github.com/geocoder89/sheetlens/internal/cache"
	"github.com/geocoder89/sheetlens/internal/config"
	"github.com/geocoder89/sheetlens/internal/domain/upload"
	"github.com/geocoder89/sheetlens/internal/http/middlewares"
	"github.com/geocoder89/sheetlens/internal/observability"
	"github.com/geocoder89/sheetlens/internal/sheet"
	"github.com/gin-gonic/gin"
)

const (
	uploadFormField = "excelFile"
	previewRows     = 5
)

type UploadStore interface {
	Create(ctx context.Context, u upload.Upload) error
	ListByUser(ctx context.Context, userID string) ([]upload.Summary, error)
	GetByID(ctx context.Context, id string) (upload.Upload, error)
}

type UploadsHandler struct {
	store    UploadStore
	cache    *cache.Cache
	prom     *observability.Prom
	maxBytes int64
}

func NewUploadsHandler(store UploadStore, c *cache.Cache, prom *observability.Prom, maxBytes int64) *UploadsHandler {
	return &UploadsHandler{
		store:    store,
		cache:    c,
		prom:     prom,
		maxBytes: maxBytes,
	}
}

func (h *UploadsHandler) rejected(reason string) {
	if h.prom != nil {
		h.prom.UploadsRejected.WithLabelValues(reason).Inc()
	}
}

// Upload ingests one workbook: MIME and size gates first, then decode,
// then a single insert bound to the requesting user. Nothing is
// persisted when any gate fails.
func (h *UploadsHandler) Upload(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	fileHeader, err := ctx.FormFile(uploadFormField)

	if err != nil {
		var maxBytesErr *http.MaxBytesError

		if errors.As(err, &maxBytesErr) {
			h.rejected("too_large")
			RespondPayloadTooLarge(ctx, "File exceeds the upload size limit.")
			return
		}

		h.rejected("missing_file")
		RespondBadRequest(ctx, "No file uploaded", nil)
		return
	}

	if fileHeader.Size > h.maxBytes {
		h.rejected("too_large")
		RespondPayloadTooLarge(ctx, "File exceeds the upload size limit.")
		return
	}

	if !sheet.AcceptedMime(fileHeader.Header.Get("Content-Type")) {
		h.rejected("media_type")
		RespondUnsupportedMediaType(ctx, "Only .xlsx and .xls files are allowed.")
		return
	}

	f, err := fileHeader.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read uploaded file")
		return
	}

	defer func() {
		_ = f.Close()
	}()

	columns, rows, err := sheet.Decode(f)

	if err != nil {
		h.rejected("malformed")
		RespondError(ctx, http.StatusBadRequest, "malformed_workbook", "Could not parse workbook.", nil)
		return
	}

	u := upload.New(userID, fileHeader.Filename, columns, rows)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err = h.store.Create(cctx, u)

	if err != nil {
		RespondInternal(ctx, "Could not store upload")
		return
	}

	if h.prom != nil {
		h.prom.WorkbooksIngested.Inc()
		h.prom.RowsDecoded.Add(float64(len(rows)))
	}

	// a fresh upload makes any cached history stale
	if h.cache != nil {
		h.cache.Delete(cache.HistoryKey(userID))
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":     "File uploaded and processed successfully",
		"fileId":      u.ID,
		"fileName":    u.FileName,
		"dataPreview": u.Preview(previewRows),
	})
}

func (h *UploadsHandler) History(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	if h.cache != nil {
		cached, hit := h.cache.Get(cache.HistoryKey(userID))

		if hit {
			summaries, ok := cached.([]upload.Summary)

			if ok {
				ctx.JSON(http.StatusOK, summaries)
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	summaries, err := h.store.ListByUser(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list uploads")
		return
	}

	if h.cache != nil {
		h.cache.Set(cache.HistoryKey(userID), summaries)
	}

	ctx.JSON(http.StatusOK, summaries)
}

func (h *UploadsHandler) GetByID(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, upload.ErrNotFound) {
			RespondNotFound(ctx, "File not found")
			return
		}

		RespondInternal(ctx, "Could not fetch upload")
		return
	}

	// existence is checked before ownership: a non-owner learns the id
	// exists but never sees the rows
	if u.UserID != userID {
		RespondForbidden(ctx, "Not authorized to view this file")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"id":         u.ID,
		"fileName":   u.FileName,
		"uploadDate": u.CreatedAt,
		"data":       u.Rows,
		"suggestion": analytics.Suggest(u.Columns),
	})
}
