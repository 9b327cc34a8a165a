package parking

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SmartParkVision/SmartParkVision/internal/common/logger"
	"github.com/SmartParkVision/SmartParkVision/internal/common/middleware"
	"github.com/SmartParkVision/SmartParkVision/internal/detect"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxUploadBytes = 10 << 20

var validate = validator.New()

// Handler 停车引擎的 HTTP 接入层。
type Handler struct {
	svc       *Service
	brands    detect.BrandDetector
	texts     detect.TextDetector
	limiter   middleware.RateLimiter
	uploadDir string
	log       logger.Logger
}

func NewHandler(svc *Service, brands detect.BrandDetector, texts detect.TextDetector,
	limiter middleware.RateLimiter, uploadDir string, log logger.Logger) *Handler {
	return &Handler{
		svc:       svc,
		brands:    brands,
		texts:     texts,
		limiter:   limiter,
		uploadDir: uploadDir,
		log:       log,
	}
}

// Register 注册全部业务路由。
func (h *Handler) Register(r *mux.Router) error {
	if h == nil || h.svc == nil {
		return fmt.Errorf("handler not initialized")
	}

	r.HandleFunc("/api/process", h.handleProcess).Methods(http.MethodPost)
	r.HandleFunc("/api/exit", h.handleExit).Methods(http.MethodPost)
	r.HandleFunc("/api/status", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/recent", h.handleRecent).Methods(http.MethodGet)
	r.HandleFunc("/api/all-vehicles", h.handleAllVehicles).Methods(http.MethodGet)
	r.HandleFunc("/api/vehicle/{id:[0-9]+}", h.handleGetVehicle).Methods(http.MethodGet)
	r.HandleFunc("/api/vehicle/{id:[0-9]+}", h.handleDeleteVehicle).Methods(http.MethodDelete)
	r.HandleFunc("/api/stats", h.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/clear-history", h.handleClearHistory).Methods(http.MethodDelete)
	r.HandleFunc("/api/reset-system", h.handleResetSystem).Methods(http.MethodPost)
	r.HandleFunc("/api/export-data", h.handleExport).Methods(http.MethodGet)
	return nil
}

// processRequest JSON 入场请求（识别结果由调用方预先产出）。
type processRequest struct {
	Brand           string  `json:"brand"`
	BrandConfidence float64 `json:"brand_confidence"`
	Texts           []struct {
		Text       string  `json:"text" validate:"required"`
		Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	} `json:"texts" validate:"dive"`
	ImagePath string `json:"image_path"`
}

// exitRequest 离场请求。
type exitRequest struct {
	LicensePlate string `json:"license_plate" validate:"required"`
}

// handleProcess 入场：multipart 上传图片走识别服务，
// JSON 请求体则直接携带识别结果。
func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(r.Context()) {
		respondError(w, http.StatusTooManyRequests, "rate_limited", "too many entry requests")
		return
	}

	var in IntakeInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		input, ok := h.intakeFromUpload(w, r)
		if !ok {
			return
		}
		in = input
	} else {
		var req processRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body")
			return
		}
		if err := validate.StructCtx(r.Context(), req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_payload", err.Error())
			return
		}
		in = IntakeInput{
			Brand:           req.Brand,
			BrandConfidence: req.BrandConfidence,
			ImagePath:       req.ImagePath,
		}
		for _, t := range req.Texts {
			in.Texts = append(in.Texts, OCRText{Text: t.Text, Confidence: t.Confidence})
		}
	}
	if in.Brand == "" {
		in.Brand = "unknown"
	}

	res, err := h.svc.Intake(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"vehicle":       res.Vehicle,
		"slot":          res.Slot,
		"matched_model": res.MatchedModel,
		"match_score":   res.MatchScore,
	})
}

// intakeFromUpload 保存上传图片并调用识别服务。
// 识别服务已在客户端内部降级（unknown / 空列表），这里不会因识别失败中断。
func (h *Handler) intakeFromUpload(w http.ResponseWriter, r *http.Request) (IntakeInput, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid multipart body")
		return IntakeInput{}, false
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "image file is required")
		return IntakeInput{}, false
	}
	defer file.Close()

	imagePath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		if h.log != nil {
			h.log.Errorf("failed to save upload: %v", err)
		}
		respondError(w, http.StatusInternalServerError, "internal", "failed to save uploaded image")
		return IntakeInput{}, false
	}

	in := IntakeInput{ImagePath: imagePath, Brand: "unknown"}
	if h.brands != nil {
		brand := h.brands.DetectBrand(r.Context(), imagePath)
		in.Brand = brand.Brand
		in.BrandConfidence = brand.Confidence
	}
	if h.texts != nil {
		for _, t := range h.texts.DetectTexts(r.Context(), imagePath) {
			in.Texts = append(in.Texts, OCRText{Text: t.Text, Confidence: t.Confidence})
		}
	}
	return in, true
}

func (h *Handler) saveUpload(file io.Reader, original string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	ext := filepath.Ext(original)
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(h.uploadDir, uuid.NewString()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (h *Handler) handleExit(w http.ResponseWriter, r *http.Request) {
	var req exitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body")
		return
	}
	if err := validate.StructCtx(r.Context(), req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	v, err := h.svc.Exit(r.Context(), req.LicensePlate)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_payload", "limit must be a positive integer")
			return
		}
		limit = n
	}
	vehicles, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vehicles)
}

func (h *Handler) handleAllVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.svc.AllParked(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vehicles)
}

func (h *Handler) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid vehicle id")
		return
	}
	v, err := h.svc.Get(r.Context(), uint(id))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *Handler) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid vehicle id")
		return
	}
	if err := h.svc.Delete(r.Context(), uint(id)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context()); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

func (h *Handler) handleResetSystem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reset": true})
}

// handleExport 全量导出：默认 JSON，format=xlsx 返回 Excel 工作簿。
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Export(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		data, err := BuildSnapshotWorkbook(snap)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", workbookFileName(snap.ExportTime)))
		_, _ = w.Write(data)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// respondServiceError 把引擎错误映射为 HTTP 状态码。
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	kind := ErrorKind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrParkingFull), errors.Is(err, ErrSlotOccupied):
		status = http.StatusConflict
	case errors.Is(err, ErrVehicleNotFound), errors.Is(err, ErrSlotNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		if h.log != nil {
			h.log.Errorf("request failed: %v", err)
		}
		respondError(w, status, kind, "internal server error")
		return
	}
	respondError(w, status, kind, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}
