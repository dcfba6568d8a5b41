package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/m-orlov/freelance-market/internal/dto"
	"github.com/m-orlov/freelance-market/internal/http/handlers/common"
	"github.com/m-orlov/freelance-market/internal/models"
	"github.com/m-orlov/freelance-market/internal/service"
	"github.com/m-orlov/freelance-market/internal/storage"
)

// Типы файлов, допустимые как доказательства по спору.
var allowedEvidenceMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
	"application/zip": true,
}

type DisputeHandler struct {
	disputes *service.DisputeService
	storage  *storage.EvidenceStorage
}

func NewDisputeHandler(disputes *service.DisputeService, storage *storage.EvidenceStorage) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, storage: storage}
}

// Open POST /projects/:id/disputes
func (h *DisputeHandler) Open(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "type и description обязательны")
		return
	}

	dispute, err := h.disputes.Open(c.Request.Context(), projectID, userID, service.OpenDisputeInput{
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// Get GET /disputes/:id
func (h *DisputeHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	role, _ := common.CurrentUserRole(c)

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.Get(c.Request.Context(), disputeID, userID, role)
	if err != nil {
		common.Fail(c, err)
		return
	}

	messages, err := h.disputes.ListMessages(c.Request.Context(), disputeID, userID, role)
	if err != nil {
		common.Fail(c, err)
		return
	}
	evidence, err := h.disputes.ListEvidence(c.Request.Context(), disputeID, userID, role)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DisputeResponse{
		Dispute:  dispute,
		Messages: messages,
		Evidence: evidence,
	})
}

// ListMine GET /disputes/my
func (h *DisputeHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.ListMine(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}

// ListOpen GET /admin/disputes (только администратор)
func (h *DisputeHandler) ListOpen(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.ListOpen(c.Request.Context(), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}

// TakeInReview POST /admin/disputes/:id/review (только администратор)
func (h *DisputeHandler) TakeInReview(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.disputes.TakeInReview(c.Request.Context(), disputeID, adminID); err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "спор принят в рассмотрение"})
}

// Resolve POST /admin/disputes/:id/resolve (только администратор)
func (h *DisputeHandler) Resolve(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "winner и resolution обязательны")
		return
	}

	dispute, err := h.disputes.Resolve(c.Request.Context(), disputeID, adminID, models.DisputeResolutionInput{
		Winner:       req.Winner,
		Resolution:   req.Resolution,
		RefundAmount: req.RefundAmount,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// Close POST /disputes/:id/close
func (h *DisputeHandler) Close(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	role, _ := common.CurrentUserRole(c)

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.Close(c.Request.Context(), disputeID, userID, role)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// AddMessage POST /disputes/:id/messages
func (h *DisputeHandler) AddMessage(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	role, _ := common.CurrentUserRole(c)

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.DisputeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "content обязателен")
		return
	}

	message, err := h.disputes.AddMessage(c.Request.Context(), disputeID, userID, role, req.Content)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// UploadEvidence POST /disputes/:id/evidence
// Тип файла проверяется по магическим байтам, не по расширению.
func (h *DisputeHandler) UploadEvidence(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	role, _ := common.CurrentUserRole(c)

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}
	if file.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}

	src, err := file.Open()
	if err != nil {
		common.Fail(c, err)
		return
	}
	defer src.Close()

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		common.RespondBadRequest(c, "не удалось определить тип файла")
		return
	}

	mimeType := kind.MIME.Value
	if !allowedEvidenceMimeTypes[mimeType] {
		common.RespondBadRequest(c, "неподдерживаемый тип файла: "+mimeType)
		return
	}

	if seeker, ok := interface{}(src).(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			common.Fail(c, err)
			return
		}
	}

	relativePath, size, err := h.storage.Save(c.Request.Context(), disputeID, file.Filename, src)
	if err != nil {
		if strings.Contains(err.Error(), "превышает лимит") {
			common.RespondBadRequest(c, err.Error())
			return
		}
		common.Fail(c, err)
		return
	}

	evidence := &models.DisputeEvidence{
		DisputeID:  disputeID,
		UploaderID: userID,
		FilePath:   filepath.ToSlash(relativePath),
		FileName:   file.Filename,
		MimeType:   mimeType,
		SizeBytes:  size,
	}
	if err := h.disputes.AttachEvidence(c.Request.Context(), evidence, role); err != nil {
		_ = h.storage.Delete(c.Request.Context(), relativePath)
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, evidence)
}
