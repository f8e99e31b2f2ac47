package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/backup"
)

// BackupHandler 备份目标和备份操作处理器
type BackupHandler struct {
	targets backup.TargetService
	backups backup.BackupService
}

// NewBackupHandler 创建备份处理器
func NewBackupHandler(targets backup.TargetService, backups backup.BackupService) *BackupHandler {
	return &BackupHandler{targets: targets, backups: backups}
}

// RestoreRequest 恢复请求
type RestoreRequest struct {
	Key string `json:"key" binding:"required"`
}

// CreateTarget 创建备份目标
// @Summary 创建备份目标
// @Tags 备份
// @Accept json
// @Param body body backup.TargetRequest true "备份目标"
// @Router /api/v1/backup/targets [post]
func (h *BackupHandler) CreateTarget(c *gin.Context) {
	var req backup.TargetRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.targets.CreateTarget(&req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, t)
}

func (h *BackupHandler) GetTarget(c *gin.Context) {
	t, err := h.targets.GetTarget(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, t)
}

func (h *BackupHandler) ListTargets(c *gin.Context) {
	list, err := h.targets.ListTargets()
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}

func (h *BackupHandler) UpdateTarget(c *gin.Context) {
	var req backup.TargetRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.targets.UpdateTarget(c.Param("id"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, t)
}

func (h *BackupHandler) DeleteTarget(c *gin.Context) {
	if err := h.targets.DeleteTarget(c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "backup target deleted", nil)
}

func (h *BackupHandler) ActivateTarget(c *gin.Context) {
	if err := h.targets.ActivateTarget(c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "backup target activated", nil)
}

// TestTarget 测试目标连接
func (h *BackupHandler) TestTarget(c *gin.Context) {
	if err := h.targets.TestTarget(c.Request.Context(), c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "connection ok", nil)
}

// RunBackup 立即备份
// @Summary 立即备份
// @Tags 备份
// @Success 200 {object} response.Response{data=database.BackupLog}
// @Failure 409 {object} response.Response "已有备份在执行"
// @Router /api/v1/backup/run [post]
func (h *BackupHandler) RunBackup(c *gin.Context) {
	log, err := h.backups.RunBackup(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, log)
}

func (h *BackupHandler) ListSnapshots(c *gin.Context) {
	objects, err := h.backups.ListSnapshots(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, objects)
}

// Restore 从快照恢复
// @Summary 从快照恢复
// @Tags 备份
// @Accept json
// @Param body body RestoreRequest true "快照key"
// @Router /api/v1/backup/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	var req RestoreRequest
	if !bindJSON(c, &req) {
		return
	}
	log, err := h.backups.Restore(c.Request.Context(), req.Key)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, log)
}

func (h *BackupHandler) Logs(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	logs, total, err := h.backups.Logs(page)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, logs, total, page.Page, page.PageSize)
}
