package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/project"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	projectService project.ProjectService
}

func NewProjectHandler(projectService project.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req project.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.projectService.CreateProject(&req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, p)
}

// GetProject 项目详情，附带任务统计
func (h *ProjectHandler) GetProject(c *gin.Context) {
	p, err := h.projectService.GetProject(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, p)
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req project.UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.projectService.UpdateProject(c.Param("id"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, p)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projectService.DeleteProject(c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "project deleted", nil)
}

func (h *ProjectHandler) Archive(c *gin.Context) {
	h.setArchived(c, true)
}

func (h *ProjectHandler) Unarchive(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *ProjectHandler) setArchived(c *gin.Context, archived bool) {
	p, err := h.projectService.SetArchived(c.Param("id"), archived)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, p)
}

// ListProjects 项目列表，?status=active|archived
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	projects, total, err := h.projectService.ListProjects(c.Query("status"), page)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, projects, total, page.Page, page.PageSize)
}
