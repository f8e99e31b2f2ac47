package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/task"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	taskService task.TaskService
}

func NewTaskHandler(taskService task.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTask 创建任务
// @Summary 创建任务
// @Tags 任务管理
// @Accept json
// @Produce json
// @Param task body task.CreateTaskRequest true "创建任务请求"
// @Success 201 {object} response.Response{data=database.Task}
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req task.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.taskService.CreateTask(&req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, t)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	t, err := h.taskService.GetTask(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, t)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req task.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.taskService.UpdateTask(c.Param("id"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, t)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskService.DeleteTask(c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "task deleted", nil)
}

// ToggleTask 切换完成状态
// @Summary 切换任务完成状态
// @Tags 任务管理
// @Param id path string true "任务ID"
// @Router /api/v1/tasks/{id}/toggle [post]
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	t, err := h.taskService.ToggleTask(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, t)
}

// ListTasks 任务列表
// @Summary 任务列表
// @Tags 任务管理
// @Param q query string false "搜索"
// @Param done query bool false "完成状态"
// @Param project_id query string false "项目ID"
// @Param priority query string false "优先级 low|medium|high"
// @Router /api/v1/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var filter task.ListTasksFilter
	if !bindQuery(c, &filter) {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	tasks, total, err := h.taskService.ListTasks(filter, page)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithPage(c, tasks, total, page.Page, page.PageSize)
}

// ClearCompleted 删除已完成任务，?project_id= 限定项目
func (h *TaskHandler) ClearCompleted(c *gin.Context) {
	n, err := h.taskService.ClearCompleted(c.Query("project_id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": n})
}
