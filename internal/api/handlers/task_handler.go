package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/api/middleware"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/models"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ============================================
// Task Handler
// ============================================

type TaskHandler struct {
	taskService service.TaskService
	logger      *zap.Logger
}

// Create - Create a task in a project
// POST /projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), userID, c.Param("id"), service.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		AssigneeID:     req.AssigneeID,
		Tags:           req.Tags,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respondError(c, h.logger, "task.create", err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// ListByProject - List a project's tasks in board order
// GET /projects/:id/tasks?status=a,b&priority=x&assigneeId=...
func (h *TaskHandler) ListByProject(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	filters := &repository.TaskFilters{}
	if v := c.Query("status"); v != "" {
		filters.Status = strings.Split(v, ",")
	}
	if v := c.Query("priority"); v != "" {
		filters.Priority = strings.Split(v, ",")
	}
	if v := c.Query("assigneeId"); v != "" {
		filters.AssigneeID = &v
	}
	filters.Limit, _ = strconv.Atoi(c.Query("limit"))
	filters.Offset, _ = strconv.Atoi(c.Query("offset"))

	tasks, err := h.taskService.ListByProject(c.Request.Context(), userID, c.Param("id"), filters)
	if err != nil {
		respondError(c, h.logger, "task.list", err)
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// Search - Substring and tag search across the tenant organization
// GET /orgs/:orgID/tasks/search?q=...&tags=a,b&limit=..&offset=..
func (h *TaskHandler) Search(c *gin.Context) {
	tc, ok := middleware.RequireTenant(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	tasks, err := h.taskService.SearchOrganization(c.Request.Context(), tc,
		c.Query("q"), splitTags(c.Query("tags")), limit, offset)
	if err != nil {
		respondError(c, h.logger, "task.search", err)
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// Get - Fetch one task
// GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "task.get", err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Update - Patch task fields
// PUT /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), userID, c.Param("id"), service.UpdateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		Tags:           req.Tags,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respondError(c, h.logger, "task.update", err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Move - Reposition a task on its project board
// PUT /tasks/:id/position
func (h *TaskHandler) Move(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.Move(c.Request.Context(), userID, c.Param("id"), req.Position)
	if err != nil {
		respondError(c, h.logger, "task.move", err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Assign - Set or clear the task assignee
// PUT /tasks/:id/assignee
func (h *TaskHandler) Assign(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.Assign(c.Request.Context(), userID, c.Param("id"), req.AssigneeID)
	if err != nil {
		respondError(c, h.logger, "task.assign", err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Delete - Delete a task
// DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, h.logger, "task.delete", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}
