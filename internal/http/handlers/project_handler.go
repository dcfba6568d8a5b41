package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m-orlov/freelance-market/internal/dto"
	"github.com/m-orlov/freelance-market/internal/http/handlers/common"
	"github.com/m-orlov/freelance-market/internal/service"
)

type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Create POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "title, description и budget обязательны")
		return
	}

	project, err := h.projects.Create(c.Request.Context(), userID, service.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// List GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	projects, err := h.projects.List(c.Request.Context(), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, projects)
}

// ListMine GET /projects/my
func (h *ProjectHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	role, _ := common.CurrentUserRole(c)

	projects, err := h.projects.ListMine(c.Request.Context(), userID, role)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, projects)
}

// Get GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	project, err := h.projects.Get(c.Request.Context(), projectID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// Update PUT /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
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

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "title, description и budget обязательны")
		return
	}

	project, err := h.projects.Update(c.Request.Context(), projectID, userID, service.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// Complete POST /projects/:id/complete
func (h *ProjectHandler) Complete(c *gin.Context) {
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

	project, err := h.projects.Complete(c.Request.Context(), projectID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}
