package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/model"
)

type tagRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

type tagResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type tagListResponse struct {
	Items      []tagResponse `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int64         `json:"total_pages"`
}

func toTagResponse(tag *model.Tag) tagResponse {
	return tagResponse{
		ID:        tag.ID,
		UserID:    tag.UserID,
		Name:      tag.Name,
		CreatedAt: tag.CreatedAt,
	}
}

func (s *Server) listTags(c *gin.Context) {
	page, pageSize := pagination(c, 50)
	tags, total, err := s.tags.ListTags(c.Request.Context(), currentUserID(c), c.Query("search"), page, pageSize)
	if err != nil {
		abortForError(c, err)
		return
	}

	items := make([]tagResponse, 0, len(tags))
	for i := range tags {
		items = append(items, toTagResponse(&tags[i]))
	}
	c.JSON(http.StatusOK, tagListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

func (s *Server) createTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	tag, err := s.tags.CreateTag(c.Request.Context(), currentUserID(c), req.Name)
	if err != nil {
		abortForError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTagResponse(tag))
}

func (s *Server) getTag(c *gin.Context) {
	result, tag, err := s.tags.GetTag(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortForError(c, err)
		return
	}
	if abortForAccess(c, result, "tag") {
		return
	}
	c.JSON(http.StatusOK, toTagResponse(tag))
}

func (s *Server) updateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result, tag, err := s.tags.UpdateTag(c.Request.Context(), c.Param("id"), currentUserID(c), req.Name)
	if err != nil {
		abortForError(c, err)
		return
	}
	if abortForAccess(c, result, "tag") {
		return
	}
	c.JSON(http.StatusOK, toTagResponse(tag))
}

func (s *Server) deleteTag(c *gin.Context) {
	result, err := s.tags.DeleteTag(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortForError(c, err)
		return
	}
	if abortForAccess(c, result, "tag") {
		return
	}
	c.Status(http.StatusNoContent)
}
