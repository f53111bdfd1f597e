package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/Ashtonex/maasim/internal/application/catalog"
)

// BookHandler handles the public catalog and the admin book management API
type BookHandler struct {
	BaseHandler
	bookService *catalogapp.BookService
}

// NewBookHandler creates a new BookHandler
func NewBookHandler(bookService *catalogapp.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// List returns published books for the storefront
func (h *BookHandler) List(c *gin.Context) {
	var filter catalogapp.BookListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid list parameters: "+err.Error())
		return
	}

	page, err := h.bookService.List(c.Request.Context(), filter, true)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByID returns a single published book
func (h *BookHandler) GetByID(c *gin.Context) {
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	book, err := h.bookService.GetPublishedByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, book)
}

// AdminList returns all books including unpublished drafts
func (h *BookHandler) AdminList(c *gin.Context) {
	var filter catalogapp.BookListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid list parameters: "+err.Error())
		return
	}

	page, err := h.bookService.List(c.Request.Context(), filter, false)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// AdminGetByID returns any book regardless of publication state
func (h *BookHandler) AdminGetByID(c *gin.Context) {
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	book, err := h.bookService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, book)
}

// Create inserts a draft book and returns presigned upload URLs for the
// cover and the book file
func (h *BookHandler) Create(c *gin.Context) {
	var req catalogapp.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid book payload: "+err.Error())
		return
	}

	resp, err := h.bookService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Update modifies a book's title, description or price
func (h *BookHandler) Update(c *gin.Context) {
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	var req catalogapp.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid book payload: "+err.Error())
		return
	}

	book, err := h.bookService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, book)
}

// Publish makes a book visible and purchasable on the storefront
func (h *BookHandler) Publish(c *gin.Context) {
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	book, err := h.bookService.Publish(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, book)
}

// Unpublish withdraws a book from the storefront; existing entitlements
// are untouched
func (h *BookHandler) Unpublish(c *gin.Context) {
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	book, err := h.bookService.Unpublish(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, book)
}

// Delete removes an unpublished book and its stored objects
func (h *BookHandler) Delete(c *gin.Context) {
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	if err := h.bookService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *BookHandler) bookID(c *gin.Context) (uuid.UUID, bool) {
	var req struct {
		ID string `uri:"id" binding:"required,uuid"`
	}
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}
