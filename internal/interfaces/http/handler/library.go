package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	libraryapp "github.com/Ashtonex/maasim/internal/application/library"
	"github.com/Ashtonex/maasim/internal/domain/shared"
	"github.com/Ashtonex/maasim/internal/interfaces/http/dto"
)

// LibraryHandler handles the authenticated reader's library: listing
// purchased books and issuing short-lived download links.
type LibraryHandler struct {
	BaseHandler
	libraryService *libraryapp.LibraryService
}

// NewLibraryHandler creates a new LibraryHandler
func NewLibraryHandler(libraryService *libraryapp.LibraryService) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService}
}

// List returns the purchased books of the authenticated account
func (h *LibraryHandler) List(c *gin.Context) {
	accountID, err := mustAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid list parameters: "+err.Error())
		return
	}

	filter := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
	}

	page, err := h.libraryService.ListForAccount(c.Request.Context(), accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// DownloadLink issues a short-lived presigned URL for an entitled book
func (h *LibraryHandler) DownloadLink(c *gin.Context) {
	accountID, err := mustAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req struct {
		BookID string `uri:"book_id" binding:"required,uuid"`
	}
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "book_id must be a valid UUID")
		return
	}

	link, err := h.libraryService.DownloadLink(c.Request.Context(), accountID, uuid.MustParse(req.BookID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, link)
}
