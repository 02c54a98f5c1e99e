package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"libris/apperrors"
	"libris/models"
	"libris/services"
)

const invalidBookID = "Invalid book ID format"

var errEmptyUpdate = apperrors.Validation("At least one field must be provided")

type createBookRequest struct {
	Title    string          `json:"title" binding:"required,min=2,max=200"`
	Author   string          `json:"author" binding:"required,min=2,max=100"`
	ISBN     string          `json:"isbn" binding:"required"`
	Category models.Category `json:"category" binding:"omitempty,oneof=fiction non-fiction science history other"`
	Quantity *int            `json:"quantity" binding:"omitnil,min=0"`
}

func (r *createBookRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.ISBN = strings.TrimSpace(r.ISBN)
}

func (r createBookRequest) book() models.Book {
	return models.Book{
		Title:    r.Title,
		Author:   r.Author,
		ISBN:     r.ISBN,
		Category: lo.Ternary(r.Category == "", models.CategoryOther, r.Category),
		Quantity: lo.FromPtrOr(r.Quantity, 1),
	}
}

type updateBookRequest struct {
	Title    *string          `json:"title" binding:"omitnil,min=2,max=200"`
	Author   *string          `json:"author" binding:"omitnil,min=2,max=100"`
	ISBN     *string          `json:"isbn" binding:"omitnil,min=1"`
	Category *models.Category `json:"category" binding:"omitnil,oneof=fiction non-fiction science history other"`
	Quantity *int             `json:"quantity" binding:"omitnil,min=0"`
}

func (r *updateBookRequest) normalize() {
	for _, s := range []*string{r.Title, r.Author, r.ISBN} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}

func (r updateBookRequest) patch() models.BookPatch {
	return models.BookPatch{
		Title:    r.Title,
		Author:   r.Author,
		ISBN:     r.ISBN,
		Category: r.Category,
		Quantity: r.Quantity,
	}
}

type listBooksQuery struct {
	Category models.Category `form:"category" binding:"omitempty,oneof=fiction non-fiction science history other"`
	Search   string          `form:"search"`
}

type BookHandler struct {
	books *services.BookService
}

func NewBookHandler(books *services.BookService) *BookHandler {
	return &BookHandler{books: books}
}

func (h *BookHandler) Create(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req createBookRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	book, err := h.books.Create(c.Request.Context(), req.book(), actor)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Book created successfully",
		"data":    book,
	})
}

func (h *BookHandler) List(c *gin.Context) {
	var query listBooksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.Error(err)
		return
	}

	books, err := h.books.List(c.Request.Context(), models.BookFilter{
		Category: query.Category,
		Search:   strings.TrimSpace(query.Search),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(books),
		"data":  books,
	})
}

func (h *BookHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id", invalidBookID)
	if err != nil {
		c.Error(err)
		return
	}

	book, err := h.books.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    book,
	})
}

func (h *BookHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id", invalidBookID)
	if err != nil {
		c.Error(err)
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req updateBookRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	patch := req.patch()
	if patch.Empty() {
		c.Error(errEmptyUpdate)
		return
	}

	book, err := h.books.Update(c.Request.Context(), id, patch, actor)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Book updated successfully",
		"data":    book,
	})
}

func (h *BookHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id", invalidBookID)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.books.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Book deleted successfully",
		"data":    nil,
	})
}
