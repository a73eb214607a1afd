package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-users-crud/internal/application"
	"github.com/oksasatya/go-users-crud/pkg/response"
	"github.com/oksasatya/go-users-crud/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type createUserRequest struct {
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Bio   *string `json:"bio"`
}

// email is not part of the update contract and is dropped if sent
type updateUserRequest struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.GetAll(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, users, "")
}

func (h *UserHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	users, err := h.Svc.Search(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, users, "")
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u, "")
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	u, err := h.Svc.Create(c.Request.Context(), userapp.CreateUserInput{
		Email: req.Email,
		Name:  req.Name,
		Bio:   req.Bio,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, u, "")
}

// Update serves both PATCH and PUT with partial-merge semantics.
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), c.Param("id"), userapp.UpdateUserInput{
		Name: req.Name,
		Bio:  req.Bio,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u, "")
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil, "User deleted successfully")
}

// writeServiceError is the single place where domain errors become HTTP
// statuses. Anything that is not a UserError goes to the error middleware.
func (h *UserHandler) writeServiceError(c *gin.Context, err error) {
	var ue userapp.UserError
	if !errors.As(err, &ue) {
		_ = c.Error(err)
		return
	}
	switch e := ue.(type) {
	case *userapp.UserNotFoundError:
		response.Error(c, http.StatusNotFound, e.Error(), nil)
	case *userapp.UserValidationError:
		response.Error(c, http.StatusBadRequest, e.Message, e.Details)
	case *userapp.UserAlreadyExistsError:
		response.Error(c, http.StatusConflict, e.Error(), nil)
	default:
		_ = c.Error(err)
	}
}

func writeBindError(c *gin.Context, err error) {
	details := validation.ToDetails(err)
	response.Error(c, http.StatusBadRequest, validation.Summary(details), details)
}
