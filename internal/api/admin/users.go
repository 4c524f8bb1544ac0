// users.go implements user account management. Planivo has no sign-up flow:
// accounts are provisioned here by administrators (or by the bootstrap step
// for the first super_admin) and authenticate with JWTs minted by the
// identity provider or with API keys.
package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
)

// UserHandlers handles user management endpoints.
type UserHandlers struct {
	userRepo *repositories.UserRepository
}

// NewUserHandlers creates a new UserHandlers instance.
func NewUserHandlers(db *sqlx.DB) *UserHandlers {
	return &UserHandlers{
		userRepo: repositories.NewUserRepository(db),
	}
}

// UserRequest is the create/update body for user accounts.
type UserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

// @Summary      List users
// @Description  Lists users with pagination, or searches by name/email when ?q= is given.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        q         query  string  false  "Search term (name or email substring)"
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        per_page  query  int     false  "Page size (default 20, max 100)"
// @Success      200  {object}  map[string]interface{}  "users, total, page, per_page"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users [get]
// ListUsersHandler lists or searches users.
// GET /api/v1/admin/users
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}
		offset := (page - 1) * perPage

		if q := c.Query("q"); q != "" {
			users, err := h.userRepo.Search(c.Request.Context(), q, perPage, offset)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"users":    users,
				"page":     page,
				"per_page": perPage,
			})
			return
		}

		users, total, err := h.userRepo.List(c.Request.Context(), perPage, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users":    users,
			"total":    total,
			"page":     page,
			"per_page": perPage,
		})
	}
}

// @Summary      Get user
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "User"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/v1/admin/users/{id} [get]
// GetUserHandler retrieves one user.
// GET /api/v1/admin/users/:id
func (h *UserHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.userRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// @Summary      Create user
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  UserRequest  true  "Email and display name"
// @Success      201  {object}  map[string]interface{}  "Created user"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      409  {object}  map[string]interface{}  "Email already registered"
// @Router       /api/v1/admin/users [post]
// CreateUserHandler creates a user account.
// POST /api/v1/admin/users
func (h *UserHandlers) CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		existing, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}

		user := &models.User{Email: req.Email, Name: req.Name}
		if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

// @Summary      Update user
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "User ID"
// @Param        body  body  UserRequest  true  "New email and display name"
// @Success      200  {object}  map[string]interface{}  "Updated user"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      409  {object}  map[string]interface{}  "Email already registered"
// @Router       /api/v1/admin/users/{id} [put]
// UpdateUserHandler updates a user's email and display name.
// PUT /api/v1/admin/users/:id
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		user, err := h.userRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if req.Email != user.Email {
			existing, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
				return
			}
			if existing != nil {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
		}

		user.Email = req.Email
		user.Name = req.Name
		if err := h.userRepo.Update(c.Request.Context(), user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// @Summary      Delete user
// @Description  Deletes a user account. Role assignments and API keys cascade; approval history keeps the requester id for audit purposes.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "Deletion confirmation"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/v1/admin/users/{id} [delete]
// DeleteUserHandler deletes a user account.
// DELETE /api/v1/admin/users/:id
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.userRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if err := h.userRepo.Delete(c.Request.Context(), user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}
