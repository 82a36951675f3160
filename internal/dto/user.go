package dto

import (
	"time"

	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/services"
	"github.com/yukikurage/workforce-api/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          uint64      `json:"id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phone_number"`
	Role        models.Role `json:"role"`
	Login       string      `json:"login"`
	Work        []uint64    `json:"work"`
	HasFace     bool        `json:"has_face"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// UserSummaryDTO is the embedded form of a user in other resources
type UserSummaryDTO struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

// UserResponse carries a written user and any collaborator warnings
type UserResponse struct {
	User     UserDTO  `json:"user"`
	Warnings []string `json:"warnings,omitempty"`
}

// CredentialsDTO represents the sign-in material of a user
type CredentialsDTO struct {
	QRCode    string `json:"qr_code"`
	FacePhoto string `json:"face_photo,omitempty"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO                `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// CreateUserRequest is the body of POST /api/users
type CreateUserRequest struct {
	FirstName   string      `json:"first_name" binding:"required"`
	LastName    string      `json:"last_name" binding:"required"`
	Email       string      `json:"email" binding:"required"`
	PhoneNumber string      `json:"phone_number" binding:"required"`
	Role        models.Role `json:"role" binding:"required"`
	Login       string      `json:"login" binding:"required"`
	Password    string      `json:"password" binding:"required"`
	FacePhoto   string      `json:"face_photo"`
	WorkIDs     []uint64    `json:"work_ids"`
}

// UpdateUserRequest is the body of PATCH /api/users/:id. Absent fields are unchanged.
type UpdateUserRequest struct {
	FirstName   *string      `json:"first_name"`
	LastName    *string      `json:"last_name"`
	Email       *string      `json:"email"`
	PhoneNumber *string      `json:"phone_number"`
	Role        *models.Role `json:"role"`
	Login       *string      `json:"login"`
	Password    *string      `json:"password"`
	FacePhoto   *string      `json:"face_photo"`
	WorkIDs     *[]uint64    `json:"work_ids"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FaceLoginRequest is the body of POST /api/auth/face
type FaceLoginRequest struct {
	FacePhoto string `json:"face_photo" binding:"required"`
}

// FaceLoginResponse is the user recognised on the photo
type FaceLoginResponse struct {
	User        UserDTO `json:"user"`
	Probability float64 `json:"probability"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	work := []uint64(user.Work)
	if work == nil {
		work = []uint64{}
	}
	return UserDTO{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Role:        user.Role,
		Login:       user.Login,
		Work:        work,
		HasFace:     user.FacePhotoKey != "",
		Active:      user.Active,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// ToUserSummaryDTO returns nil when the relation was not loaded
func ToUserSummaryDTO(user *models.User) *UserSummaryDTO {
	if user == nil || user.ID == 0 {
		return nil
	}
	return &UserSummaryDTO{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		FullName:  user.FullName(),
	}
}

func ToUserResponse(result *services.UserResult) UserResponse {
	return UserResponse{User: ToUserDTO(*result.User), Warnings: result.Warnings}
}

func ToUserListResponse(users []models.User, params utils.PaginationParams, total int64) UserListResponse {
	items := make([]UserDTO, len(users))
	for i, u := range users {
		items[i] = ToUserDTO(u)
	}
	return UserListResponse{Users: items, Pagination: utils.NewPaginationResponse(params, total)}
}

func (r CreateUserRequest) ToInput() services.CreateUserInput {
	return services.CreateUserInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Role:        r.Role,
		Login:       r.Login,
		Password:    r.Password,
		FacePhoto:   r.FacePhoto,
		Work:        r.WorkIDs,
	}
}

func (r UpdateUserRequest) ToInput() services.UpdateUserInput {
	return services.UpdateUserInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Role:        r.Role,
		Login:       r.Login,
		Password:    r.Password,
		FacePhoto:   r.FacePhoto,
		Work:        r.WorkIDs,
	}
}
