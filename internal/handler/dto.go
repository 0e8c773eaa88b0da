package handler

import (
	"time"

	"github.com/msomdec/decision-log/internal/domain"
)

// UserDTO is the JSON representation of a user. It never carries the
// password hash. Decisions marshal directly; their domain JSON tags are the
// wire format.
type UserDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
	CreatedAt string `json:"createdAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
