package service

import (
	"errors"

	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/app/repository"
	"github.com/oakmart/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrLastAdmin = errors.New("cannot demote the last admin")

type UserService interface {
	ListUsers(page, pageSize int) ([]model.User, int64, error)
	GetUser(id uint) (*model.User, error)
	ChangeRole(id uint, role model.UserRole) (*model.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) ListUsers(page, pageSize int) ([]model.User, int64, error) {
	return s.userRepo.FindAll(page, pageSize)
}

func (s *userService) GetUser(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ChangeRole promotes or demotes a user. Demoting the only remaining admin
// is refused so the back office can never lock itself out.
func (s *userService) ChangeRole(id uint, role model.UserRole) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if user.Role == role {
		return user, nil
	}

	if user.Role == model.RoleAdmin && role != model.RoleAdmin {
		admins, err := s.userRepo.CountByRole(model.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			logger.Warn("Refusing to demote last admin", map[string]interface{}{
				"user_id": id,
			})
			return nil, ErrLastAdmin
		}
	}

	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	logger.Info("User role changed", map[string]interface{}{
		"user_id": user.ID,
		"role":    role,
	})
	return user, nil
}
