package services

import (
	"context"
	"fmt"

	apperrors "marketplace-service/errors"
	"marketplace-service/models"
	"marketplace-service/repository"
)

type UserService interface {
	Profile(ctx context.Context, actor models.Actor) (*models.User, error)
	UpdateProfile(ctx context.Context, actor models.Actor, req *models.UpdateProfileRequest) (*models.User, error)
	PublicProfile(ctx context.Context, id string) (*models.PublicProfile, error)
	List(ctx context.Context, filter models.UserFilter) (*models.UserPage, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Profile(ctx context.Context, actor models.Actor) (*models.User, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor models.Actor, req *models.UpdateProfileRequest) (*models.User, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := trimmed(*req.Name)
		req.Name = &name
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperrors.ValidationField("name", "cannot be empty")
		}
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = trimmed(*req.Phone)
	}
	if req.Company != nil {
		updates["company"] = trimmed(*req.Company)
	}
	if len(updates) == 0 {
		return s.Profile(ctx, actor)
	}

	user, err := s.users.Update(ctx, userID, updates)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return user, nil
}

func (s *userService) PublicProfile(ctx context.Context, id string) (*models.PublicProfile, error) {
	userID, err := parsePathID(id, "User")
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	if !user.IsActive {
		return nil, apperrors.NotFound("User not found")
	}
	profile := user.Public()
	return &profile, nil
}

func (s *userService) List(ctx context.Context, filter models.UserFilter) (*models.UserPage, error) {
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	users, total, err := s.users.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &models.UserPage{
		Users: users,
		Meta:  models.NewPageMeta(filter.Page, filter.Limit, total),
	}, nil
}
