package service

import (
	"context"
	"errors"
	"strings"

	"campusfeed/internal/cache"
	"campusfeed/internal/models"
	"campusfeed/internal/repository"
	"campusfeed/internal/security"
	"campusfeed/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	cache    *cache.Store
}

// NewUserService returns a UserService. cache may be nil.
func NewUserService(userRepo repository.UserRepository, store *cache.Store) *UserService {
	return &UserService{userRepo: userRepo, cache: store}
}

// Profile returns the public projection of a user, read through the cache.
func (s *UserService) Profile(ctx context.Context, userID uint) (*models.PublicUser, error) {
	var out models.PublicUser
	err := s.cache.Aside(ctx, cache.UserKey(userID), &out, cache.UserTTL, func() error {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		out = *user.Public()
		return nil
	})
	if err != nil {
		return nil, storeError(err, "user", userID)
	}
	return &out, nil
}

// UpdateProfile applies the set fields of in to the caller's profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in models.ProfileUpdate) (*models.PublicUser, error) {
	if in.Empty() {
		return nil, models.NewValidationError("nothing to update")
	}
	if err := normalizeProfile(&in); err != nil {
		return nil, err
	}

	if in.Username != nil {
		taken, err := s.userRepo.UsernameTaken(ctx, *in.Username, userID)
		if err != nil {
			return nil, models.NewDatabaseError(err)
		}
		if taken {
			return nil, usernameTaken()
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, &in); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, usernameTaken()
		}
		return nil, storeError(err, "user", userID)
	}
	s.cache.InvalidateUser(ctx, userID)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user", userID)
	}
	return user.Public(), nil
}

// normalizeProfile trims, validates and escapes every set field in place.
func normalizeProfile(in *models.ProfileUpdate) error {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	for _, p := range []*string{in.Username, in.Nickname, in.Email, in.Phone, in.Gender, in.School, in.Major, in.Grade, in.Bio, in.Avatar} {
		trim(p)
	}

	// An empty email or phone clears the field.
	checks := []struct {
		value     *string
		check     func(string) error
		clearable bool
	}{
		{in.Username, validation.ValidateUsername, false},
		{in.Nickname, validation.ValidateNickname, false},
		{in.Email, validation.ValidateEmail, true},
		{in.Phone, validation.ValidatePhone, true},
		{in.Gender, validation.ValidateGender, false},
	}
	for _, c := range checks {
		if c.value == nil || (c.clearable && *c.value == "") {
			continue
		}
		if err := c.check(*c.value); err != nil {
			return models.NewValidationError(err.Error())
		}
	}

	if in.Bio != nil {
		if err := validation.ValidateLength("bio", *in.Bio, 0, validation.MaxBioLength); err != nil {
			return models.NewValidationError(err.Error())
		}
	}

	for _, p := range []*string{in.Username, in.Nickname, in.School, in.Major, in.Grade, in.Bio} {
		if p != nil {
			*p = security.Escape(*p)
		}
	}
	return nil
}
