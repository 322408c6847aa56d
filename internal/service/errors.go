// Package service provides application business logic (auth, users, posts, messages).
package service

import (
	"errors"

	"campusfeed/internal/models"
	"campusfeed/internal/repository"
)

// storeError maps a repository failure onto an AppError. ErrNotFound becomes a not-found
// error for resource; anything else is a database error.
func storeError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewDatabaseError(err)
}
