package database

import "campusfeed/internal/models"

// PersistentModels returns the gorm models mirroring the SQL schema. Tests use them to
// build the schema on SQLite, where the postgres migrations do not run.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Message{},
	}
}
