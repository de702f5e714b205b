// backend/pkg/database/postgres.go
package database

import (
	"fmt"

	"course-portal/internal/models"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c *Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host,
		c.User,
		c.Password,
		c.DBName,
		c.Port,
		sslMode,
	)
}

func NewPostgresDB(config *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
		// surfaces unique/fk violations as gorm.ErrDuplicatedKey / ErrForeignKeyViolated
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return db, nil
}

// Migrate creates or updates the schema. Parents come before children so
// the foreign key constraints resolve.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lecture{},
		&models.Resource{},
		&models.Question{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuizAnswer{},
	)
	if err != nil {
		return errors.Wrap(err, "migrate schema")
	}
	glog.Infof("database schema migrated")
	return nil
}
