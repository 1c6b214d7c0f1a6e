package db

import (
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"microcredit-backend/internal/domain/credit"
	"microcredit-backend/internal/domain/profile"
	"microcredit-backend/internal/domain/request"
	"microcredit-backend/internal/domain/restriction"
	"microcredit-backend/internal/domain/scoring"
)

func OpenGorm(dsn string) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn))
}

// OpenGormWithDialector lets tests substitute sqlite or sqlmock.
func OpenGormWithDialector(d gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// Repositories match on gorm.ErrDuplicatedKey for unique-index hits.
		TranslateError: true,
	}
	db, err := gorm.Open(d, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	log.Println("gorm: connected")
	return db, nil
}

// Migrate creates or updates every table the engine persists to.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&profile.FinancialProfile{},
		&scoring.Result{},
		&restriction.DebtRestriction{},
		&request.CreditRequest{},
		&request.ReviewHistory{},
		&request.Document{},
		&credit.DisbursedCredit{},
		&credit.PaymentRecord{},
	)
}
