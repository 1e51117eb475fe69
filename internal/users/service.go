package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound indicates the target record does not exist.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrEmailTaken indicates another record already uses the email address.
	ErrEmailTaken = errors.New("users: email already in use")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingUserID     = errors.New("user identifier is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable "operation.reason" code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "users.service.new"
	opList       = "users.list"
	opGet        = "users.get"
	opCreate     = "users.create"
	opUpdate     = "users.update"
	opDelete     = "users.delete"

	reasonMissingDatabase = "missing_database"
	reasonMissingUserID   = "missing_user_id"
	reasonQueryFailed     = "query_failed"
	reasonIDFailed        = "id_generation_failed"
	reasonInsertFailed    = "insert_failed"
	reasonSaveFailed      = "save_failed"
	reasonDeleteFailed    = "delete_failed"

	queryID         = "id = ?"
	queryEmailOther = "email = ? AND id <> ?"
	orderCreated    = "created_at_s ASC, id ASC"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of the user backing store.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service persists user records and enforces draft validation.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the backing store service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// List returns every user ordered by creation time.
func (s *Service) List(ctx context.Context) ([]User, error) {
	if s.db == nil {
		s.logError(opList, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opList, reasonMissingDatabase, errMissingDatabase)
	}

	records := make([]User, 0)
	if err := s.db.WithContext(ctx).Order(orderCreated).Find(&records).Error; err != nil {
		s.logError(opList, reasonQueryFailed, err)
		return nil, newServiceError(opList, reasonQueryFailed, err)
	}
	return records, nil
}

// Get loads a single user by identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if s.db == nil {
		s.logError(opGet, reasonMissingDatabase, errMissingDatabase)
		return User{}, newServiceError(opGet, reasonMissingDatabase, errMissingDatabase)
	}
	userID := normalize(id)
	if userID == "" {
		return User{}, newServiceError(opGet, reasonMissingUserID, errMissingUserID)
	}

	var record User
	err := s.db.WithContext(ctx).Where(queryID, userID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		s.logError(opGet, reasonQueryFailed, err, zap.String("user_id", userID))
		return User{}, newServiceError(opGet, reasonQueryFailed, err)
	}
	return record, nil
}

// Create validates the draft and inserts a new record with a fresh identifier.
func (s *Service) Create(ctx context.Context, draft Draft) (User, error) {
	if s.db == nil {
		s.logError(opCreate, reasonMissingDatabase, errMissingDatabase)
		return User{}, newServiceError(opCreate, reasonMissingDatabase, errMissingDatabase)
	}
	validated, err := ValidateDraft(draft, ModeCreate)
	if err != nil {
		return User{}, err
	}

	var created User
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := emailTaken(tx, validated.Email, "")
		if err != nil {
			s.logError(opCreate, reasonQueryFailed, err)
			return newServiceError(opCreate, reasonQueryFailed, err)
		}
		if taken {
			return ErrEmailTaken
		}

		userID, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opCreate, reasonIDFailed, err)
			return newServiceError(opCreate, reasonIDFailed, err)
		}

		now := s.clock().UTC().Unix()
		created = User{
			ID:               userID,
			Name:             validated.Name,
			Email:            validated.Email,
			Status:           validated.Status,
			CreatedAtSeconds: now,
			UpdatedAtSeconds: now,
		}
		if err := tx.Create(&created).Error; err != nil {
			s.logError(opCreate, reasonInsertFailed, err, zap.String("user_id", userID))
			return newServiceError(opCreate, reasonInsertFailed, err)
		}
		return nil
	})
	if txErr != nil {
		return User{}, txErr
	}

	s.loggerOrDefault().Info("user created", zap.String("user_id", created.ID))
	return created, nil
}

// Update validates the draft and overwrites the editable fields of an existing record.
func (s *Service) Update(ctx context.Context, id string, draft Draft) (User, error) {
	if s.db == nil {
		s.logError(opUpdate, reasonMissingDatabase, errMissingDatabase)
		return User{}, newServiceError(opUpdate, reasonMissingDatabase, errMissingDatabase)
	}
	userID := normalize(id)
	if userID == "" {
		return User{}, newServiceError(opUpdate, reasonMissingUserID, errMissingUserID)
	}
	validated, err := ValidateDraft(draft, ModeEdit)
	if err != nil {
		return User{}, err
	}

	var updated User
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(queryID, userID).Take(&updated).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			s.logError(opUpdate, reasonQueryFailed, err, zap.String("user_id", userID))
			return newServiceError(opUpdate, reasonQueryFailed, err)
		}

		taken, err := emailTaken(tx, validated.Email, userID)
		if err != nil {
			s.logError(opUpdate, reasonQueryFailed, err, zap.String("user_id", userID))
			return newServiceError(opUpdate, reasonQueryFailed, err)
		}
		if taken {
			return ErrEmailTaken
		}

		updated.Name = validated.Name
		updated.Email = validated.Email
		updated.Status = validated.Status
		updated.UpdatedAtSeconds = s.clock().UTC().Unix()
		if err := tx.Save(&updated).Error; err != nil {
			s.logError(opUpdate, reasonSaveFailed, err, zap.String("user_id", userID))
			return newServiceError(opUpdate, reasonSaveFailed, err)
		}
		return nil
	})
	if txErr != nil {
		return User{}, txErr
	}

	s.loggerOrDefault().Info("user updated", zap.String("user_id", updated.ID))
	return updated, nil
}

// Delete removes the record with the given identifier.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		s.logError(opDelete, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(opDelete, reasonMissingDatabase, errMissingDatabase)
	}
	userID := normalize(id)
	if userID == "" {
		return newServiceError(opDelete, reasonMissingUserID, errMissingUserID)
	}

	result := s.db.WithContext(ctx).Where(queryID, userID).Delete(&User{})
	if result.Error != nil {
		s.logError(opDelete, reasonDeleteFailed, result.Error, zap.String("user_id", userID))
		return newServiceError(opDelete, reasonDeleteFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.loggerOrDefault().Info("user deleted", zap.String("user_id", userID))
	return nil
}

func emailTaken(tx *gorm.DB, email, excludeID string) (bool, error) {
	var count int64
	if err := tx.Model(&User{}).Where(queryEmailOther, email, excludeID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("users service error", attrs...)
}
