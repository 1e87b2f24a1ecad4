package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"whereabouts/backend/internal/models"
)

// EventChannel is the Redis pub/sub channel carrying hub events between
// instances.
const EventChannel = "presence:events"

// Storage is the durable-store contract used by the presence and help
// services. Find* methods return (nil, nil) when no row matches; Get*
// methods return ErrNotFound instead.
type Storage interface {
	// Users
	SaveUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByName(ctx context.Context, name string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Locations
	SaveLocation(ctx context.Context, loc *models.Location) error
	GetLocationByID(ctx context.Context, id string) (*models.Location, error)
	ListActiveLocations(ctx context.Context) ([]models.Location, error)
	FindReapableLocations(ctx context.Context, createdBefore time.Time) ([]models.Location, error)
	DeleteLocationIfEmpty(ctx context.Context, id string) (bool, error)

	// CheckIns
	CreateCheckIn(ctx context.Context, userID, locationID string) (*models.CheckIn, error)
	FindActiveCheckInByUser(ctx context.Context, userID string) (*models.CheckIn, error)
	GetCheckInByID(ctx context.Context, id string) (*models.CheckIn, error)
	CloseCheckIn(ctx context.Context, id string, at time.Time) (*models.CheckIn, error)
	ListActiveCheckIns(ctx context.Context) ([]models.CheckIn, error)

	// HelpRequests
	CreateHelpRequest(ctx context.Context, req *models.HelpRequest) error
	FindActiveHelpRequest(ctx context.Context, requesterID, locationID string) (*models.HelpRequest, error)
	GetHelpRequestByID(ctx context.Context, id string) (*models.HelpRequest, error)
	UpdateHelpRequestStatus(ctx context.Context, id, status string) (*models.HelpRequest, error)
	DeleteHelpRequest(ctx context.Context, id string) (*models.HelpRequest, error)
	ListActiveHelpRequests(ctx context.Context) ([]models.HelpRequest, error)

	// Events
	PublishEvent(ctx context.Context, ev models.Event) error
	SubscribeEvents(ctx context.Context) *redis.PubSub
}

// Service implements Storage on PostgreSQL (GORM) plus Redis pub/sub.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService constructor.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb}
}

// translate maps GORM sentinel errors onto the storage error taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// ───────────────────────── Users ─────────────────────────

func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return translate(s.DB.WithContext(ctx).Create(user).Error)
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindUserByName looks up a user by their exact (case-sensitive) name.
func (s *Service) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, err
}

// ─────────────────────── Locations ───────────────────────

func (s *Service) SaveLocation(ctx context.Context, loc *models.Location) error {
	return translate(s.DB.WithContext(ctx).Create(loc).Error)
}

func (s *Service) GetLocationByID(ctx context.Context, id string) (*models.Location, error) {
	var loc models.Location
	err := s.DB.WithContext(ctx).
		Preload("CheckIns", "is_active = ?", true).
		Preload("CheckIns.User").
		First(&loc, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &loc, nil
}

// ListActiveLocations loads all active locations with their active
// check-ins and occupants, ordered by name.
func (s *Service) ListActiveLocations(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Preload("CheckIns", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("checked_in_at DESC")
		}).
		Preload("CheckIns.User").
		Order("name ASC").
		Find(&locations).Error
	return locations, err
}

// FindReapableLocations selects temporary locations eligible for
// deletion: no active check-ins, and either older than createdBefore or
// previously occupied at least once.
func (s *Service) FindReapableLocations(ctx context.Context, createdBefore time.Time) ([]models.Location, error) {
	var locations []models.Location
	err := s.DB.WithContext(ctx).
		Where("is_temporary = ? AND is_active = ?", true, true).
		Where("NOT EXISTS (SELECT 1 FROM check_ins ci WHERE ci.location_id = locations.id AND ci.is_active)").
		Where("created_at < ? OR EXISTS (SELECT 1 FROM check_ins ci WHERE ci.location_id = locations.id)", createdBefore).
		Find(&locations).Error
	return locations, err
}

// DeleteLocationIfEmpty hard-deletes a temporary location, re-checking
// the zero-active-check-ins predicate atomically with the delete so a
// check-in landing after candidate selection keeps its location.
func (s *Service) DeleteLocationIfEmpty(ctx context.Context, id string) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND is_temporary = ?", id, true).
		Where("NOT EXISTS (SELECT 1 FROM check_ins ci WHERE ci.location_id = locations.id AND ci.is_active)").
		Delete(&models.Location{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ─────────────────────── CheckIns ────────────────────────

// CreateCheckIn inserts a new active check-in and reloads it with its
// user and location.
func (s *Service) CreateCheckIn(ctx context.Context, userID, locationID string) (*models.CheckIn, error) {
	checkIn := models.CheckIn{
		UserID:     userID,
		LocationID: locationID,
		IsActive:   true,
	}
	if err := s.DB.WithContext(ctx).Create(&checkIn).Error; err != nil {
		return nil, translate(err)
	}
	return s.GetCheckInByID(ctx, checkIn.ID)
}

// FindActiveCheckInByUser returns the user's single active check-in, or
// (nil, nil) when they are not checked in anywhere.
func (s *Service) FindActiveCheckInByUser(ctx context.Context, userID string) (*models.CheckIn, error) {
	var checkIn models.CheckIn
	err := s.DB.WithContext(ctx).
		Preload("User").
		Preload("Location").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&checkIn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &checkIn, nil
}

func (s *Service) GetCheckInByID(ctx context.Context, id string) (*models.CheckIn, error) {
	var checkIn models.CheckIn
	err := s.DB.WithContext(ctx).
		Preload("User").
		Preload("Location").
		First(&checkIn, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &checkIn, nil
}

// CloseCheckIn marks a check-in inactive with the given checkout time
// and returns the updated row.
func (s *Service) CloseCheckIn(ctx context.Context, id string, at time.Time) (*models.CheckIn, error) {
	err := s.DB.WithContext(ctx).
		Model(&models.CheckIn{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":      false,
			"checked_out_at": at,
		}).Error
	if err != nil {
		return nil, translate(err)
	}
	return s.GetCheckInByID(ctx, id)
}

func (s *Service) ListActiveCheckIns(ctx context.Context) ([]models.CheckIn, error) {
	var checkIns []models.CheckIn
	err := s.DB.WithContext(ctx).
		Preload("User").
		Preload("Location").
		Where("is_active = ?", true).
		Order("checked_in_at DESC").
		Find(&checkIns).Error
	return checkIns, err
}

// ────────────────────── HelpRequests ─────────────────────

func (s *Service) CreateHelpRequest(ctx context.Context, req *models.HelpRequest) error {
	if err := s.DB.WithContext(ctx).Create(req).Error; err != nil {
		return translate(err)
	}
	loaded, err := s.GetHelpRequestByID(ctx, req.ID)
	if err != nil {
		return err
	}
	*req = *loaded
	return nil
}

// FindActiveHelpRequest returns the requester's ACTIVE request at the
// location, or (nil, nil) when there is none.
func (s *Service) FindActiveHelpRequest(ctx context.Context, requesterID, locationID string) (*models.HelpRequest, error) {
	var req models.HelpRequest
	err := s.DB.WithContext(ctx).
		Where("requester_id = ? AND location_id = ? AND status = ?", requesterID, locationID, models.HelpStatusActive).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Service) GetHelpRequestByID(ctx context.Context, id string) (*models.HelpRequest, error) {
	var req models.HelpRequest
	err := s.DB.WithContext(ctx).
		Preload("Requester").
		Preload("TargetUser").
		Preload("Location").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (s *Service) UpdateHelpRequestStatus(ctx context.Context, id, status string) (*models.HelpRequest, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.HelpRequest{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetHelpRequestByID(ctx, id)
}

// DeleteHelpRequest removes the row and returns what was deleted.
func (s *Service) DeleteHelpRequest(ctx context.Context, id string) (*models.HelpRequest, error) {
	req, err := s.GetHelpRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.HelpRequest{}, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return req, nil
}

func (s *Service) ListActiveHelpRequests(ctx context.Context) ([]models.HelpRequest, error) {
	var reqs []models.HelpRequest
	err := s.DB.WithContext(ctx).
		Preload("Requester").
		Preload("TargetUser").
		Preload("Location").
		Where("status = ?", models.HelpStatusActive).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// ──────────────────────── Events ─────────────────────────

// PublishEvent pushes an event onto the Redis channel so sibling
// instances can fan it out to their own subscribers.
func (s *Service) PublishEvent(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, EventChannel, payload).Err()
}

// SubscribeEvents subscribes to the cross-instance event channel.
func (s *Service) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return s.Redis.Subscribe(ctx, EventChannel)
}
