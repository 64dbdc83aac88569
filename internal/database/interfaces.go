package database

import (
	"context"

	"live-app/internal/models"
)

// Lookups that find nothing return an error wrapping apperrors.ErrNotFound.

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type RoomRepository interface {
	CreateLiveRoom(ctx context.Context, req *models.CreateRoomRequest, hostID int) (*models.LiveRoom, error)
	GetLiveRoom(ctx context.Context, id string) (*models.LiveRoom, error)
	ListLiveRooms(ctx context.Context) ([]*models.LiveRoom, error)
	DeleteLiveRoom(ctx context.Context, id string, hostID int) error
}

type GiftRepository interface {
	GetGift(ctx context.Context, id string) (*models.GiftCatalogEntry, error)
	ListGifts(ctx context.Context) ([]*models.GiftCatalogEntry, error)
}

type Database interface {
	UserRepository
	RoomRepository
	GiftRepository
	Migrate(ctx context.Context) error
	Close() error
}
