package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"live-app/internal/apperrors"
	"live-app/internal/database"
	"live-app/internal/live"
	"live-app/internal/models"
	"live-app/pkg/logger"

	"github.com/samber/lo"
)

// SnapshotReader reads the last stats snapshot a room published.
type SnapshotReader interface {
	Get(ctx context.Context, roomID string) (models.Stats, bool, error)
}

type RoomService struct {
	rooms     database.RoomRepository
	manager   *live.Manager
	snapshots SnapshotReader
}

func NewRoomService(rooms database.RoomRepository, manager *live.Manager, snapshots SnapshotReader) *RoomService {
	return &RoomService{rooms: rooms, manager: manager, snapshots: snapshots}
}

func (s *RoomService) CreateRoom(ctx context.Context, req *models.CreateRoomRequest, hostID int) (*models.LiveRoom, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if err := models.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
	}
	return s.rooms.CreateLiveRoom(ctx, req, hostID)
}

// ListRooms returns every registered room plus every live room, ordered by id.
func (s *RoomService) ListRooms(ctx context.Context) ([]models.RoomListing, error) {
	registered, err := s.rooms.ListLiveRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	active := lo.KeyBy(s.manager.Rooms(ctx), func(r models.RoomSummary) string { return r.ID })

	listings := make([]models.RoomListing, 0, len(registered)+len(active))
	for _, room := range registered {
		listing := models.RoomListing{ID: room.ID, Name: room.Name, HostID: strconv.Itoa(room.HostID)}
		if summary, ok := active[room.ID]; ok {
			listing.Live = true
			listing.Room = &summary
			delete(active, room.ID)
		}
		listings = append(listings, listing)
	}
	for _, summary := range lo.Values(active) {
		listings = append(listings, models.RoomListing{ID: summary.ID, HostID: summary.HostID, Live: true, Room: &summary})
	}

	slices.SortFunc(listings, func(a, b models.RoomListing) int { return strings.Compare(a.ID, b.ID) })
	return listings, nil
}

// RoomStats asks the live room first and falls back to the last published
// snapshot, which can outlive the room by its TTL.
func (s *RoomService) RoomStats(ctx context.Context, roomID string) (models.Stats, error) {
	stats, err := s.manager.Stats(ctx, roomID)
	if err == nil || !errors.Is(err, apperrors.ErrUnknownRoom) || s.snapshots == nil {
		return stats, err
	}
	snapshot, ok, readErr := s.snapshots.Get(ctx, roomID)
	if readErr != nil {
		logger.Warn("Failed to read snapshot of room %s: %v", roomID, readErr)
		return models.Stats{}, err
	}
	if !ok {
		return models.Stats{}, err
	}
	return snapshot, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, roomID string, hostID int) error {
	if err := s.rooms.DeleteLiveRoom(ctx, roomID, hostID); err != nil {
		return err
	}
	s.manager.RemoveRoomIfEmpty(roomID)
	return nil
}

// RoomHosts resolves room owners for the live registry.
type RoomHosts struct {
	rooms database.RoomRepository
}

func NewRoomHosts(rooms database.RoomRepository) *RoomHosts {
	return &RoomHosts{rooms: rooms}
}

func (h *RoomHosts) RoomHost(ctx context.Context, roomID string) (string, error) {
	room, err := h.rooms.GetLiveRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(room.HostID), nil
}
