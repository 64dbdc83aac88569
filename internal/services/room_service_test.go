package services

import (
	"context"
	"testing"
	"time"

	"live-app/internal/apperrors"
	"live-app/internal/live"
	"live-app/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRoomRepo struct {
	mock.Mock
}

func (m *mockRoomRepo) CreateLiveRoom(ctx context.Context, req *models.CreateRoomRequest, hostID int) (*models.LiveRoom, error) {
	args := m.Called(ctx, req, hostID)
	room, _ := args.Get(0).(*models.LiveRoom)
	return room, args.Error(1)
}

func (m *mockRoomRepo) GetLiveRoom(ctx context.Context, id string) (*models.LiveRoom, error) {
	args := m.Called(ctx, id)
	room, _ := args.Get(0).(*models.LiveRoom)
	return room, args.Error(1)
}

func (m *mockRoomRepo) ListLiveRooms(ctx context.Context) ([]*models.LiveRoom, error) {
	args := m.Called(ctx)
	rooms, _ := args.Get(0).([]*models.LiveRoom)
	return rooms, args.Error(1)
}

func (m *mockRoomRepo) DeleteLiveRoom(ctx context.Context, id string, hostID int) error {
	return m.Called(ctx, id, hostID).Error(0)
}

type fakeSnapshots map[string]models.Stats

func (f fakeSnapshots) Get(_ context.Context, roomID string) (models.Stats, bool, error) {
	s, ok := f[roomID]
	return s, ok, nil
}

func newManager(t *testing.T, opts ...live.Option) *live.Manager {
	m := live.NewManager(live.DefaultConfig(), opts...)
	t.Cleanup(m.Shutdown)
	return m
}

func TestCreateRoom_Validates(t *testing.T) {
	repo := new(mockRoomRepo)
	svc := NewRoomService(repo, newManager(t), nil)

	_, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{ID: "a/b", Name: "x"}, 1)

	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	repo.AssertNotCalled(t, "CreateLiveRoom", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRoom_StoresHost(t *testing.T) {
	req := require.New(t)
	repo := new(mockRoomRepo)
	repo.On("CreateLiveRoom", mock.Anything, mock.Anything, 42).
		Return(&models.LiveRoom{ID: "music", Name: "Music", HostID: 42, CreatedAt: time.Now()}, nil)
	svc := NewRoomService(repo, newManager(t), nil)

	room, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{ID: " music ", Name: "Music"}, 42)

	req.NoError(err)
	req.Equal(42, room.HostID)
	repo.AssertExpectations(t)
}

func TestListRooms_MergesRegisteredAndLive(t *testing.T) {
	req := require.New(t)
	repo := new(mockRoomRepo)
	repo.On("ListLiveRooms", mock.Anything).Return([]*models.LiveRoom{
		{ID: "b", Name: "Bravo", HostID: 2},
		{ID: "c", Name: "Charlie", HostID: 3},
	}, nil)
	m := newManager(t)
	svc := NewRoomService(repo, m, nil)
	req.NoError(m.Join(context.Background(), "a", live.NewParticipant("9", 16)))
	req.NoError(m.Join(context.Background(), "b", live.NewParticipant("2", 16)))

	listings, err := svc.ListRooms(context.Background())

	req.NoError(err)
	req.Len(listings, 3)
	req.Equal("a", listings[0].ID)
	req.True(listings[0].Live)
	req.Equal("b", listings[1].ID)
	req.True(listings[1].Live)
	req.Equal("Bravo", listings[1].Name)
	req.Equal(int64(1), listings[1].Room.Stats.Viewers)
	req.Equal("c", listings[2].ID)
	req.False(listings[2].Live)
}

func TestRoomStats_FallsBackToSnapshot(t *testing.T) {
	req := require.New(t)
	svc := NewRoomService(new(mockRoomRepo), newManager(t), fakeSnapshots{"gone": {Likes: 12}})

	stats, err := svc.RoomStats(context.Background(), "gone")
	req.NoError(err)
	req.Equal(int64(12), stats.Likes)

	_, err = svc.RoomStats(context.Background(), "never")
	req.ErrorIs(err, apperrors.ErrUnknownRoom)
}

func TestDeleteRoom_NotHost(t *testing.T) {
	repo := new(mockRoomRepo)
	repo.On("DeleteLiveRoom", mock.Anything, "music", 5).Return(apperrors.ErrForbidden)
	svc := NewRoomService(repo, newManager(t), nil)

	err := svc.DeleteRoom(context.Background(), "music", 5)

	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestRoomHosts(t *testing.T) {
	repo := new(mockRoomRepo)
	repo.On("GetLiveRoom", mock.Anything, "music").Return(&models.LiveRoom{ID: "music", HostID: 42}, nil)
	repo.On("GetLiveRoom", mock.Anything, "other").Return(nil, apperrors.ErrNotFound)
	hosts := NewRoomHosts(repo)

	host, err := hosts.RoomHost(context.Background(), "music")
	require.NoError(t, err)
	require.Equal(t, "42", host)

	_, err = hosts.RoomHost(context.Background(), "other")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
