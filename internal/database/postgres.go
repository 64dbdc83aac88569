package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"live-app/internal/apperrors"
	"live-app/internal/models"
	"live-app/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

//go:embed schema.sql
var schema string

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// Migrate creates the tables if needed and seeds the gift catalog.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperrors.ErrNotFound)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// User Repository Implementation
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "user "+email)
	}

	return user, nil
}

func (db *PostgresDB) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, username, email, created_at`

	user := &models.User{PasswordHash: string(hash)}
	err = db.pool.QueryRow(ctx, query, req.Username, req.Email, string(hash)).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username or email already taken", apperrors.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, username, email, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}

	return user, nil
}

// Room Repository Implementation
func (db *PostgresDB) CreateLiveRoom(ctx context.Context, req *models.CreateRoomRequest, hostID int) (*models.LiveRoom, error) {
	query := `
		INSERT INTO live_rooms (id, name, host_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, name, host_id, created_at`

	room := &models.LiveRoom{}
	err := db.pool.QueryRow(ctx, query, req.ID, req.Name, hostID).Scan(
		&room.ID, &room.Name, &room.HostID, &room.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: room %s already exists", apperrors.ErrInvalidArgument, req.ID)
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return room, nil
}

func (db *PostgresDB) GetLiveRoom(ctx context.Context, id string) (*models.LiveRoom, error) {
	query := `SELECT id, name, host_id, created_at FROM live_rooms WHERE id = $1`

	room := &models.LiveRoom{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.HostID, &room.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "room "+id)
	}

	return room, nil
}

func (db *PostgresDB) ListLiveRooms(ctx context.Context) ([]*models.LiveRoom, error) {
	query := `SELECT id, name, host_id, created_at FROM live_rooms ORDER BY id`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.LiveRoom
	for rows.Next() {
		room := &models.LiveRoom{}
		if err := rows.Scan(&room.ID, &room.Name, &room.HostID, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PostgresDB) DeleteLiveRoom(ctx context.Context, id string, hostID int) error {
	// Check ownership first
	var currentHostID int
	err := db.pool.QueryRow(ctx, "SELECT host_id FROM live_rooms WHERE id = $1", id).Scan(&currentHostID)
	if err != nil {
		return notFound(err, "room "+id)
	}

	if currentHostID != hostID {
		return fmt.Errorf("%w: not the room host", apperrors.ErrForbidden)
	}

	_, err = db.pool.Exec(ctx, "DELETE FROM live_rooms WHERE id = $1", id)
	return err
}

// Gift Repository Implementation
func (db *PostgresDB) GetGift(ctx context.Context, id string) (*models.GiftCatalogEntry, error) {
	query := `SELECT id, name, price FROM gifts WHERE id = $1`

	gift := &models.GiftCatalogEntry{}
	if err := db.pool.QueryRow(ctx, query, id).Scan(&gift.ID, &gift.Name, &gift.Price); err != nil {
		return nil, notFound(err, "gift "+id)
	}

	return gift, nil
}

func (db *PostgresDB) ListGifts(ctx context.Context) ([]*models.GiftCatalogEntry, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name, price FROM gifts ORDER BY price, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gifts []*models.GiftCatalogEntry
	for rows.Next() {
		gift := &models.GiftCatalogEntry{}
		if err := rows.Scan(&gift.ID, &gift.Name, &gift.Price); err != nil {
			return nil, err
		}
		gifts = append(gifts, gift)
	}

	return gifts, rows.Err()
}
