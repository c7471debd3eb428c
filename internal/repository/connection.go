package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/questlog/questlog/internal/model"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
)

type ConnectionRepository interface {
	Upsert(conn *model.Connection) error
	ByUserAndPlatform(userID, platform string) (*model.Connection, error)
	ConnectedByPlatform(platform string) ([]*model.Connection, error)
	ConnectedByUser(userID string) ([]*model.Connection, error)
	Update(conn *model.Connection) error
	SaveProjection(userID, platform string, projection model.RemoteProjection) (*model.Connection, error)
	SetProjectionKey(userID, platform, key, value string) (*model.Connection, error)
	SetSyncResult(userID, platform string, lastSync *time.Time, lastError *string) error
}

type connectionRepository struct {
	db *sqlx.DB
}

func NewConnectionRepository(db *sqlx.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Upsert inserts or replaces the single row for (user_id, platform). The
// unique constraint guarantees no duplicate rows regardless of retries.
func (r *connectionRepository) Upsert(conn *model.Connection) error {
	now := time.Now()
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	if conn.RemoteProjection == nil {
		conn.RemoteProjection = model.RemoteProjection{}
	}

	query := `INSERT INTO connections
	            (id, user_id, platform, access_token, refresh_token, expires_at,
	             connected, profile_identifier, last_sync, last_error,
	             remote_projection, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          ON CONFLICT (user_id, platform) DO UPDATE SET
	            access_token = excluded.access_token,
	            refresh_token = excluded.refresh_token,
	            expires_at = excluded.expires_at,
	            connected = excluded.connected,
	            profile_identifier = excluded.profile_identifier,
	            updated_at = excluded.updated_at`

	_, err := r.db.Exec(query,
		conn.ID,
		conn.UserID,
		conn.Platform,
		conn.AccessToken,
		conn.RefreshToken,
		conn.ExpiresAt,
		conn.Connected,
		conn.ProfileIdentifier,
		conn.LastSync,
		conn.LastError,
		conn.RemoteProjection,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	return err
}

func (r *connectionRepository) ByUserAndPlatform(userID, platform string) (*model.Connection, error) {
	conn := &model.Connection{}
	query := `SELECT * FROM connections WHERE user_id = $1 AND platform = $2`

	err := r.db.Get(conn, query, userID, platform)
	if err == sql.ErrNoRows {
		return nil, ErrConnectionNotFound
	}

	return conn, err
}

func (r *connectionRepository) ConnectedByPlatform(platform string) ([]*model.Connection, error) {
	var conns []*model.Connection
	query := `SELECT * FROM connections WHERE platform = $1 AND connected = TRUE ORDER BY user_id`

	err := r.db.Select(&conns, query, platform)
	if err != nil {
		return nil, err
	}

	return conns, nil
}

func (r *connectionRepository) ConnectedByUser(userID string) ([]*model.Connection, error) {
	var conns []*model.Connection
	query := `SELECT * FROM connections WHERE user_id = $1 AND connected = TRUE ORDER BY platform`

	err := r.db.Select(&conns, query, userID)
	if err != nil {
		return nil, err
	}

	return conns, nil
}

func (r *connectionRepository) Update(conn *model.Connection) error {
	conn.UpdatedAt = time.Now()

	query := `UPDATE connections
	          SET access_token = $1, refresh_token = $2, expires_at = $3,
	              connected = $4, profile_identifier = $5, last_sync = $6,
	              last_error = $7, remote_projection = $8, updated_at = $9
	          WHERE id = $10`

	result, err := r.db.Exec(query,
		conn.AccessToken,
		conn.RefreshToken,
		conn.ExpiresAt,
		conn.Connected,
		conn.ProfileIdentifier,
		conn.LastSync,
		conn.LastError,
		conn.RemoteProjection,
		conn.UpdatedAt,
		conn.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConnectionNotFound
	}

	return nil
}

// SaveProjection merges newly provisioned container IDs into the stored
// remote_projection. The row is re-read first so a concurrent writer's IDs
// win: keys already present in the stored map are kept as-is.
func (r *connectionRepository) SaveProjection(userID, platform string, projection model.RemoteProjection) (*model.Connection, error) {
	conn, err := r.ByUserAndPlatform(userID, platform)
	if err != nil {
		return nil, err
	}

	merged := model.RemoteProjection{}
	for k, v := range projection {
		merged[k] = v
	}
	for k, v := range conn.RemoteProjection {
		merged[k] = v
	}
	conn.RemoteProjection = merged

	err = r.Update(conn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SetProjectionKey overwrites a single projection key. Used for markers that
// must advance (e.g. the last projected report period), unlike container IDs
// which are write-once.
func (r *connectionRepository) SetProjectionKey(userID, platform, key, value string) (*model.Connection, error) {
	conn, err := r.ByUserAndPlatform(userID, platform)
	if err != nil {
		return nil, err
	}

	if conn.RemoteProjection == nil {
		conn.RemoteProjection = model.RemoteProjection{}
	}
	conn.RemoteProjection[key] = value

	err = r.Update(conn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (r *connectionRepository) SetSyncResult(userID, platform string, lastSync *time.Time, lastError *string) error {
	query := `UPDATE connections SET last_sync = COALESCE($1, last_sync), last_error = $2, updated_at = $3
	          WHERE user_id = $4 AND platform = $5`

	result, err := r.db.Exec(query, lastSync, lastError, time.Now(), userID, platform)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConnectionNotFound
	}

	return nil
}
