package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not installed")
	ErrSessionNotFound   = errors.New("no music session for channel")
)

// SessionRepo stores workspace installations and per-channel music sessions.
type SessionRepo struct {
	DB *pgxpool.Pool
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{DB: db.Pool()}
}

func (r *SessionRepo) SaveWorkspace(ctx context.Context, ws model.Workspace) error {
	query := `
        INSERT INTO workspaces (team_id, team_name, bot_token, installed_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (team_id) DO UPDATE
        SET team_name = EXCLUDED.team_name, bot_token = EXCLUDED.bot_token, installed_at = NOW()
    `
	if _, err := r.DB.Exec(ctx, query, ws.TeamID, ws.TeamName, ws.BotToken); err != nil {
		return fmt.Errorf("saving workspace %s: %w", ws.TeamID, err)
	}
	return nil
}

func (r *SessionRepo) GetWorkspace(ctx context.Context, teamID string) (model.Workspace, error) {
	query := `SELECT team_id, team_name, bot_token, installed_at FROM workspaces WHERE team_id = $1`
	var ws model.Workspace
	err := r.DB.QueryRow(ctx, query, teamID).Scan(&ws.TeamID, &ws.TeamName, &ws.BotToken, &ws.InstalledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Workspace{}, ErrWorkspaceNotFound
	}
	if err != nil {
		return model.Workspace{}, fmt.Errorf("loading workspace %s: %w", teamID, err)
	}
	return ws, nil
}

// BotToken returns the bot token a workspace installed us with.
func (r *SessionRepo) BotToken(ctx context.Context, teamID string) (string, error) {
	ws, err := r.GetWorkspace(ctx, teamID)
	if err != nil {
		return "", err
	}
	return ws.BotToken, nil
}

func (r *SessionRepo) SaveSession(ctx context.Context, s model.MusicSession) error {
	query := `
        INSERT INTO music_sessions (team_id, channel_id, access_token, refresh_token, token_type, expiry, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        ON CONFLICT (team_id, channel_id) DO UPDATE
        SET access_token = EXCLUDED.access_token,
            refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN music_sessions.refresh_token ELSE EXCLUDED.refresh_token END,
            token_type = EXCLUDED.token_type,
            expiry = EXCLUDED.expiry,
            updated_at = NOW()
    `
	var expiry interface{}
	if !s.Expiry.IsZero() {
		expiry = s.Expiry
	}
	if _, err := r.DB.Exec(ctx, query, s.TeamID, s.ChannelID, s.AccessToken, s.RefreshToken, s.TokenType, expiry); err != nil {
		return fmt.Errorf("saving music session %s/%s: %w", s.TeamID, s.ChannelID, err)
	}
	return nil
}

func (r *SessionRepo) GetSession(ctx context.Context, teamID, channelID string) (model.MusicSession, error) {
	query := `
        SELECT team_id, channel_id, access_token, refresh_token, token_type,
            COALESCE(expiry, 'epoch'::timestamptz), updated_at
        FROM music_sessions
        WHERE team_id = $1 AND channel_id = $2
    `
	var s model.MusicSession
	err := r.DB.QueryRow(ctx, query, teamID, channelID).Scan(
		&s.TeamID, &s.ChannelID, &s.AccessToken, &s.RefreshToken, &s.TokenType, &s.Expiry, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.MusicSession{}, ErrSessionNotFound
	}
	if err != nil {
		return model.MusicSession{}, fmt.Errorf("loading music session %s/%s: %w", teamID, channelID, err)
	}
	if s.Expiry.Unix() == 0 {
		s.Expiry = time.Time{}
	}
	return s, nil
}
