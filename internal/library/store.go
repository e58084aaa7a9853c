// Package library persists the scanned media collection in SQLite and keeps
// it in sync with the filesystem.
package library

import (
	"database/sql"
	"fmt"
	"time"

	"cadenza/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store wraps a *sql.DB providing higher-level helper methods for the track
// collection. It is safe for concurrent use because the underlying *sql.DB
// is concurrency-safe.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger

	upsertTrackStmt  *sql.Stmt
	getTrackByIDStmt *sql.Stmt
	trackExistsStmt  *sql.Stmt
	removeTrackStmt  *sql.Stmt
	searchTracksStmt *sql.Stmt
}

// NewStore opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. Caller should Close() it
// when finished.
func NewStore(dbPath string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with fewer connections
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	s := &Store{
		conn:   conn,
		logger: logger,
	}

	if err := s.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := s.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Library store initialized")
	return s, nil
}

// createTables creates tables and indices if they do not already exist.
// Idempotent and safe to call multiple times.
func (s *Store) createTables() error {
	tracksTable := `
	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		src TEXT NOT NULL UNIQUE,
		duration REAL DEFAULT 0,
		cover TEXT,
		lyrics TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	playlistsTable := `
	CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	playlistTracksTable := `
	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id INTEGER,
		track_id TEXT,
		position INTEGER,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE,
		PRIMARY KEY (playlist_id, track_id)
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_search ON tracks(title, artist, album);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_src ON tracks(src);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_tracks_position ON playlist_tracks(playlist_id, position);",
	}

	tables := []string{tracksTable, playlistsTable, playlistTracksTable}
	for _, table := range tables {
		if _, err := s.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := s.conn.Exec(index); err != nil {
			return err
		}
	}

	return nil
}

// prepareStatements prepares commonly used SQL statements
func (s *Store) prepareStatements() error {
	var err error

	s.upsertTrackStmt, err = s.conn.Prepare(`
		INSERT INTO tracks (id, title, artist, album, src, duration, cover, lyrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(src) DO UPDATE SET
			title=excluded.title,
			artist=excluded.artist,
			album=excluded.album,
			duration=excluded.duration,
			cover=excluded.cover,
			lyrics=excluded.lyrics`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert track statement: %w", err)
	}

	s.getTrackByIDStmt, err = s.conn.Prepare(`
		SELECT id, title, artist, album, src, duration, cover, lyrics
		FROM tracks WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get track by ID statement: %w", err)
	}

	s.trackExistsStmt, err = s.conn.Prepare(`
		SELECT COUNT(*) FROM tracks WHERE src = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare track exists statement: %w", err)
	}

	s.removeTrackStmt, err = s.conn.Prepare(`
		DELETE FROM tracks WHERE src = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare remove track statement: %w", err)
	}

	s.searchTracksStmt, err = s.conn.Prepare(`
		SELECT id, title, artist, album, src, duration, cover, lyrics
		FROM tracks
		WHERE title LIKE ? OR artist LIKE ? OR album LIKE ?
		ORDER BY artist, album, title`)
	if err != nil {
		return fmt.Errorf("failed to prepare search tracks statement: %w", err)
	}

	return nil
}

// UpsertTrack inserts a new track or updates an existing one matched by src.
func (s *Store) UpsertTrack(track models.Track) error {
	_, err := s.upsertTrackStmt.Exec(
		track.ID, track.Title, track.Artist, track.Album,
		track.Src, track.Duration, track.Cover, track.Lyrics)
	if err != nil {
		s.logger.WithError(err).WithField("src", track.Src).Error("Failed to upsert track")
	}
	return err
}

// GetAllTracks returns all tracks ordered by artist/album/title.
func (s *Store) GetAllTracks() ([]models.Track, error) {
	rows, err := s.conn.Query(`
		SELECT id, title, artist, album, src, duration, cover, lyrics
		FROM tracks
		ORDER BY artist, album, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// GetTrackByID returns a single track by its ID.
func (s *Store) GetTrackByID(id string) (*models.Track, error) {
	track, err := scanTrackRow(s.getTrackByIDStmt.QueryRow(id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("track %s not found", id)
		}
		s.logger.WithError(err).WithField("track_id", id).Error("Failed to get track by ID")
		return nil, err
	}
	return track, nil
}

// TrackExists returns true if a track exists with the given source path.
func (s *Store) TrackExists(src string) (bool, error) {
	var count int
	err := s.trackExistsStmt.QueryRow(src).Scan(&count)
	if err != nil {
		s.logger.WithError(err).WithField("src", src).Error("Failed to check if track exists")
		return false, err
	}
	return count > 0, nil
}

// RemoveTrackBySrc deletes a track row identified by its source path.
func (s *Store) RemoveTrackBySrc(src string) error {
	_, err := s.removeTrackStmt.Exec(src)
	if err != nil {
		s.logger.WithError(err).WithField("src", src).Error("Failed to remove track")
	}
	return err
}

// SearchTracks performs a simple LIKE-based search over title, artist and album.
func (s *Store) SearchTracks(query string) ([]models.Track, error) {
	searchQuery := "%" + query + "%"
	rows, err := s.searchTracksStmt.Query(searchQuery, searchQuery, searchQuery)
	if err != nil {
		s.logger.WithError(err).WithField("query", query).Error("Failed to search tracks")
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// CreatePlaylist inserts a new playlist and returns its ID.
func (s *Store) CreatePlaylist(name, description string) (int, error) {
	result, err := s.conn.Exec(`
		INSERT INTO playlists (name, description)
		VALUES (?, ?)`, name, description)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

// GetAllPlaylists returns all playlists along with derived track counts.
func (s *Store) GetAllPlaylists() ([]models.Playlist, error) {
	rows, err := s.conn.Query(`
		SELECT p.id, p.name, COALESCE(p.description, ''),
			   COALESCE(COUNT(pt.track_id), 0) as track_count
		FROM playlists p
		LEFT JOIN playlist_tracks pt ON p.id = pt.playlist_id
		GROUP BY p.id, p.name, p.description
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(&playlist.ID, &playlist.Name, &playlist.Description, &playlist.TrackCount); err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

// GetPlaylistTracks returns tracks for a playlist ordered by stored position.
func (s *Store) GetPlaylistTracks(playlistID int) ([]models.Track, error) {
	rows, err := s.conn.Query(`
		SELECT t.id, t.title, t.artist, t.album, t.src, t.duration, t.cover, t.lyrics
		FROM tracks t
		JOIN playlist_tracks pt ON t.id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// AddTrackToPlaylist appends a track to the end of a playlist (if not already present).
func (s *Store) AddTrackToPlaylist(playlistID int, trackID string) error {
	var maxPosition sql.NullInt64
	err := s.conn.QueryRow(`
		SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?`,
		playlistID).Scan(&maxPosition)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	position := 1
	if maxPosition.Valid {
		position = int(maxPosition.Int64) + 1
	}

	_, err = s.conn.Exec(`
		INSERT INTO playlist_tracks (playlist_id, track_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT(playlist_id, track_id) DO NOTHING`,
		playlistID, trackID, position)
	return err
}

// RemoveTrackFromPlaylist removes a specific track from the given playlist.
func (s *Store) RemoveTrackFromPlaylist(playlistID int, trackID string) error {
	_, err := s.conn.Exec(`
		DELETE FROM playlist_tracks
		WHERE playlist_id = ? AND track_id = ?`,
		playlistID, trackID)
	return err
}

// DeletePlaylist deletes the playlist and any playlist_tracks entries referencing it.
func (s *Store) DeletePlaylist(playlistID int) error {
	_, err := s.conn.Exec("DELETE FROM playlists WHERE id = ?", playlistID)
	return err
}

// Close closes prepared statements and the underlying connection.
func (s *Store) Close() error {
	statements := []*sql.Stmt{
		s.upsertTrackStmt,
		s.getTrackByIDStmt,
		s.trackExistsStmt,
		s.removeTrackStmt,
		s.searchTracksStmt,
	}
	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				s.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrackRow(row rowScanner) (*models.Track, error) {
	var track models.Track
	var cover, lyrics sql.NullString
	if err := row.Scan(&track.ID, &track.Title, &track.Artist, &track.Album,
		&track.Src, &track.Duration, &cover, &lyrics); err != nil {
		return nil, err
	}
	track.Cover = cover.String
	track.Lyrics = lyrics.String
	return &track, nil
}

// scanTrackRows scans standard track result sets into a slice of models.Track.
// Callers must have already deferred rows.Close().
func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		track, err := scanTrackRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}
	return tracks, rows.Err()
}
