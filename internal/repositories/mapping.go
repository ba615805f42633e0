package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ellievs/covermatch/internal/models"
)

// MappingRepository implements models.MappingStore over SQLite.
//
// The mappings table is keyed by song_id; Put upserts so re-resolving a song
// overwrites its previous mapping in place.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a new MappingRepository with the given database connection
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Get retrieves the mapping for a song ID, or (nil, nil) when none exists.
func (r *MappingRepository) Get(songID string) (*models.Mapping, error) {
	query := `
		SELECT song_id, track_id, album_id, image_url_large, image_url_medium, image_url_small,
		       preview_url, external_url, confidence_score, mapped_at, last_verified, manual_override, market_code
		FROM mappings
		WHERE song_id = ?
	`

	mapping, err := scanMapping(r.db.QueryRow(query, songID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan mapping: %w", err)
	}

	return mapping, nil
}

// Put inserts or replaces the mapping for its song ID.
func (r *MappingRepository) Put(mapping *models.Mapping) error {
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO mappings (song_id, track_id, album_id, image_url_large, image_url_medium, image_url_small,
		                      preview_url, external_url, confidence_score, mapped_at, last_verified, manual_override, market_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(song_id) DO UPDATE SET
			track_id = excluded.track_id,
			album_id = excluded.album_id,
			image_url_large = excluded.image_url_large,
			image_url_medium = excluded.image_url_medium,
			image_url_small = excluded.image_url_small,
			preview_url = excluded.preview_url,
			external_url = excluded.external_url,
			confidence_score = excluded.confidence_score,
			mapped_at = excluded.mapped_at,
			last_verified = excluded.last_verified,
			manual_override = excluded.manual_override,
			market_code = excluded.market_code
	`

	var lastVerified sql.NullTime
	if mapping.LastVerified != nil {
		lastVerified = sql.NullTime{Time: *mapping.LastVerified, Valid: true}
	}

	_, err := r.db.Exec(query,
		mapping.SongID,
		mapping.TrackID,
		mapping.AlbumID,
		nullString(mapping.ImageURLLarge),
		nullString(mapping.ImageURLMedium),
		nullString(mapping.ImageURLSmall),
		nullString(mapping.PreviewURL),
		mapping.ExternalURL,
		mapping.Confidence,
		mapping.MappedAt,
		lastVerified,
		mapping.ManualOverride,
		mapping.Market,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert mapping: %w", err)
	}

	return nil
}

// Delete removes the mapping for a song ID.
func (r *MappingRepository) Delete(songID string) error {
	result, err := r.db.Exec(`DELETE FROM mappings WHERE song_id = ?`, songID)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mapping not found: %s", songID)
	}

	return nil
}

// All retrieves every stored mapping ordered by song ID.
func (r *MappingRepository) All() ([]*models.Mapping, error) {
	query := `
		SELECT song_id, track_id, album_id, image_url_large, image_url_medium, image_url_small,
		       preview_url, external_url, confidence_score, mapped_at, last_verified, manual_override, market_code
		FROM mappings
		ORDER BY song_id ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.Mapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return mappings, nil
}

// Clear removes all mappings.
func (r *MappingRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM mappings`); err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}
	return nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(row scanner) (*models.Mapping, error) {
	var (
		songID       string
		trackID      string
		albumID      string
		imageLarge   sql.NullString
		imageMedium  sql.NullString
		imageSmall   sql.NullString
		previewURL   sql.NullString
		externalURL  string
		confidence   int
		mappedAt     time.Time
		lastVerified sql.NullTime
		override     bool
		market       string
	)

	err := row.Scan(&songID, &trackID, &albumID, &imageLarge, &imageMedium, &imageSmall,
		&previewURL, &externalURL, &confidence, &mappedAt, &lastVerified, &override, &market)
	if err != nil {
		return nil, err
	}

	mapping := &models.Mapping{
		SongID:         songID,
		TrackID:        trackID,
		AlbumID:        albumID,
		ImageURLLarge:  imageLarge.String,
		ImageURLMedium: imageMedium.String,
		ImageURLSmall:  imageSmall.String,
		PreviewURL:     previewURL.String,
		ExternalURL:    externalURL,
		Confidence:     confidence,
		MappedAt:       mappedAt,
		ManualOverride: override,
		Market:         market,
	}
	if lastVerified.Valid {
		mapping.LastVerified = &lastVerified.Time
	}

	return mapping, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
