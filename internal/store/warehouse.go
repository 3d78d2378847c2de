package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/franz/sparkify/internal/catalog"
	"github.com/franz/sparkify/internal/report"
	"github.com/franz/sparkify/internal/util"
)

// Songplay is one playback event in the fact table.
// SongID and ArtistID are nil when the song lookup found no match.
type Songplay struct {
	StartTime time.Time
	UserID    string
	Level     string
	SongID    *string
	ArtistID  *string
	SessionID string
	Location  string
	UserAgent string
}

// User is a row of the users dimension
type User struct {
	UserID    string
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// Song is a row of the songs dimension
type Song struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Artist is a row of the artists dimension.
// Coordinates are nil when the source has none.
type Artist struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// TimeRow is a row of the time dimension, keyed by StartTime
type TimeRow struct {
	StartTime time.Time
	Hour      string
	Day       string
	Week      string
	Month     string
	Year      int
	Weekday   string
}

// SongMatch is the result of a successful song lookup
type SongMatch struct {
	SongID   string
	ArtistID string
}

// InsertSongplay appends a songplay. There is no duplicate detection:
// identical events produce distinct rows.
func (s *Store) InsertSongplay(ctx context.Context, p *Songplay) error {
	_, err := s.insert(ctx, catalog.SongplaysTable, s.cat.SongplayTableInsert,
		p.StartTime, p.UserID, p.Level, p.SongID, p.ArtistID, p.SessionID, p.Location, p.UserAgent)
	return err
}

// InsertUser adds a user unless the user_id already exists.
// It reports whether a row was added.
func (s *Store) InsertUser(ctx context.Context, u *User) (bool, error) {
	n, err := s.insert(ctx, catalog.UsersTable, s.cat.UserTableInsert,
		u.UserID, u.FirstName, u.LastName, u.Gender, u.Level)
	return n > 0, err
}

// InsertSong adds a song unless the song_id already exists
func (s *Store) InsertSong(ctx context.Context, song *Song) (bool, error) {
	n, err := s.insert(ctx, catalog.SongsTable, s.cat.SongTableInsert,
		song.SongID, song.Title, song.ArtistID, song.Year, song.Duration)
	return n > 0, err
}

// InsertArtist adds an artist unless the artist_id already exists
func (s *Store) InsertArtist(ctx context.Context, a *Artist) (bool, error) {
	n, err := s.insert(ctx, catalog.ArtistsTable, s.cat.ArtistTableInsert,
		a.ArtistID, a.Name, a.Location, a.Latitude, a.Longitude)
	return n > 0, err
}

// InsertTime adds a time row unless start_time already exists
func (s *Store) InsertTime(ctx context.Context, t *TimeRow) (bool, error) {
	n, err := s.insert(ctx, catalog.TimeTable, s.cat.TimeTableInsert,
		t.StartTime, t.Hour, t.Day, t.Week, t.Month, t.Year, t.Weekday)
	return n > 0, err
}

func (s *Store) insert(ctx context.Context, table, query string, args ...any) (int64, error) {
	start := time.Now()
	result, err := s.conn.ExecContext(ctx, query, args...)
	s.metrics.ObserveStatement(string(catalog.KindInsert), table, time.Since(start), err)

	var affected int64
	if err == nil {
		affected, err = result.RowsAffected()
	}
	warnEventLog(s.events.LogInsert(string(s.cat.Dialect), table, affected, err))

	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	s.metrics.ObserveInsert(table, affected)
	return affected, nil
}

// FindSong looks up the song and artist ids for an exact title, artist name
// and duration. found is false, with a nil error, when nothing matches.
func (s *Store) FindSong(ctx context.Context, title, artist string, duration float64) (match SongMatch, found bool, err error) {
	start := time.Now()
	err = s.conn.QueryRowContext(ctx, s.cat.SongSelect, title, artist, duration).
		Scan(&match.SongID, &match.ArtistID)
	s.metrics.ObserveStatement(string(catalog.KindSelect), catalog.SongsTable, time.Since(start), ignoreNoRows(err))

	if errors.Is(err, sql.ErrNoRows) {
		warnEventLog(s.events.LogLookup(string(s.cat.Dialect), title, artist, duration, false))
		return SongMatch{}, false, nil
	}
	if err != nil {
		warnEventLog(s.events.LogError(report.EventLookup, string(s.cat.Dialect), catalog.SongsTable, err))
		return SongMatch{}, false, fmt.Errorf("failed to look up song: %w", err)
	}

	warnEventLog(s.events.LogLookup(string(s.cat.Dialect), title, artist, duration, true))
	return match, true, nil
}

// MustFindSong is FindSong for callers that need a match; a miss is
// reported as util.ErrNotFound
func (s *Store) MustFindSong(ctx context.Context, title, artist string, duration float64) (SongMatch, error) {
	match, found, err := s.FindSong(ctx, title, artist, duration)
	if err != nil {
		return SongMatch{}, err
	}
	if !found {
		return SongMatch{}, fmt.Errorf("song %q by %q (%gs): %w", title, artist, duration, util.ErrNotFound)
	}
	return match, nil
}

func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// Resolve fills SongID and ArtistID on p from the song lookup, leaving them
// nil when there is no exact match
func (s *Store) Resolve(ctx context.Context, p *Songplay, title, artist string, duration float64) error {
	match, found, err := s.FindSong(ctx, title, artist, duration)
	if err != nil {
		return err
	}
	if !found {
		p.SongID, p.ArtistID = nil, nil
		return nil
	}
	p.SongID, p.ArtistID = &match.SongID, &match.ArtistID
	return nil
}
