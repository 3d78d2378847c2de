package catalog

// Postgres rendering. This is the canonical form of the catalog; the other
// dialects differ only where the engine forces it.

// DROP TABLES

const (
	SongplayTableDrop = "DROP TABLE IF EXISTS songplays"
	UserTableDrop     = "DROP TABLE IF EXISTS users"
	SongTableDrop     = "DROP TABLE IF EXISTS songs"
	ArtistTableDrop   = "DROP TABLE IF EXISTS artists"
	TimeTableDrop     = "DROP TABLE IF EXISTS time"
)

// CREATE TABLES

const SongplayTableCreate = `
CREATE TABLE IF NOT EXISTS songplays (
  songplay_id SERIAL PRIMARY KEY,
  start_time TIMESTAMP,
  user_id VARCHAR,
  level VARCHAR,
  song_id VARCHAR,
  artist_id VARCHAR,
  session_id VARCHAR,
  location VARCHAR,
  user_agent VARCHAR
)`

const UserTableCreate = `
CREATE TABLE IF NOT EXISTS users (
  user_id VARCHAR PRIMARY KEY,
  first_name VARCHAR,
  last_name VARCHAR,
  gender VARCHAR,
  level VARCHAR
)`

const SongTableCreate = `
CREATE TABLE IF NOT EXISTS songs (
  song_id VARCHAR PRIMARY KEY,
  title VARCHAR,
  artist_id VARCHAR,
  year INT,
  duration FLOAT
)`

const ArtistTableCreate = `
CREATE TABLE IF NOT EXISTS artists (
  artist_id VARCHAR PRIMARY KEY,
  name VARCHAR,
  location VARCHAR,
  latitude FLOAT,
  longitude FLOAT
)`

const TimeTableCreate = `
CREATE TABLE IF NOT EXISTS time (
  start_time TIMESTAMP PRIMARY KEY,
  hour VARCHAR,
  day VARCHAR,
  week VARCHAR,
  month VARCHAR,
  year INT,
  weekday VARCHAR
)`

// INSERT RECORDS

// SongplayTableInsert has no conflict clause: every call adds a row.
const SongplayTableInsert = `
INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const UserTableInsert = `
INSERT INTO users (user_id, first_name, last_name, gender, level)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO NOTHING`

const SongTableInsert = `
INSERT INTO songs (song_id, title, artist_id, year, duration)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (song_id) DO NOTHING`

const ArtistTableInsert = `
INSERT INTO artists (artist_id, name, location, latitude, longitude)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (artist_id) DO NOTHING`

const TimeTableInsert = `
INSERT INTO time (start_time, hour, day, week, month, year, weekday)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (start_time) DO NOTHING`

// FIND SONGS

const SongSelect = `
SELECT s.song_id, a.artist_id
FROM songs AS s
JOIN artists AS a ON s.artist_id = a.artist_id
WHERE s.title = $1 AND a.name = $2 AND s.duration = $3`

// QUERY LISTS

var (
	CreateTableQueries = []string{SongplayTableCreate, UserTableCreate, SongTableCreate, ArtistTableCreate, TimeTableCreate}
	DropTableQueries   = []string{SongplayTableDrop, UserTableDrop, SongTableDrop, ArtistTableDrop, TimeTableDrop}
)

func postgresCatalog() *Catalog {
	return &Catalog{
		Dialect: Postgres,

		SongplayTableDrop: SongplayTableDrop,
		UserTableDrop:     UserTableDrop,
		SongTableDrop:     SongTableDrop,
		ArtistTableDrop:   ArtistTableDrop,
		TimeTableDrop:     TimeTableDrop,

		SongplayTableCreate: SongplayTableCreate,
		UserTableCreate:     UserTableCreate,
		SongTableCreate:     SongTableCreate,
		ArtistTableCreate:   ArtistTableCreate,
		TimeTableCreate:     TimeTableCreate,

		SongplayTableInsert: SongplayTableInsert,
		UserTableInsert:     UserTableInsert,
		SongTableInsert:     SongTableInsert,
		ArtistTableInsert:   ArtistTableInsert,
		TimeTableInsert:     TimeTableInsert,

		SongSelect: SongSelect,
	}
}
