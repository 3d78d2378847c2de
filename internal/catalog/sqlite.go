package catalog

// SQLite rendering. SERIAL does not exist in SQLite; an INTEGER PRIMARY KEY
// AUTOINCREMENT column is the rowid alias that gives the same surrogate key.
// ON CONFLICT ... DO NOTHING needs SQLite 3.24 or newer.

const sqliteSongplayTableCreate = `
CREATE TABLE IF NOT EXISTS songplays (
  songplay_id INTEGER PRIMARY KEY AUTOINCREMENT,
  start_time TIMESTAMP,
  user_id TEXT,
  level TEXT,
  song_id TEXT,
  artist_id TEXT,
  session_id TEXT,
  location TEXT,
  user_agent TEXT
)`

const sqliteUserTableCreate = `
CREATE TABLE IF NOT EXISTS users (
  user_id TEXT PRIMARY KEY,
  first_name TEXT,
  last_name TEXT,
  gender TEXT,
  level TEXT
)`

const sqliteSongTableCreate = `
CREATE TABLE IF NOT EXISTS songs (
  song_id TEXT PRIMARY KEY,
  title TEXT,
  artist_id TEXT,
  year INTEGER,
  duration REAL
)`

const sqliteArtistTableCreate = `
CREATE TABLE IF NOT EXISTS artists (
  artist_id TEXT PRIMARY KEY,
  name TEXT,
  location TEXT,
  latitude REAL,
  longitude REAL
)`

const sqliteTimeTableCreate = `
CREATE TABLE IF NOT EXISTS time (
  start_time TIMESTAMP PRIMARY KEY,
  hour TEXT,
  day TEXT,
  week TEXT,
  month TEXT,
  year INTEGER,
  weekday TEXT
)`

const sqliteSongplayTableInsert = `
INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const sqliteUserTableInsert = `
INSERT INTO users (user_id, first_name, last_name, gender, level)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO NOTHING`

const sqliteSongTableInsert = `
INSERT INTO songs (song_id, title, artist_id, year, duration)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (song_id) DO NOTHING`

const sqliteArtistTableInsert = `
INSERT INTO artists (artist_id, name, location, latitude, longitude)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (artist_id) DO NOTHING`

const sqliteTimeTableInsert = `
INSERT INTO time (start_time, hour, day, week, month, year, weekday)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (start_time) DO NOTHING`

const sqliteSongSelect = `
SELECT s.song_id, a.artist_id
FROM songs AS s
JOIN artists AS a ON s.artist_id = a.artist_id
WHERE s.title = ? AND a.name = ? AND s.duration = ?`

func sqliteCatalog() *Catalog {
	return &Catalog{
		Dialect: SQLite,

		SongplayTableDrop: SongplayTableDrop,
		UserTableDrop:     UserTableDrop,
		SongTableDrop:     SongTableDrop,
		ArtistTableDrop:   ArtistTableDrop,
		TimeTableDrop:     TimeTableDrop,

		SongplayTableCreate: sqliteSongplayTableCreate,
		UserTableCreate:     sqliteUserTableCreate,
		SongTableCreate:     sqliteSongTableCreate,
		ArtistTableCreate:   sqliteArtistTableCreate,
		TimeTableCreate:     sqliteTimeTableCreate,

		SongplayTableInsert: sqliteSongplayTableInsert,
		UserTableInsert:     sqliteUserTableInsert,
		SongTableInsert:     sqliteSongTableInsert,
		ArtistTableInsert:   sqliteArtistTableInsert,
		TimeTableInsert:     sqliteTimeTableInsert,

		SongSelect: sqliteSongSelect,
	}
}
