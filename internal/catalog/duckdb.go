package catalog

// DuckDB rendering. DuckDB has no SERIAL type, so the songplays surrogate key
// draws from a sequence that is created and dropped together with the table.
// DuckDB's FLOAT is single precision; DOUBLE keeps duration equality exact.

const duckdbSongplaySequence = "songplays_songplay_id_seq"

const duckdbSongplayTableDrop = `
DROP TABLE IF EXISTS songplays;
DROP SEQUENCE IF EXISTS ` + duckdbSongplaySequence

const duckdbSongplayTableCreate = `
CREATE SEQUENCE IF NOT EXISTS ` + duckdbSongplaySequence + `;
CREATE TABLE IF NOT EXISTS songplays (
  songplay_id BIGINT PRIMARY KEY DEFAULT nextval('` + duckdbSongplaySequence + `'),
  start_time TIMESTAMP,
  user_id VARCHAR,
  level VARCHAR,
  song_id VARCHAR,
  artist_id VARCHAR,
  session_id VARCHAR,
  location VARCHAR,
  user_agent VARCHAR
)`

const duckdbUserTableCreate = `
CREATE TABLE IF NOT EXISTS users (
  user_id VARCHAR PRIMARY KEY,
  first_name VARCHAR,
  last_name VARCHAR,
  gender VARCHAR,
  level VARCHAR
)`

const duckdbSongTableCreate = `
CREATE TABLE IF NOT EXISTS songs (
  song_id VARCHAR PRIMARY KEY,
  title VARCHAR,
  artist_id VARCHAR,
  year INTEGER,
  duration DOUBLE
)`

const duckdbArtistTableCreate = `
CREATE TABLE IF NOT EXISTS artists (
  artist_id VARCHAR PRIMARY KEY,
  name VARCHAR,
  location VARCHAR,
  latitude DOUBLE,
  longitude DOUBLE
)`

const duckdbTimeTableCreate = `
CREATE TABLE IF NOT EXISTS time (
  start_time TIMESTAMP PRIMARY KEY,
  hour VARCHAR,
  day VARCHAR,
  week VARCHAR,
  month VARCHAR,
  year INTEGER,
  weekday VARCHAR
)`

func duckdbCatalog() *Catalog {
	// Inserts and the lookup are plain SQL with ? placeholders, which
	// DuckDB accepts as written for SQLite.
	return &Catalog{
		Dialect: DuckDB,

		SongplayTableDrop: duckdbSongplayTableDrop,
		UserTableDrop:     UserTableDrop,
		SongTableDrop:     SongTableDrop,
		ArtistTableDrop:   ArtistTableDrop,
		TimeTableDrop:     TimeTableDrop,

		SongplayTableCreate: duckdbSongplayTableCreate,
		UserTableCreate:     duckdbUserTableCreate,
		SongTableCreate:     duckdbSongTableCreate,
		ArtistTableCreate:   duckdbArtistTableCreate,
		TimeTableCreate:     duckdbTimeTableCreate,

		SongplayTableInsert: sqliteSongplayTableInsert,
		UserTableInsert:     sqliteUserTableInsert,
		SongTableInsert:     sqliteSongTableInsert,
		ArtistTableInsert:   sqliteArtistTableInsert,
		TimeTableInsert:     sqliteTimeTableInsert,

		SongSelect: sqliteSongSelect,
	}
}
