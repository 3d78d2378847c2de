package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/franz/sparkify/internal/catalog"
)

// suiteOptions tunes the shared warehouse suite per engine
type suiteOptions struct {
	// concurrentWriters enables the racing dimension insert case. DuckDB
	// aborts conflicting concurrent transactions instead of waiting.
	concurrentWriters bool
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

// ph renders the n-th positional placeholder for the store's dialect
func ph(s *Store, n int) string {
	if s.Dialect() == catalog.Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func mustCount(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	n, err := s.CountRows(context.Background(), table)
	if err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func seedBeatles(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.InsertArtist(ctx, &Artist{
		ArtistID:  "AR6XZ861187FB4E3C4",
		Name:      "The Beatles",
		Location:  "Liverpool, England",
		Latitude:  floatPtr(53.4084),
		Longitude: floatPtr(-2.9916),
	}); err != nil {
		t.Fatalf("failed to insert artist: %v", err)
	}
	if _, err := s.InsertSong(ctx, &Song{
		SongID:   "SOBAYLL12A8C138AF9",
		Title:    "Across The Universe",
		ArtistID: "AR6XZ861187FB4E3C4",
		Year:     1970,
		Duration: 233.99,
	}); err != nil {
		t.Fatalf("failed to insert song: %v", err)
	}
}

// runWarehouseSuite checks the catalog guarantees against a live engine.
// open must return a store with an empty database (no warehouse tables).
func runWarehouseSuite(t *testing.T, open func(t *testing.T) *Store, opts suiteOptions) {
	ctx := context.Background()

	t.Run("CreateTwiceIsNoop", func(t *testing.T) {
		s := open(t)

		if err := s.CreateTables(ctx, nil); err != nil {
			t.Fatalf("first create failed: %v", err)
		}
		if _, err := s.InsertUser(ctx, &User{UserID: "10", FirstName: "Sylvie", LastName: "Cruz", Gender: "F", Level: "free"}); err != nil {
			t.Fatalf("failed to insert user: %v", err)
		}

		var seen []string
		if err := s.CreateTables(ctx, func(st catalog.Statement) { seen = append(seen, st.Table) }); err != nil {
			t.Fatalf("second create failed: %v", err)
		}

		want := []string{"songplays", "users", "songs", "artists", "time"}
		if fmt.Sprint(seen) != fmt.Sprint(want) {
			t.Errorf("create order = %v, want %v", seen, want)
		}
		if missing, err := s.MissingTables(ctx); err != nil || len(missing) != 0 {
			t.Errorf("MissingTables() = %v, %v; want none", missing, err)
		}
		if n := mustCount(t, s, catalog.UsersTable); n != 1 {
			t.Errorf("second create changed users: %d rows, want 1", n)
		}
	})

	t.Run("DropWhenAbsent", func(t *testing.T) {
		s := open(t)

		if err := s.DropTables(ctx, nil); err != nil {
			t.Fatalf("drop on empty database failed: %v", err)
		}
		if err := s.DropTables(ctx, nil); err != nil {
			t.Fatalf("second drop failed: %v", err)
		}
		missing, err := s.MissingTables(ctx)
		if err != nil {
			t.Fatalf("MissingTables() error: %v", err)
		}
		if len(missing) != 5 {
			t.Errorf("expected all 5 tables missing, got %v", missing)
		}
		if err := s.RequireSchema(ctx); err == nil {
			t.Error("RequireSchema() should fail with no tables")
		}
	})

	t.Run("ResetEmptiesTables", func(t *testing.T) {
		s := open(t)
		if err := s.CreateTables(ctx, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		seedBeatles(t, s)

		var steps int
		if err := s.Reset(ctx, func(catalog.Statement) { steps++ }); err != nil {
			t.Fatalf("reset failed: %v", err)
		}
		if steps != 10 {
			t.Errorf("reset reported %d steps, want 10", steps)
		}
		if n := mustCount(t, s, catalog.SongsTable); n != 0 {
			t.Errorf("songs has %d rows after reset", n)
		}
		if err := s.RequireSchema(ctx); err != nil {
			t.Errorf("RequireSchema() after reset: %v", err)
		}
	})

	t.Run("DimensionInsertsIgnoreConflicts", func(t *testing.T) {
		s := open(t)
		if err := s.CreateTables(ctx, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		ts := time.Date(2018, 11, 15, 7, 56, 18, 796000000, time.UTC)

		first := []func() (bool, error){
			func() (bool, error) {
				return s.InsertUser(ctx, &User{UserID: "26", FirstName: "Ryan", LastName: "Smith", Gender: "M", Level: "free"})
			},
			func() (bool, error) {
				return s.InsertSong(ctx, &Song{SongID: "SOUPIRU12A6D4FA1E1", Title: "Der Kleine Dompfaff", ArtistID: "ARJIE2Y1187B994AB7", Year: 0, Duration: 152.92036})
			},
			func() (bool, error) {
				return s.InsertArtist(ctx, &Artist{ArtistID: "ARJIE2Y1187B994AB7", Name: "Line Renaud"})
			},
			func() (bool, error) {
				return s.InsertTime(ctx, &TimeRow{StartTime: ts, Hour: "7", Day: "15", Week: "46", Month: "11", Year: 2018, Weekday: "3"})
			},
		}
		second := []func() (bool, error){
			func() (bool, error) {
				return s.InsertUser(ctx, &User{UserID: "26", FirstName: "Changed", LastName: "Name", Gender: "F", Level: "paid"})
			},
			func() (bool, error) {
				return s.InsertSong(ctx, &Song{SongID: "SOUPIRU12A6D4FA1E1", Title: "Changed", ArtistID: "X", Year: 1999, Duration: 1})
			},
			func() (bool, error) {
				return s.InsertArtist(ctx, &Artist{ArtistID: "ARJIE2Y1187B994AB7", Name: "Changed", Latitude: floatPtr(1)})
			},
			func() (bool, error) {
				return s.InsertTime(ctx, &TimeRow{StartTime: ts, Hour: "23", Day: "1", Week: "1", Month: "1", Year: 1999, Weekday: "0"})
			},
		}

		for i := range first {
			inserted, err := first[i]()
			if err != nil {
				t.Fatalf("first insert %d failed: %v", i, err)
			}
			if !inserted {
				t.Errorf("first insert %d reported no row added", i)
			}

			inserted, err = second[i]()
			if err != nil {
				t.Fatalf("conflicting insert %d returned error: %v", i, err)
			}
			if inserted {
				t.Errorf("conflicting insert %d reported a row added", i)
			}
		}

		checks := []struct {
			query string
			arg   any
			want  string
		}{
			{"SELECT first_name FROM users WHERE user_id = " + ph(s, 1), "26", "Ryan"},
			{"SELECT title FROM songs WHERE song_id = " + ph(s, 1), "SOUPIRU12A6D4FA1E1", "Der Kleine Dompfaff"},
			{"SELECT name FROM artists WHERE artist_id = " + ph(s, 1), "ARJIE2Y1187B994AB7", "Line Renaud"},
			{"SELECT hour FROM time WHERE start_time = " + ph(s, 1), ts, "7"},
		}
		for _, c := range checks {
			var got string
			if err := s.DB().QueryRowContext(ctx, c.query, c.arg).Scan(&got); err != nil {
				t.Fatalf("%s: %v", c.query, err)
			}
			if got != c.want {
				t.Errorf("%s = %q, want first-inserted %q", c.query, got, c.want)
			}
		}

		for _, table := range []string{catalog.UsersTable, catalog.SongsTable, catalog.ArtistsTable, catalog.TimeTable} {
			if n := mustCount(t, s, table); n != 1 {
				t.Errorf("%s has %d rows, want 1", table, n)
			}
		}
	})

	t.Run("SongplaysKeepDuplicates", func(t *testing.T) {
		s := open(t)
		if err := s.CreateTables(ctx, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		play := &Songplay{
			StartTime: time.Date(2018, 11, 21, 21, 56, 47, 0, time.UTC),
			UserID:    "97",
			Level:     "paid",
			SongID:    strPtr("SOBAYLL12A8C138AF9"),
			ArtistID:  strPtr("AR6XZ861187FB4E3C4"),
			SessionID: "605",
			Location:  "Lansing-East Lansing, MI",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64)",
		}
		for i := 0; i < 2; i++ {
			if err := s.InsertSongplay(ctx, play); err != nil {
				t.Fatalf("songplay insert %d failed: %v", i, err)
			}
		}

		if n := mustCount(t, s, catalog.SongplaysTable); n != 2 {
			t.Fatalf("songplays has %d rows, want 2", n)
		}

		var distinct int64
		if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(DISTINCT songplay_id) FROM songplays").Scan(&distinct); err != nil {
			t.Fatalf("count distinct ids: %v", err)
		}
		if distinct != 2 {
			t.Errorf("expected 2 distinct surrogate keys, got %d", distinct)
		}
	})

	t.Run("SongLookup", func(t *testing.T) {
		s := open(t)
		if err := s.CreateTables(ctx, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		seedBeatles(t, s)

		match, found, err := s.FindSong(ctx, "Across The Universe", "The Beatles", 233.99)
		if err != nil {
			t.Fatalf("FindSong() error: %v", err)
		}
		if !found {
			t.Fatal("expected an exact match")
		}
		if match.SongID != "SOBAYLL12A8C138AF9" || match.ArtistID != "AR6XZ861187FB4E3C4" {
			t.Errorf("unexpected match: %+v", match)
		}

		misses := []struct {
			name     string
			title    string
			artist   string
			duration float64
		}{
			{"title case", "across the universe", "The Beatles", 233.99},
			{"title", "Across The Universe (Remastered)", "The Beatles", 233.99},
			{"artist", "Across The Universe", "Beatles", 233.99},
			{"duration up", "Across The Universe", "The Beatles", 234.0},
			{"duration tiny", "Across The Universe", "The Beatles", 233.99 + 1e-9},
		}
		for _, m := range misses {
			_, found, err := s.FindSong(ctx, m.title, m.artist, m.duration)
			if err != nil {
				t.Errorf("%s: miss should not be an error, got %v", m.name, err)
			}
			if found {
				t.Errorf("%s: expected no match", m.name)
			}
		}
	})

	t.Run("UnmatchedSongplayHasNullKeys", func(t *testing.T) {
		s := open(t)
		if err := s.CreateTables(ctx, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		play := &Songplay{
			StartTime: time.Date(2018, 11, 30, 0, 22, 7, 0, time.UTC),
			UserID:    "91",
			Level:     "free",
			SongID:    strPtr("stale"),
			ArtistID:  strPtr("stale"),
			SessionID: "829",
		}
		if err := s.Resolve(ctx, play, "Unknown Song", "Nobody", 1.5); err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if play.SongID != nil || play.ArtistID != nil {
			t.Fatal("Resolve() should clear ids on a miss")
		}
		if err := s.InsertSongplay(ctx, play); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		var nulls int64
		err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM songplays WHERE song_id IS NULL AND artist_id IS NULL").Scan(&nulls)
		if err != nil {
			t.Fatalf("count nulls: %v", err)
		}
		if nulls != 1 {
			t.Errorf("expected 1 songplay with null keys, got %d", nulls)
		}
	})

	t.Run("TransactionRollsBack", func(t *testing.T) {
		s := open(t)
		if err := s.CreateTables(ctx, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		boom := errors.New("boom")
		err := s.Transaction(ctx, func(tx *Store) error {
			if _, err := tx.InsertUser(ctx, &User{UserID: "1", FirstName: "Jaleah"}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Transaction() error = %v, want boom", err)
		}
		if n := mustCount(t, s, catalog.UsersTable); n != 0 {
			t.Errorf("rolled back insert left %d rows", n)
		}

		err = s.Transaction(ctx, func(tx *Store) error {
			_, err := tx.InsertUser(ctx, &User{UserID: "1", FirstName: "Jaleah"})
			return err
		})
		if err != nil {
			t.Fatalf("Transaction() error: %v", err)
		}
		if n := mustCount(t, s, catalog.UsersTable); n != 1 {
			t.Errorf("committed insert left %d rows, want 1", n)
		}
	})

	t.Run("RowCounts", func(t *testing.T) {
		s := open(t)
		if err := s.CreateTables(ctx, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		seedBeatles(t, s)

		counts, err := s.RowCounts(ctx)
		if err != nil {
			t.Fatalf("RowCounts() error: %v", err)
		}
		want := map[string]int64{"songplays": 0, "users": 0, "songs": 1, "artists": 1, "time": 0}
		if len(counts) != len(want) {
			t.Fatalf("expected %d counts, got %d", len(want), len(counts))
		}
		for _, c := range counts {
			if c.Rows != want[c.Table] {
				t.Errorf("%s: %d rows, want %d", c.Table, c.Rows, want[c.Table])
			}
		}

		if _, err := s.CountRows(ctx, "sqlite_master"); err == nil {
			t.Error("CountRows should reject non-warehouse tables")
		}
	})

	if !opts.concurrentWriters {
		return
	}

	t.Run("ConcurrentDimensionInserts", func(t *testing.T) {
		s := open(t)
		if err := s.CreateTables(ctx, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		const workers = 8
		added := make([]bool, workers)

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				ok, err := s.InsertUser(gctx, &User{UserID: "44", FirstName: fmt.Sprintf("worker-%d", i), Level: "paid"})
				added[i] = ok
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("concurrent insert failed: %v", err)
		}

		winners := 0
		for _, ok := range added {
			if ok {
				winners++
			}
		}
		if winners != 1 {
			t.Errorf("expected exactly one insert to add the row, got %d", winners)
		}
		if n := mustCount(t, s, catalog.UsersTable); n != 1 {
			t.Errorf("users has %d rows, want 1", n)
		}
	})
}
