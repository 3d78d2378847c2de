package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franz/sparkify/internal/util"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Find the song and artist ids for a title, artist and duration",
	Long: `Run the song select used to resolve a play event to its song_id and
artist_id. All three values must match exactly.

No match is a normal outcome: the event is stored with null song and
artist ids.`,
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().String("title", "", "Song title (required)")
	lookupCmd.Flags().String("artist", "", "Artist name (required)")
	lookupCmd.Flags().Float64("duration", 0, "Song duration in seconds (required)")
	lookupCmd.MarkFlagRequired("title")
	lookupCmd.MarkFlagRequired("artist")
	lookupCmd.MarkFlagRequired("duration")
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	title, _ := cmd.Flags().GetString("title")
	artist, _ := cmd.Flags().GetString("artist")
	duration, _ := cmd.Flags().GetFloat64("duration")

	sess, err := openSession(ctx, "lookup")
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	if err := sess.store.RequireSchema(ctx); err != nil {
		return fmt.Errorf("%w (run 'sparkify create' first)", err)
	}

	match, found, err := sess.store.FindSong(ctx, title, artist, duration)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !found {
		util.WarnLog("No song matches %q by %q (%gs)", title, artist, duration)
		fmt.Fprintln(out, "song_id=NULL artist_id=NULL")
		return nil
	}

	fmt.Fprintf(out, "song_id=%s artist_id=%s\n", match.SongID, match.ArtistID)
	return nil
}
