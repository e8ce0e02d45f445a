package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/hsu0403/hcast-backend/internal/store"
)

const (
	demoHostEmail    = "demo-host@hcast.dev"
	demoHostPassword = "demo12345"
)

type demoPodcast struct {
	Title    string
	Category string
	Episodes []store.Episode
}

// bootstrapDemoData creates a demo host with a few podcasts. It is a no-op
// once the demo host exists.
func bootstrapDemoData(ctx context.Context, dataStore *store.Store) error {
	_, err := dataStore.UserByEmail(ctx, demoHostEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup demo host: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoHostPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	hostID, err := dataStore.CreateUser(ctx, demoHostEmail, string(hash), store.RoleHost, uuid.NewString())
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil
		}
		return fmt.Errorf("create demo host: %w", err)
	}

	seeds := []demoPodcast{
		{
			Title:    "Signal and Noise",
			Category: "TECH",
			Episodes: []store.Episode{
				{Title: "Ship it on Friday", Category: "TECH", EpisodeURL: "https://cdn.hcast.dev/demo/ship-it.mp3"},
				{Title: "Postgres all the way down", Category: "TECH", EpisodeURL: "https://cdn.hcast.dev/demo/postgres.mp3"},
			},
		},
		{
			Title:    "Slow Kitchen",
			Category: "FOOD",
			Episodes: []store.Episode{
				{Title: "Fermentation basics", Category: "FOOD", EpisodeURL: "https://cdn.hcast.dev/demo/ferment.mp3"},
			},
		},
		{
			Title:    "Night Walks",
			Category: "STORIES",
		},
	}

	for _, seed := range seeds {
		podcastID, err := dataStore.CreatePodcast(ctx, store.Podcast{
			Title:     seed.Title,
			Category:  seed.Category,
			CreatorID: hostID,
		})
		if err != nil {
			return fmt.Errorf("insert demo podcast %q: %w", seed.Title, err)
		}
		for _, episode := range seed.Episodes {
			episode.PodcastID = podcastID
			if _, err := dataStore.CreateEpisode(ctx, episode); err != nil {
				return fmt.Errorf("insert demo episode %q: %w", episode.Title, err)
			}
		}
	}

	log.Info().Str("email", demoHostEmail).Int("podcasts", len(seeds)).Msg("Demo data seeded")
	return nil
}
