package server

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

// Demo instructor credentials. Replace the account before any real event.
const (
	demoInstructorEmail    = "instructor@example.com"
	demoInstructorPassword = "hunt-demo"
)

// SeedDemo creates a demo instructor and game if no games exist.
// Idempotent: does nothing on a populated database.
func SeedDemo(ctx context.Context, logger *slog.Logger, store Store) error {
	existing, err := store.ListGames(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoInstructorPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := store.CreateInstructor(ctx, demoInstructorEmail, string(hash)); err != nil {
		return err
	}

	game := hunt.Game{
		Name:   "Lima Centro Hunt",
		Status: hunt.GameStatusActive,
		Tasks: []hunt.TaskPoint{
			{
				ID:               "plaza-mayor",
				Title:            "Plaza Mayor",
				Question:         "What year was the bronze fountain in the square built?",
				CorrectAnswer:    "1651",
				Fence:            geo.Fence{Center: geo.Coordinate{Lat: -12.0464, Lng: -77.0300}, RadiusMeters: 40},
				ActivationTypes:  []hunt.ActivationType{hunt.ActivationProximity},
				CompletionPolicy: hunt.CompletionKeepUntilCorrect,
				RewardPoints:     20,
				HintText:         "It is engraved on the base, colonial era.",
				HintCost:         5,
			},
			{
				ID:               "san-francisco",
				Title:            "San Francisco Catacombs",
				Question:         "What lies beneath the yellow church?",
				CorrectAnswer:    "catacombs",
				Code:             "SF-1674",
				Fence:            geo.Fence{Center: geo.Coordinate{Lat: -12.0463, Lng: -77.0275}, RadiusMeters: 30},
				ActivationTypes:  []hunt.ActivationType{hunt.ActivationQR, hunt.ActivationManualCode},
				CompletionPolicy: hunt.CompletionRemoveOnAnyAnswer,
				RewardPoints:     30,
			},
			{
				ID:                "muralla-rally",
				Title:             "Muralla Rally Point",
				Question:          "How many bastions remain along the river wall?",
				CorrectAnswer:     "3",
				Fence:             geo.Fence{Center: geo.Coordinate{Lat: -12.0450, Lng: -77.0260}, RadiusMeters: 60},
				ActivationTypes:   []hunt.ActivationType{hunt.ActivationProximity},
				RequiredTeamCount: 2,
				CompletionPolicy:  hunt.CompletionKeepAlways,
				RewardPoints:      50,
			},
			{
				ID:               "jiron-finale",
				Title:            "Jiron de la Union Finale",
				Question:         "Which liberator's statue stands on the street?",
				CorrectAnswer:    "San Martin",
				Fence:            geo.Fence{Center: geo.Coordinate{Lat: -12.0500, Lng: -77.0350}, RadiusMeters: 40},
				ActivationTypes:  []hunt.ActivationType{hunt.ActivationProximity},
				Schedule:         &hunt.Schedule{Enabled: true, Mode: hunt.ScheduleStartOffset, ShowAfterMinutes: 30},
				CompletionPolicy: hunt.CompletionKeepUntilCorrect,
				RewardPoints:     40,
			},
		},
		DangerZones: []hunt.DangerZone{
			{
				ID:               "construction-site",
				Name:             "Construction Site",
				Center:           geo.Coordinate{Lat: -12.0478, Lng: -77.0310},
				RadiusMeters:     50,
				PenaltyType:      hunt.PenaltyTimeBased,
				PenaltyMagnitude: 2,
				GraceSeconds:     10,
			},
			{
				ID:               "restricted-courtyard",
				Name:             "Restricted Courtyard",
				Center:           geo.Coordinate{Lat: -12.0455, Lng: -77.0290},
				RadiusMeters:     25,
				PenaltyType:      hunt.PenaltyFixed,
				PenaltyMagnitude: 15,
				GraceSeconds:     5,
			},
		},
		Timer: hunt.TimerConfig{Enabled: true, Mode: hunt.TimerCountdown, DurationMinutes: 120},
	}

	created, err := store.CreateGame(ctx, game)
	if err != nil {
		return err
	}
	if _, err := store.CreateTeam(ctx, created.ID, "Los Incas", "incas-2026"); err != nil {
		return err
	}
	if _, err := store.CreateTeam(ctx, created.ID, "Los Condores", "condores-2026"); err != nil {
		return err
	}

	logger.Info("demo game seeded", "game_id", created.ID)
	return nil
}
