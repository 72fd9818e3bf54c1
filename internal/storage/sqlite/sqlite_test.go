package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/lorecrafter/internal/imagegen"
	"github.com/AaronLay10/lorecrafter/internal/orchestrator"
	"github.com/AaronLay10/lorecrafter/internal/story"
)

func samplePlaythrough(t *testing.T) *orchestrator.Playthrough {
	t.Helper()
	game := &story.GameData{
		Setting:         "Amber Dunes",
		ProtagonistRole: "Keen Ranger",
		Objective:       "Find the oasis",
		Twist:           "The map lies",
		NPC:             story.NPC{Name: "Sefa", Trait: "Kind"},
		Hook:            "Sand hisses over old bones.",
		QuestOffer:      `Sefa: "Bring water home."`,
		ChoiceA:         `"I will track it."`,
		ChoiceB:         `"I will ask the stars."`,
		ChallengeIntro:  "A storm rises.",
		Climax:          `Sefa: "The oasis moves."`,
		EndingGood:      "Water sings in the dunes.",
		EndingBad:       "The dunes stay silent.",
		Epilogue:        "A new well waits.",
	}
	images := imagegen.GameImageSet{
		Avatar:     "assets/avatar_000000000001.png",
		Background: "assets/background_000000000002.png",
		NPC:        "assets/npc_000000000003.png",
	}
	g, err := orchestrator.BuildGraph(game, images)
	require.NoError(t, err)

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	return &orchestrator.Playthrough{
		ID:      "pt-1",
		Prompt:  "a ranger in the desert",
		Graph:   g,
		Images:  images,
		Current: orchestrator.SceneQuestStart,
		History: []orchestrator.Step{{
			From: orchestrator.SceneAvatarCreation,
			Edge: orchestrator.EdgeContinue,
			To:   orchestrator.SceneQuestStart,
			At:   at,
		}},
		StartedAt: at,
		UpdatedAt: at,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := Open(filepath.Join(t.TempDir(), "lorecrafter.db"))
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Load(ctx, "missing")
	assert.ErrorIs(t, err, orchestrator.ErrNotFound)

	p := samplePlaythrough(t)
	require.NoError(t, st.Save(ctx, "sess-1", p))

	got, err := st.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Current, got.Current)
	assert.Equal(t, p.Images, got.Images)
	assert.Equal(t, p.Graph, got.Graph)
	require.Len(t, got.History, 1)
	assert.True(t, got.History[0].At.Equal(p.History[0].At))

	// saving again overwrites the snapshot
	p.Current = orchestrator.SceneChallengeB
	require.NoError(t, st.Save(ctx, "sess-1", p))
	got, err = st.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.SceneChallengeB, got.Current)

	ids, err := st.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1"}, ids)

	require.NoError(t, st.Delete(ctx, "sess-1"))
	_, err = st.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, orchestrator.ErrNotFound)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lorecrafter.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, "sess-2", samplePlaythrough(t)))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	reg := orchestrator.NewSessions(st)
	s, err := reg.Get(ctx, "sess-2")
	require.NoError(t, err)
	p, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, orchestrator.SceneQuestStart, p.Current)
	assert.Equal(t, orchestrator.StateActive, s.State())

	all := orchestrator.NewSessions(st)
	n, err := all.RestoreAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, all.Active())
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
