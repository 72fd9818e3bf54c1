package story

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStory() map[string]any {
	return map[string]any{
		"setting":          "Glowing Shadowwood",
		"protagonist_role": "Brave Knight",
		"objective":        "Restore family honor",
		"twist":            "Shadows hide enemies",
		"npc":              map[string]any{"name": "Bram", "trait": "Wary"},
		"hook":             "Fog rolls between ancient trees.",
		"quest_offer":      `Bram: "Find my lost shield."`,
		"choice_a":         `"I will fight."`,
		"choice_b":         `"I will solve the riddle."`,
		"challenge_intro":  "Shadows swirl around you.",
		"climax":           `Bram: "My father carried that shield."`,
		"ending_good":      "The shield shines again.",
		"ending_bad":       "The shadows keep the shield.",
		"epilogue":         "A new map appears.",
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestParseValid(t *testing.T) {
	g, warnings, err := Parse(mustJSON(t, validStory()))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "Bram", g.NPC.Name)
	assert.Equal(t, "Brave Knight", g.ProtagonistRole)
	assert.Nil(t, g.Images)
}

func TestParseHardFailures(t *testing.T) {
	cases := map[string]func(m map[string]any){
		"missing key":    func(m map[string]any) { delete(m, "climax") },
		"npc not object": func(m map[string]any) { m["npc"] = "Bram" },
		"npc no trait":   func(m map[string]any) { m["npc"] = map[string]any{"name": "Bram"} },
		"empty field":    func(m map[string]any) { m["hook"] = "   " },
		"wrong type":     func(m map[string]any) { m["hook"] = 42 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := validStory()
			mutate(m)
			_, _, err := Parse(mustJSON(t, m))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStoryInvalid)
		})
	}

	_, _, err := Parse([]byte("not json"))
	assert.ErrorIs(t, err, ErrStoryInvalid)

	_, _, err = Parse([]byte(`{"error": "seed_not_allowed"}`))
	assert.ErrorIs(t, err, ErrSeedRejected)
	assert.Contains(t, err.Error(), "seed_not_allowed")
}

func TestParseSoftLimitsAreWarnings(t *testing.T) {
	m := validStory()
	m["hook"] = strings.Repeat("word ", 30)
	m["choice_a"] = "fight without quotes"
	m["epilogue"] = strings.Repeat("far ", 19)

	g, warnings, err := Parse(mustJSON(t, m))
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Contains(t, warnings, "hook exceeds 25 words")
	assert.Contains(t, warnings, "epilogue exceeds 18 words")
	assert.Contains(t, warnings, "choice_a missing quotation marks for dialogue")
}

func TestTotalWordLimitWarning(t *testing.T) {
	m := validStory()
	for _, wl := range wordLimits {
		words := strings.TrimSpace(strings.Repeat("w ", wl.limit-1))
		m[wl.key] = `"` + words + `"`
	}

	_, warnings, err := Parse(mustJSON(t, m))
	require.NoError(t, err)
	assert.Equal(t, []string{"total word count exceeds 200"}, warnings)
}

// scriptedLLM replays canned responses in order.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []func() (json.RawMessage, error)
	calls     int
	system    string
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) GenerateJSON(_ context.Context, system, _ string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system = system
	i := min(s.calls, len(s.responses)-1)
	s.calls++
	return s.responses[i]()
}

func reply(b []byte) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) { return b, nil }
}

func fail(err error) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) { return nil, err }
}

func TestServiceRetriesUntilValid(t *testing.T) {
	bad := validStory()
	delete(bad, "npc")
	llm := &scriptedLLM{responses: []func() (json.RawMessage, error){
		fail(errors.New("timeout")),
		reply(mustJSON(t, bad)),
		reply(mustJSON(t, validStory())),
	}}

	g, err := NewService(llm).Generate(context.Background(), "A brave knight")
	require.NoError(t, err)
	assert.Equal(t, "Glowing Shadowwood", g.Setting)
	assert.Equal(t, 3, llm.calls)
	assert.Contains(t, llm.system, `"A brave knight"`)
	assert.NotContains(t, llm.system, "{{user_seed}}")
}

func TestServiceExhaustsAttempts(t *testing.T) {
	llm := &scriptedLLM{responses: []func() (json.RawMessage, error){reply([]byte(`{"setting": "x"}`))}}

	_, err := NewService(llm, WithAttempts(2)).Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoryInvalid)
	assert.Equal(t, 2, llm.calls)
}

func TestServiceStopsOnPermanentError(t *testing.T) {
	llm := &scriptedLLM{responses: []func() (json.RawMessage, error){fail(NewPermanentError(errors.New("bad key")))}}

	_, err := NewService(llm).Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrStoryInvalid)
	assert.Equal(t, 1, llm.calls)
}

func TestServiceSeedRejected(t *testing.T) {
	llm := &scriptedLLM{responses: []func() (json.RawMessage, error){reply([]byte(`{"error":"seed_not_allowed"}`))}}

	_, err := NewService(llm).Generate(context.Background(), "something rude")
	assert.ErrorIs(t, err, ErrSeedRejected)
	assert.Equal(t, 1, llm.calls)
}

func TestServiceRejectsEmptyPrompt(t *testing.T) {
	llm := &scriptedLLM{responses: []func() (json.RawMessage, error){reply(mustJSON(t, validStory()))}}
	_, err := NewService(llm).Generate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrStoryInvalid)
	assert.Zero(t, llm.calls)
}

func TestServiceCacheHit(t *testing.T) {
	llm := &scriptedLLM{responses: []func() (json.RawMessage, error){reply(mustJSON(t, validStory()))}}
	cache := NewCache(4, time.Hour)
	svc := NewService(llm, WithCache(cache))

	a, err := svc.Generate(context.Background(), "A Brave Knight")
	require.NoError(t, err)
	a.Images = &Images{Avatar: "assets/avatar_1.png"}

	b, err := svc.Generate(context.Background(), "  a brave   knight ")
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, a.Setting, b.Setting)
	assert.Nil(t, b.Images, "cached stories never carry images")
}

func TestCacheExpires(t *testing.T) {
	c := NewCache(4, 20*time.Millisecond)
	g, _, err := Parse(mustJSON(t, validStory()))
	require.NoError(t, err)

	c.Add("p", g)
	_, ok := c.Get("p")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("p")
	assert.False(t, ok)
}

func TestOfflineLLMProducesValidStory(t *testing.T) {
	svc := NewService(OfflineLLM{})
	g, err := svc.Generate(context.Background(), "A brave knight explores a haunted forest")
	require.NoError(t, err)
	assert.Equal(t, "Brave Knight", g.ProtagonistRole)
	assert.Equal(t, "Whispering Wildwood", g.Setting)
	assert.Empty(t, g.Warnings())

	again, err := svc.Generate(context.Background(), "A brave knight explores a haunted forest")
	require.NoError(t, err)
	assert.Equal(t, g, again)
}

func TestGroqClient(t *testing.T) {
	story := string(mustJSON(t, validStory()))
	var gotAuth string
	var gotReq groqChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": story}}},
		})
	}))
	defer srv.Close()

	c, err := NewGroqClient("k", "", 0.1, time.Second)
	require.NoError(t, err)
	c.WithBaseURL(srv.URL)

	raw, err := c.GenerateJSON(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.JSONEq(t, story, string(raw))
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, DefaultGroqModel, gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
}

func TestGroqClientErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := int(status.Load()); code != http.StatusOK {
			http.Error(w, "nope", code)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "not json"}}},
		})
	}))
	defer srv.Close()

	c, err := NewGroqClient("k", "m", 0, time.Second)
	require.NoError(t, err)
	c.WithBaseURL(srv.URL)

	_, err = c.GenerateJSON(context.Background(), "s", "u")
	var perm *PermanentError
	assert.ErrorAs(t, err, &perm)

	status.Store(http.StatusInternalServerError)
	_, err = c.GenerateJSON(context.Background(), "s", "u")
	require.Error(t, err)
	assert.False(t, errors.As(err, &perm))

	status.Store(http.StatusOK)
	_, err = c.GenerateJSON(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestNewGroqClientNeedsKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	_, err := NewGroqClient("", "", 0, 0)
	assert.Error(t, err)

	t.Setenv("GROQ_API_KEY", "from-env")
	c, err := NewGroqClient("", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "groq:"+DefaultGroqModel, c.Name())
}
