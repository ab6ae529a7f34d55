package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/sitechat/pkg/chat"
	"github.com/mikeboe/sitechat/pkg/chunker"
	"github.com/mikeboe/sitechat/pkg/config"
	"github.com/mikeboe/sitechat/pkg/crawler"
	"github.com/mikeboe/sitechat/pkg/pipeline"
	"github.com/mikeboe/sitechat/pkg/vectorstore"
)

type hashEmbedder struct{}

func (hashEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f := fnv.New32a()
	_, _ = f.Write([]byte(strings.ToLower(text)))
	sum := f.Sum32()
	return []float32{float32(sum&0xff) + 1, float32((sum>>8)&0xff) + 1, 1}, nil
}

func (hashEmbedder) Dimension() int { return 3 }

// echoModel answers with the number of messages it was sent.
type echoModel struct{}

func (m *echoModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: fmt.Sprintf(" answer %d ", len(messages))}}}, nil
}

func (m *echoModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type testEnv struct {
	router  *gin.Engine
	service *Service
	store   *vectorstore.ChromemStore
	site    *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><body><p>We repair bikes.</p><a href="/hours">Hours</a></body></html>`)
		case "/hours":
			fmt.Fprint(w, `<html><body><p>Open Monday to Friday.</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})
	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)

	store, err := vectorstore.NewChromemStore("", "website_chatbot", 3)
	require.NoError(t, err)

	settings, err := config.NewSettingsStore(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	responder := chat.NewResponder(hashEmbedder{}, store, chat.NewLLMGenerator(&echoModel{}),
		chat.WithPersona(func() string { return settings.Get().PersonaName() }))
	chatSvc := chat.NewService(responder, chat.NewMemoryStore())

	svc := NewService(NewMemoryJobStore(), pipeline.Components{
		Renderers: crawler.NewStaticFactory(crawler.StaticOptions{}),
		Chunker:   chunker.NewWindowChunker(1500, 200),
		Embedder:  hashEmbedder{},
		Store:     store,
		BatchSize: 100,
	}, 10)

	h := NewHandler(svc, chatSvc, settings, NewMCPHandler(NewMCPServer(responder, "test")))
	return &testEnv{router: NewRouter(h), service: svc, store: store, site: site}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSettingsRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, config.DefaultAppTitle, decode[config.Settings](t, w).AppTitle)

	w = env.do(t, http.MethodPut, "/api/settings", config.Settings{AppTitle: "Bike Shop Bot", Persona: "Bike Shop"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/settings", nil)
	got := decode[config.Settings](t, w)
	assert.Equal(t, "Bike Shop Bot", got.AppTitle)
	assert.Equal(t, "Bike Shop", got.Persona)
}

func TestConversationRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/chat/conversations", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	conv := decode[chat.Conversation](t, w)

	path := "/api/chat/conversations/" + conv.ID.String() + "/messages"
	w = env.do(t, http.MethodPost, path, map[string]string{"content": "When are you open?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	// system prompt + question
	assert.Equal(t, "answer 2", decode[map[string]any](t, w)["answer"])

	w = env.do(t, http.MethodPost, path, map[string]string{"content": "And on weekends?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "answer 4", decode[map[string]any](t, w)["answer"])

	w = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]chat.Message](t, w)
	require.Len(t, msgs, 4)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.Equal(t, "answer 2", msgs[1].Content)

	w = env.do(t, http.MethodGet, "/api/chat/conversations", nil)
	convs := decode[[]chat.Conversation](t, w)
	require.Len(t, convs, 1)
	assert.Equal(t, "When are you open?", convs[0].Title)
}

func TestConversationErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/chat/conversations/not-a-uuid/messages", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/chat/conversations/6f1c1d4e-8d4b-4a57-9a0e-1f2b3c4d5e6f/messages", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/chat/conversations", nil)
	conv := decode[chat.Conversation](t, w)
	w = env.do(t, http.MethodPost, "/api/chat/conversations/"+conv.ID.String()+"/messages", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/chat/conversations/"+conv.ID.String()+"/messages", map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/ingest", CreateJobRequest{URL: "ftp://nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/ingest", CreateJobRequest{URL: env.site.URL})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	job := decode[Job](t, w)
	assert.Equal(t, 10, job.MaxPages)

	env.service.Wait()

	w = env.do(t, http.MethodGet, "/api/ingest/"+job.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[Job](t, w)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, 2, got.Chunks)
	assert.Equal(t, 2, got.Upserted)
	assert.Nil(t, got.Error)
	assert.Equal(t, 2, env.store.Count())

	w = env.do(t, http.MethodGet, "/api/ingest/"+job.ID.String()+"/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[[]LogEntry](t, w)
	require.NotEmpty(t, logs)
	assert.Equal(t, "Starting ingest", logs[0].Message)
	assert.Equal(t, "Ingest completed", logs[len(logs)-1].Message)

	w = env.do(t, http.MethodGet, "/api/ingest", nil)
	assert.Len(t, decode[[]Job](t, w), 1)

	w = env.do(t, http.MethodGet, "/api/ingest/6f1c1d4e-8d4b-4a57-9a0e-1f2b3c4d5e6f", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestJobFailure(t *testing.T) {
	env := newTestEnv(t)
	env.service.Components.Store = mustStore(t, 5)

	w := env.do(t, http.MethodPost, "/api/ingest", CreateJobRequest{URL: env.site.URL, MaxPages: 1})
	require.Equal(t, http.StatusCreated, w.Code)
	job := decode[Job](t, w)
	env.service.Wait()

	got, err := env.service.Jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "dimension mismatch")
	assert.Equal(t, 1, got.Pages)
}

func mustStore(t *testing.T, dim int) *vectorstore.ChromemStore {
	t.Helper()
	s, err := vectorstore.NewChromemStore("", "website_chatbot", dim)
	require.NoError(t, err)
	return s
}
