package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/termbase-backend/internal/data/repos"
	"github.com/yungbote/termbase-backend/internal/data/repos/testutil"
	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	httpH "github.com/yungbote/termbase-backend/internal/http/handlers"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/cascade"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/textidentity"
	"github.com/yungbote/termbase-backend/internal/modules/glossary/vecindex"
	"github.com/yungbote/termbase-backend/internal/observability"
	"github.com/yungbote/termbase-backend/internal/platform/embed"
	"github.com/yungbote/termbase-backend/internal/platform/nlp"
	"github.com/yungbote/termbase-backend/internal/platform/redisdb"
	"github.com/yungbote/termbase-backend/internal/services"
)

// heldQueue accepts every job without running it, so graphs and vectors
// stay unbuilt.
type heldQueue struct{ jobs []cascade.Job }

func (q *heldQueue) Enqueue(_ context.Context, job cascade.Job) bool {
	q.jobs = append(q.jobs, job)
	return true
}

type nopExtractor struct{}

func (nopExtractor) Extract(context.Context, string, nlp.Lang) ([]glossary.Triple, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *heldQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SQLite(t)
	log := testutil.Logger(t)

	norm, err := nlp.NewNormalizer()
	require.NoError(t, err)
	identity := textidentity.New(norm, nlp.NewStemmer())
	detector := nlp.NewDetector()
	embedder := embed.NewHashing(embed.DefaultHashingDims)
	locker := redisdb.NewLocalLocker(time.Second)

	topicRepo := repos.NewTopicRepo(db, log)
	termRepo := repos.NewTermRepo(db, log)
	descRepo := repos.NewDescriptionRepo(db, log)
	graphRepo := repos.NewRelationGraphRepo(db, log)
	relationRepo := repos.NewRelationRepo(db, log)
	index := vecindex.New(repos.NewSemanticVectorRepo(db, log), log)

	queue := &heldQueue{}
	coordinator := services.NewCoordinatorService(db, log, services.CoordinatorDeps{
		Topics:       topicRepo,
		Terms:        termRepo,
		Descriptions: descRepo,
		Graphs:       graphRepo,
		Relations:    relationRepo,
		Vectors:      index,
		Extractor:    nopExtractor{},
		Embedder:     embedder,
		Locker:       locker,
		Queue:        queue,
	})
	topics := services.NewTopicService(db, log, topicRepo, coordinator)
	terms := services.NewTermService(db, log, topicRepo, termRepo, identity, detector, coordinator)
	descriptions := services.NewDescriptionService(db, log, termRepo, descRepo, identity, detector, coordinator)
	relations := services.NewRelationService(db, log, descRepo, graphRepo, relationRepo, locker, nil)
	search := services.NewSearchService(db, log, termRepo, descRepo, identity, detector, embedder, index)
	metrics := observability.NewMetrics()

	return NewRouter(RouterConfig{
		Log:                log,
		Metrics:            metrics,
		HealthHandler:      httpH.NewHealthHandler(db),
		TopicHandler:       httpH.NewTopicHandler(topics),
		TermHandler:        httpH.NewTermHandler(terms, descriptions),
		DescriptionHandler: httpH.NewDescriptionHandler(descriptions, relations),
		RelationHandler:    httpH.NewRelationHandler(relations),
		SearchHandler:      httpH.NewSearchHandler(search, metrics),
	}), queue
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && w.Code != http.StatusNoContent {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func errorCode(body map[string]any) string {
	env, _ := body["error"].(map[string]any)
	code, _ := env["code"].(string)
	return code
}

func TestTopicLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	w, body := do(t, r, http.MethodPost, "/api/topics", map[string]any{"name": "Biology"})
	require.Equal(t, http.StatusCreated, w.Code)
	topic := body["topic"].(map[string]any)
	id := topic["id"].(string)

	w, _ = do(t, r, http.MethodPost, "/api/topics", map[string]any{"name": "Biology"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = do(t, r, http.MethodGet, "/api/topics/by-name/Biology", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, body["topic"].(map[string]any)["id"])

	do(t, r, http.MethodPost, "/api/topics", map[string]any{"name": "Chemistry"})
	w, body = do(t, r, http.MethodPut, "/api/topics/"+id, map[string]any{"name": "Chemistry"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_topic_name", errorCode(body))

	w, _ = do(t, r, http.MethodDelete, "/api/topics/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body = do(t, r, http.MethodGet, "/api/topics/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "topic_not_found", errorCode(body))
}

func TestTermAndDescriptionRoutes(t *testing.T) {
	r, queue := newTestRouter(t)

	_, body := do(t, r, http.MethodPost, "/api/topics", map[string]any{"name": "Physics"})
	topicID := body["topic"].(map[string]any)["id"].(string)

	w, body := do(t, r, http.MethodPost, "/api/terms", map[string]any{
		"topic_id": topicID,
		"raw_text": "Running Engines",
		"language": "english",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	term := body["term"].(map[string]any)
	termID := term["id"].(string)

	w, body = do(t, r, http.MethodGet, "/api/terms?topic_id="+topicID+"&first_letter=R", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["terms"], 1)

	w, body = do(t, r, http.MethodGet, "/api/terms?topic_id="+topicID+"&first_letter=r&limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_limit", errorCode(body))

	w, body = do(t, r, http.MethodPost, "/api/descriptions", map[string]any{
		"term_id":  termID,
		"raw_text": "Engines convert fuel into motion.",
		"language": "english",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	descID := body["description"].(map[string]any)["id"].(string)
	assert.Len(t, queue.jobs, 2)

	w, body = do(t, r, http.MethodGet, "/api/terms/"+termID+"/description", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, descID, body["description"].(map[string]any)["id"])

	w, body = do(t, r, http.MethodGet, "/api/descriptions/"+descID+"/graph", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "graph_not_ready", errorCode(body))

	w, _ = do(t, r, http.MethodGet, "/api/descriptions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/api/terms/"+termID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/descriptions/"+descID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w, body := do(t, r, http.MethodPost, "/api/search", map[string]any{"query": "engine", "language": "english"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["hits"])

	w, body = do(t, r, http.MethodPost, "/api/search", map[string]any{"query": "engine", "k": 0, "language": "english"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_k", errorCode(body))

	w, body = do(t, r, http.MethodPost, "/api/search", map[string]any{"query": "engine", "k": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_k", errorCode(body))

	w, _ = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "termbase_search_duration_seconds")
}
