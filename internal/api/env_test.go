package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
)

const testInternalSecret = "internal-test-secret"

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(q.tasks)), Type: task.Type(), Payload: task.Payload()}, nil
}

type fakeStorage struct {
	mu       sync.Mutex
	prefixes []string
}

func (s *fakeStorage) GeneratePresignedURLWithParams(_ context.Context, objectKey string, _ time.Duration, _ map[string]string) (string, error) {
	return "https://storage.invalid/" + objectKey, nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes = append(s.prefixes, prefix)
	return nil
}

type testEnv struct {
	t       *testing.T
	db      *gorm.DB
	router  *gin.Engine
	queue   *fakeQueue
	storage *fakeStorage
	auth    *auth.AuthService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedCatalog(context.Background(), db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	authService := auth.NewAuthServiceWithKeys(key, &key.PublicKey, 15*time.Minute, 24*time.Hour)

	env := &testEnv{
		t:       t,
		db:      newTestDB(t),
		queue:   &fakeQueue{},
		storage: &fakeStorage{},
		auth:    authService,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gin.New()
	router.Use(middleware.CorrelationIDMiddleware(), middleware.RequestLogger(log))
	RegisterRoutes(router, Deps{
		DB:      env.db,
		Queue:   env.queue,
		Storage: env.storage,
		Auth:    authService,
		Logger:  log,
		API:     config.APIConfig{MaxResumes: 5, InternalSecret: testInternalSecret},
		AuthCfg: config.AuthConfig{},
	})
	env.router = router
	return env
}

func (e *testEnv) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// register 注册用户并返回 access token。
func (e *testEnv) register(email string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/v1/auth/register", "", gin.H{"email": email, "name": "Test", "password": "password123"})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[tokenResponse](e.t, w).AccessToken
}

func (e *testEnv) sectionTypeID(key string) uint {
	e.t.Helper()
	var st database.SectionType
	require.NoError(e.t, e.db.Where(&database.SectionType{Key: key}).First(&st).Error)
	return st.ID
}
