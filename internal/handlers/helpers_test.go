package handlers_test

import (
	"CardKeeper/internal/backup"
	"CardKeeper/internal/config"
	"CardKeeper/internal/handlers"
	"CardKeeper/internal/middleware"
	"CardKeeper/internal/model"
	"CardKeeper/internal/repo"
	"CardKeeper/internal/service"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// Minimal mocks
type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, f repo.UserFilter) ([]model.User, int64, error) {
	args := m.Called(ctx, f)
	users, _ := args.Get(0).([]model.User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *mockUserRepo) SoftDelete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) Reactivate(ctx context.Context, id int64, r repo.Reactivation) error {
	return m.Called(ctx, id, r).Error(0)
}

var _ repo.UserRepository = (*mockUserRepo)(nil)

type mockBackups struct{ mock.Mock }

func (m *mockBackups) Capture(ctx context.Context) (backup.Artifact, error) {
	args := m.Called(ctx)
	return args.Get(0).(backup.Artifact), args.Error(1)
}

func (m *mockBackups) List(page, pageSize int) (backup.Page, error) {
	args := m.Called(page, pageSize)
	return args.Get(0).(backup.Page), args.Error(1)
}

func (m *mockBackups) Restore(ctx context.Context, name string) (backup.RestoreResult, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(backup.RestoreResult), args.Error(1)
}

func (m *mockBackups) Verify(ctx context.Context, name string) (backup.Artifact, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(backup.Artifact), args.Error(1)
}

// --- Helpers ---
func newTestRouter(t *testing.T, ur repo.UserRepository, b *mockBackups) http.Handler {
	t.Helper()
	cfg := &config.Config{AuthSecret: testSecret}
	logger := zap.NewNop().Sugar()

	userSvc := service.NewUserService(ur)
	backupSvc := service.NewBackupService(b, b, b, logger, time.Minute)

	h := handlers.NewHandler(userSvc, backupSvc, logger, cfg)
	return h.Router
}

// adminID — учётная запись, от имени которой ходит adminRequest.
const adminID int64 = 1

// expectAccount описывает запись, которую WithAuth найдёт по id из токена.
func expectAccount(m *mockUserRepo, u *model.User) {
	m.On("GetByID", mock.Anything, u.ID).Return(u, nil)
}

func expectAdmin(m *mockUserRepo) {
	expectAccount(m, &model.User{ID: adminID, Username: "boss", Role: model.RoleAdmin})
}

func adminRepo() *mockUserRepo {
	m := new(mockUserRepo)
	expectAdmin(m)
	return m
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64, role string) {
	t.Helper()
	rr := httptest.NewRecorder()
	_ = middleware.SetLoginCookie(rr, userID, role, testSecret)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

func hasAuthCookie(rr *httptest.ResponseRecorder) bool {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "auth_token" && c.Value != "" {
			return true
		}
	}
	return false
}
