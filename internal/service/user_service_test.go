package service

import (
	"CardKeeper/internal/model"
	"CardKeeper/internal/repo"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	m := new(mockUserRepo)
	svc := NewUserService(m, WithAdminUsername("root"))

	t.Run("ok when login free", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetUserByLogin", mock.Anything, "john").Return((*model.User)(nil), gorm.ErrRecordNotFound).Once()
		created := &model.User{ID: 10, Username: "john"}
		m.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Username == "john" && u.Email == "john@x.io" && u.PasswordHash != "" && u.Role == model.RoleUser
		})).Return(created, nil).Once()

		user, err := svc.Register(ctx, " john ", "john@x.io", "p@ss")
		assert.NoError(t, err)
		assert.Equal(t, int64(10), user.ID)
		m.AssertExpectations(t)
	})

	t.Run("admin username gets admin role", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetUserByLogin", mock.Anything, "root").Return((*model.User)(nil), gorm.ErrRecordNotFound).Once()
		m.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Role == model.RoleAdmin
		})).Return(&model.User{ID: 1, Username: "root", Role: model.RoleAdmin}, nil).Once()

		user, err := svc.Register(ctx, "root", "root@x.io", "p")
		assert.NoError(t, err)
		assert.True(t, user.IsAdmin())
		m.AssertExpectations(t)
	})

	t.Run("conflict when login taken", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetUserByLogin", mock.Anything, "john").Return(&model.User{ID: 1, Username: "john"}, nil).Once()

		user, err := svc.Register(ctx, "john", "john@x.io", "p@ss")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrLoginTaken)
		m.AssertExpectations(t)
	})

	t.Run("email conflict from repo", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetUserByLogin", mock.Anything, "jane").Return((*model.User)(nil), gorm.ErrRecordNotFound).Once()
		m.On("CreateUser", mock.Anything, mock.Anything).Return((*model.User)(nil), repo.ErrConflict).Once()

		_, err := svc.Register(ctx, "jane", "john@x.io", "p")
		assert.ErrorIs(t, err, ErrLoginTaken)
	})

	t.Run("validation", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		_, err := svc.Register(ctx, "", "a@x.io", "p")
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.Register(ctx, "a", "not-an-email", "p")
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.Register(ctx, "a", "a@x.io", "")
		assert.ErrorIs(t, err, ErrValidation)
		m.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	m := new(mockUserRepo)
	svc := NewUserService(m)

	// готовим хеш для пароля "secret"
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)

	t.Run("ok with valid credentials", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetUserByLogin", mock.Anything, "alice").Return(&model.User{ID: 2, Username: "alice", PasswordHash: string(hash)}, nil).Once()

		user, err := svc.Login(ctx, "alice", "secret")
		assert.NoError(t, err)
		assert.Equal(t, int64(2), user.ID)
		m.AssertExpectations(t)
	})

	t.Run("invalid password", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetUserByLogin", mock.Anything, "alice").Return(&model.User{ID: 2, Username: "alice", PasswordHash: string(hash)}, nil).Once()

		user, err := svc.Login(ctx, "alice", "wrong")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		m.AssertExpectations(t)
	})

	t.Run("soft-deleted cannot log in", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetUserByLogin", mock.Anything, "alice").Return(&model.User{ID: 2, Username: "alice", PasswordHash: string(hash), IsDeleted: true}, nil).Once()

		_, err := svc.Login(ctx, "alice", "secret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetUserByLogin", mock.Anything, "ghost").Return((*model.User)(nil), gorm.ErrRecordNotFound).Once()

		_, err := svc.Login(ctx, "ghost", "secret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_Reactivate(t *testing.T) {
	ctx := context.Background()
	m := new(mockUserRepo)
	svc := NewUserService(m)

	deleted := func(id int64) {
		m.On("GetByID", mock.Anything, id).Return(&model.User{ID: id, Username: "old", Email: "old@x.io", IsDeleted: true}, nil)
	}

	t.Run("fresh identity with new password", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		deleted(7)
		m.On("Reactivate", mock.Anything, int64(7), mock.MatchedBy(func(r repo.Reactivation) bool {
			return r.Username == "bob2" && r.Email == "bob2@x.io" &&
				bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte("n3w")) == nil
		})).Return(nil).Once()

		err := svc.Reactivate(ctx, 7, ReactivateInput{Username: " bob2 ", Email: "bob2@x.io", Password: strPtr("n3w")})
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("password untouched when absent", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		deleted(7)
		m.On("Reactivate", mock.Anything, int64(7), repo.Reactivation{Username: "bob", Email: "bob@x.io"}).Return(nil).Once()

		assert.NoError(t, svc.Reactivate(ctx, 7, ReactivateInput{Username: "bob", Email: "bob@x.io"}))
		m.AssertExpectations(t)
	})

	t.Run("active account is rejected before field checks", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetByID", mock.Anything, int64(3)).Return(&model.User{ID: 3, Username: "alive"}, nil)

		for _, in := range []ReactivateInput{
			{Username: "a"},
			{},
			{Username: "a", Email: "a@x.io"},
		} {
			assert.ErrorIs(t, svc.Reactivate(ctx, 3, in), ErrNotDeleted, "%+v", in)
		}
		m.AssertNotCalled(t, "Reactivate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown account is rejected before field checks", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		m.On("GetByID", mock.Anything, int64(999)).Return(nil, gorm.ErrRecordNotFound)

		assert.ErrorIs(t, svc.Reactivate(ctx, 999, ReactivateInput{}), ErrUserNotFound)
		m.AssertNotCalled(t, "Reactivate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid fields never reach the update", func(t *testing.T) {
		m.ExpectedCalls, m.Calls = nil, nil
		deleted(7)
		cases := []ReactivateInput{
			{Username: "", Email: "a@x.io"},
			{Username: "a", Email: "   "},
			{Username: "a", Email: "nope"},
			{Username: "a", Email: "a@x.io", Password: strPtr("")},
		}
		for _, in := range cases {
			assert.ErrorIs(t, svc.Reactivate(ctx, 7, in), ErrValidation, "%+v", in)
		}
		m.AssertNotCalled(t, "Reactivate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository errors are mapped", func(t *testing.T) {
		cases := map[error]error{
			gorm.ErrRecordNotFound: ErrUserNotFound,
			repo.ErrNotDeleted:     ErrNotDeleted,
			repo.ErrConflict:       ErrLoginTaken,
		}
		for repoErr, want := range cases {
			m.ExpectedCalls, m.Calls = nil, nil
			deleted(9)
			m.On("Reactivate", mock.Anything, int64(9), mock.Anything).Return(repoErr).Once()
			err := svc.Reactivate(ctx, 9, ReactivateInput{Username: "x", Email: "x@x.io"})
			assert.ErrorIs(t, err, want)
		}
	})
}

func TestUserService_GetByID(t *testing.T) {
	ctx := context.Background()
	m := new(mockUserRepo)
	svc := NewUserService(m)

	m.On("GetByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, Username: "a"}, nil).Once()
	m.On("GetByID", mock.Anything, int64(2)).Return(nil, gorm.ErrRecordNotFound).Once()

	u, err := svc.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", u.Username)

	_, err = svc.GetByID(ctx, 2)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_SoftDeleteAndList(t *testing.T) {
	ctx := context.Background()
	m := new(mockUserRepo)
	svc := NewUserService(m)

	m.On("SoftDelete", mock.Anything, int64(1)).Return(nil).Once()
	m.On("SoftDelete", mock.Anything, int64(2)).Return(gorm.ErrRecordNotFound).Once()
	m.On("SoftDelete", mock.Anything, int64(3)).Return(repo.ErrAlreadyDeleted).Once()
	assert.NoError(t, svc.SoftDelete(ctx, 1))
	assert.ErrorIs(t, svc.SoftDelete(ctx, 2), ErrUserNotFound)
	assert.ErrorIs(t, svc.SoftDelete(ctx, 3), ErrAlreadyDeleted)

	m.On("List", mock.Anything, repo.UserFilter{Email: "corp", IncludeDeleted: true, Offset: 10, Limit: 10}).
		Return([]model.User{{ID: 11}}, int64(11), nil).Once()
	users, total, err := svc.List(ctx, "corp", 2, 0)
	assert.NoError(t, err)
	assert.EqualValues(t, 11, total)
	assert.Len(t, users, 1)
	m.AssertExpectations(t)
}
