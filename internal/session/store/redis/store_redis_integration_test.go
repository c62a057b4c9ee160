//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"trustid/internal/domain"
	"trustid/internal/session"
	sessionredis "trustid/internal/session/store/redis"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *sessionredis.Store
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = sessionredis.New(s.redis.Client, sessionredis.WithPrefix("test"))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestKeyLayout() {
	s.Equal("test:kyc_user", s.store.Key())
	s.Equal("trustid:kyc_user", sessionredis.New(s.redis.Client).Key())
}

func (s *RedisStoreSuite) TestLoadMissing() {
	_, err := s.store.Load(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSaveLoadDelete() {
	ctx := context.Background()

	s.Require().NoError(s.store.Save(ctx, []byte(`{"id":"u1"}`)))
	got, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.JSONEq(`{"id":"u1"}`, string(got))

	ttl, err := s.redis.Client.TTL(ctx, s.store.Key()).Result()
	s.Require().NoError(err)
	s.Equal(int64(-1), int64(ttl), "session record should not expire")

	s.Require().NoError(s.store.Delete(ctx))
	s.Require().NoError(s.store.Delete(ctx))
	_, err = s.store.Load(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSessionSharedAcrossManagers() {
	ctx := context.Background()
	first := session.NewManager(s.store)
	first.Restore(ctx)

	user := domain.Identity{ID: "u1", DisplayName: "A", Email: "a@b.com", Role: domain.RoleCustomer}
	s.Require().NoError(first.CompleteLogin(ctx, user))

	second := session.NewManager(sessionredis.New(s.redis.Client, sessionredis.WithPrefix("test")))
	restored := second.Restore(ctx)
	s.Require().True(restored.Authenticated())
	s.Equal(user, *restored.Identity)

	s.Require().NoError(second.Logout(ctx))
	third := session.NewManager(s.store)
	s.False(third.Restore(ctx).Authenticated())
}
