//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"smartgn/internal/identity/revocation"
	"smartgn/pkg/testutil/containers"

	"github.com/stretchr/testify/suite"
)

type RedisListSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *revocation.RedisList
}

func TestRedisListSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisListSuite))
}

func (s *RedisListSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.list = revocation.NewRedisList(s.redis.Client)
}

func (s *RedisListSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisListSuite) TestRevokeAndCheck() {
	ctx := context.Background()
	s.Require().NoError(s.list.Revoke(ctx, "jti-a", time.Minute))

	revoked, err := s.list.IsRevoked(ctx, "jti-a")
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.list.IsRevoked(ctx, "jti-b")
	s.Require().NoError(err)
	s.False(revoked)

	ttl, err := s.redis.Client.TTL(ctx, "revoked_jti:jti-a").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)
}

func (s *RedisListSuite) TestKeyExpires() {
	ctx := context.Background()
	s.Require().NoError(s.list.Revoke(ctx, "jti-short", 1*time.Second))

	s.Eventually(func() bool {
		revoked, err := s.list.IsRevoked(ctx, "jti-short")
		return err == nil && !revoked
	}, 5*time.Second, 200*time.Millisecond)
}
