package commands

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeedPlan(t *testing.T) {
	plan := newSeedPlan(gofakeit.New(42), 5, 2, 3, 2)

	require.Len(t, plan.Users, 5)
	assert.Len(t, plan.Posts, 10)
	assert.Len(t, plan.Comments, 30)
	assert.Len(t, plan.Follows, 10)

	emails := map[string]bool{}
	for _, u := range plan.Users {
		assert.False(t, emails[u.Email], "duplicate email %s", u.Email)
		emails[u.Email] = true
		assert.LessOrEqual(t, len(u.Bio), 250)
	}

	edges := map[[2]int]bool{}
	for _, e := range plan.Follows {
		assert.NotEqual(t, e[0], e[1], "self follow")
		assert.False(t, edges[e], "duplicate follow %v", e)
		edges[e] = true
	}
	for _, c := range plan.Comments {
		assert.Less(t, c.Author, 5)
		assert.Less(t, c.Post, 10)
	}
}

func TestNewSeedPlan_Deterministic(t *testing.T) {
	a := newSeedPlan(gofakeit.New(7), 3, 1, 1, 1)
	b := newSeedPlan(gofakeit.New(7), 3, 1, 1, 1)
	assert.Equal(t, a, b)
}

func TestNewSeedPlan_FollowsCapped(t *testing.T) {
	plan := newSeedPlan(gofakeit.New(1), 2, 0, 0, 5)
	assert.Len(t, plan.Follows, 2)

	assert.Empty(t, newSeedPlan(gofakeit.New(1), 0, 2, 2, 2).Posts)
}
