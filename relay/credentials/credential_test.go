package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGroupIDs(t *testing.T) {
	cases := []struct {
		in   string
		want []int64
	}{
		{in: "123", want: []int64{-123}},
		{in: "-123, -456", want: []int64{-123, -456}},
		{in: " 123 ,456,  -789 ", want: []int64{-123, -456, -789}},
		{in: "1,2,3,", want: []int64{-1, -2, -3}},
		{in: "5,-5,5", want: []int64{-5, -5, -5}},
		{in: "123, 0", want: []int64{-123, 0}},
		{in: "0", want: []int64{0}},
	}
	for _, tc := range cases {
		got, err := ParseGroupIDs(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseGroupIDsRejectsWholeInput(t *testing.T) {
	for _, in := range []string{"", "   ", ",", " , ,", "12, abc", "12 34", "1.5", "club123"} {
		got, err := ParseGroupIDs(in)
		require.ErrorIs(t, err, ErrInvalidGroupIDs, in)
		require.Nil(t, got, in)
	}
}

func TestParseStoriesID(t *testing.T) {
	id, err := ParseStoriesID(" 42 ")
	require.NoError(t, err)
	require.Equal(t, int64(-42), id)

	id, err = ParseStoriesID("-42")
	require.NoError(t, err)
	require.Equal(t, int64(-42), id)

	id, err = ParseStoriesID("0")
	require.NoError(t, err)
	require.Equal(t, int64(0), id)

	for _, in := range []string{"", "abc", "1,2"} {
		_, err := ParseStoriesID(in)
		require.ErrorIs(t, err, ErrInvalidStoriesID, in)
	}
}

func TestJoinSplitGroupIDs(t *testing.T) {
	ids := []int64{-1, -22, -333}
	raw := JoinGroupIDs(ids)
	require.Equal(t, "-1,-22,-333", raw)
	back, err := SplitGroupIDs(raw)
	require.NoError(t, err)
	require.Equal(t, ids, back)
}

func TestMemoryStoreStoriesDefaultsToFirstGroup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, Input{UserID: 7, Token: " tok ", GroupIDs: []int64{-10, -20}}))
	cred, ok, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok", cred.Token)
	require.Equal(t, int64(-10), cred.StoriesGroupID)
	require.False(t, cred.StoriesExplicit)

	// The default follows the group list at read time.
	require.NoError(t, store.Set(ctx, Input{UserID: 7, Token: "tok", GroupIDs: []int64{-20, -10}}))
	cred, _, _ = store.Get(ctx, 7)
	require.Equal(t, int64(-20), cred.StoriesGroupID)
}

func TestMemoryStoreExplicitStoriesTarget(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	stories := int64(-99)

	require.NoError(t, store.Set(ctx, Input{UserID: 1, Token: "t", GroupIDs: []int64{-10, -20}, StoriesGroupID: &stories}))
	cred, ok, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(-99), cred.StoriesGroupID)
	require.True(t, cred.StoriesExplicit)

	require.NoError(t, store.Set(ctx, Input{UserID: 1, Token: "t", GroupIDs: []int64{-20, -10}, StoriesGroupID: &stories}))
	cred, _, _ = store.Get(ctx, 1)
	require.Equal(t, int64(-99), cred.StoriesGroupID)
}

func TestMemoryStoreRejectsInvalidInput(t *testing.T) {
	store := NewMemoryStore()
	require.ErrorIs(t, store.Set(context.Background(), Input{UserID: 1, Token: "t"}), ErrInvalidGroupIDs)
	require.ErrorIs(t, store.Set(context.Background(), Input{UserID: 1, Token: "  ", GroupIDs: []int64{-1}}), ErrEmptyToken)
}
