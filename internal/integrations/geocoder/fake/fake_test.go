package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeClient_SuggestAndDetails(t *testing.T) {
	c := New()
	ctx := context.Background()

	sugg, err := c.Suggest(ctx, "madison", "US", nil)
	require.NoError(t, err)
	require.Len(t, sugg, 1)

	addr, err := c.PlaceDetails(ctx, sugg[0].PlaceID)
	require.NoError(t, err)
	require.Equal(t, "10016", addr.PostalCode)
}

func TestFakeClient_SuggestEmptyInput(t *testing.T) {
	c := New()
	sugg, err := c.Suggest(context.Background(), "", "US", nil)
	require.NoError(t, err)
	require.Empty(t, sugg)
}

func TestFakeClient_UnknownPlace(t *testing.T) {
	c := New()
	_, err := c.PlaceDetails(context.Background(), "place_nope")
	require.Error(t, err)
}
