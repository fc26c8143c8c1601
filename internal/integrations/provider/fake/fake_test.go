package fake

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	require.Equal(t, models.CourierUPS, Detect("1Z999AA10123456784"))
	require.Equal(t, models.CourierUPS, Detect("1z999"))
	// детерминированно
	require.Equal(t, Detect("RR123456785CN"), Detect("RR123456785CN"))
	require.True(t, Detect("RR123456785CN").Known())
}

func TestClient_RegisterQueryRemove(t *testing.T) {
	ctx := context.Background()
	c := New()

	_, ok, err := c.QueryExisting(ctx, "1Z999AA10123456784")
	require.NoError(t, err)
	require.False(t, ok)

	res, err := c.Register(ctx, "1Z999AA10123456784", models.CourierAutoDetect)
	require.NoError(t, err)
	require.True(t, res.OK)

	rec, ok, err := c.QueryExisting(ctx, "1Z999AA10123456784")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int(models.CourierUPS), rec.CarrierKey)
	require.Empty(t, rec.Status)

	res, _ = c.Register(ctx, "1Z999AA10123456784", models.CourierAutoDetect)
	require.False(t, res.OK)
	require.Equal(t, CodeAlreadyRegistered, res.Code)

	res, _ = c.Remove(ctx, "1Z999AA10123456784")
	require.True(t, res.OK)
	res, _ = c.Remove(ctx, "1Z999AA10123456784")
	require.False(t, res.OK)

	_, err = c.FetchDetails(ctx, "1Z999AA10123456784")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestClient_ListTracked_AndUpdate(t *testing.T) {
	ctx := context.Background()
	c := New()
	_, _ = c.Register(ctx, "B2", models.CourierDHL)
	_, _ = c.Register(ctx, "A1", models.CourierAutoDetect)

	now := time.Now().UTC()
	require.True(t, c.Update("A1", "InTransit", &models.TrackingEvent{Time: &now, Description: "Departed"}))
	require.False(t, c.Update("Z9", "InTransit", nil))

	items, err := c.ListTracked(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "A1", items[0].Number)
	require.Equal(t, "InTransit", items[0].PackageStatus)
	require.Equal(t, "Departed", items[0].LatestEventInfo)
	require.Equal(t, "B2", items[1].Number)
	require.Empty(t, items[1].PackageStatus)
}
