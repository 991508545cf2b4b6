package authz

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/remote"
	"storefront/internal/remote/memstore"
)

func TestCapabilitiesFromRoster(t *testing.T) {
	p := New([]string{" Admin@Shop.io "}, nil, zerolog.Nop())
	ctx := context.Background()

	assert.True(t, p.Capabilities(ctx, models.Identity{UID: "u1", Email: "admin@shop.io"}).CanManageCatalog)
	assert.False(t, p.Capabilities(ctx, models.Identity{UID: "u2", Email: "guest@shop.io"}).CanManageCatalog)
	assert.False(t, p.Capabilities(ctx, models.Identity{}).CanManageCatalog)
}

func TestCapabilitiesFromRoleRecord(t *testing.T) {
	ctx := context.Background()
	docs := memstore.New()
	require.NoError(t, docs.Set(ctx, rolesCollection, "u7", remote.Data{"catalogAdmin": true}))
	require.NoError(t, docs.Set(ctx, rolesCollection, "u8", remote.Data{"catalogAdmin": "yes"}))
	p := New(nil, docs, zerolog.Nop())

	assert.Equal(t, models.Capabilities{CanManageCatalog: true}, p.Capabilities(ctx, models.Identity{UID: "u7"}))
	assert.Equal(t, models.Capabilities{}, p.Capabilities(ctx, models.Identity{UID: "u8"}))
	assert.Equal(t, models.Capabilities{}, p.Capabilities(ctx, models.Identity{UID: "u9"}))
}
