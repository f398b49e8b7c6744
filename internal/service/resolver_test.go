package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macwatch/internal/domain"
)

func orgNames(orgs []domain.Organization) []string {
	names := make([]string, 0, len(orgs))
	for _, o := range orgs {
		names = append(names, o.Name)
	}
	return names
}

func TestResolver_SingleBlock(t *testing.T) {
	ranges, _ := newTestStores(t)
	seed(t, ranges, assign(t, domain.ClassMAL, 0x0050C2, "Acme", "1 Road"))
	resolver := NewResolver(ranges)
	ctx := context.Background()

	t.Run("inside the block", func(t *testing.T) {
		orgs, err := resolver.Resolve(ctx, 0x0050C2123456)
		require.NoError(t, err)
		require.Len(t, orgs, 1)
		assert.Equal(t, "Acme", orgs[0].Name)
		assert.Equal(t, "1 Road", orgs[0].Address)
	})

	t.Run("both ends of the block", func(t *testing.T) {
		for _, mac := range []uint64{0x0050C2000000, 0x0050C2FFFFFF} {
			orgs, err := resolver.Resolve(ctx, mac)
			require.NoError(t, err)
			assert.Equal(t, []string{"Acme"}, orgNames(orgs))
		}
	})

	t.Run("outside the block", func(t *testing.T) {
		orgs, err := resolver.Resolve(ctx, 0x0050C3000000)
		require.NoError(t, err)
		assert.NotNil(t, orgs)
		assert.Empty(t, orgs)
	})

	t.Run("from a string", func(t *testing.T) {
		orgs, err := resolver.ResolveString(ctx, "00-50-C2-12-34-56")
		require.NoError(t, err)
		assert.Equal(t, []string{"Acme"}, orgNames(orgs))
	})
}

func TestResolver_InvalidInput(t *testing.T) {
	ranges, _ := newTestStores(t)
	resolver := NewResolver(ranges)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, 1<<48)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = resolver.ResolveString(ctx, "not a mac")
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, err = resolver.ResolveString(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
}

func TestResolver_NestedAndDuplicate(t *testing.T) {
	ranges, _ := newTestStores(t)
	seed(t, ranges,
		assign(t, domain.ClassMAL, 0x0050C2, "Large", ""),
		assign(t, domain.ClassMAS, 0x0050C2123, "Small", ""),
		// Large also owns the MA-M block around the MA-S block
		assign(t, domain.ClassMAM, 0x0050C21, "Large", ""),
	)
	resolver := NewResolver(ranges)

	orgs, err := resolver.Resolve(context.Background(), 0x0050C2123456)
	require.NoError(t, err)
	assert.Equal(t, []string{"Small", "Large"}, orgNames(orgs))
}

func TestResolver_SameNameDifferentAddress(t *testing.T) {
	ranges, _ := newTestStores(t)
	seed(t, ranges,
		assign(t, domain.ClassMAL, 0x0050C2, "Acme", "1 Road"),
		assign(t, domain.ClassMAS, 0x0050C2123, "Acme", "2 Street"),
	)

	orgs, err := NewResolver(ranges).Resolve(context.Background(), 0x0050C2123456)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "2 Street", orgs[0].Address)
	assert.Equal(t, "1 Road", orgs[1].Address)
}
