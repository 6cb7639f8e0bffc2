package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/config"
	"github.com/namelens/reachlens/internal/core"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	cfg.Store.Disabled = true
	cfg.DNS.Servers = []string{"127.0.0.1:1"}
	return cfg
}

func TestResolverSetCachesProfiles(t *testing.T) {
	set, err := newResolverSet(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer set.Close() // nolint:errcheck
	require.Nil(t, set.Store())

	quick, err := set.Resolver("quick")
	require.NoError(t, err)
	again, err := set.Resolver(" QUICK ")
	require.NoError(t, err)
	require.Same(t, quick, again)

	builtin, ok := core.FindBuiltInProfile("quick")
	require.True(t, ok)
	opts := quick.Options()
	require.Len(t, opts.Priority, len(builtin.Priority))
	require.Equal(t, builtin.ExtraRules, opts.ExtraRules)

	_, err = set.Resolver("no-such-profile")
	require.True(t, errors.Is(err, config.ErrUnknownProfile))
}

func TestResolverSetReload(t *testing.T) {
	cfg := testConfig(t)
	set, err := newResolverSet(context.Background(), cfg)
	require.NoError(t, err)
	defer set.Close() // nolint:errcheck

	before, err := set.Resolver("")
	require.NoError(t, err)

	reloaded := *cfg
	reloaded.Lookup.Priority = []string{"dns"}
	set.reload(&reloaded)

	after, err := set.Resolver("")
	require.NoError(t, err)
	require.NotSame(t, before, after)
	require.Len(t, after.Options().Priority, 1)
}

func TestResolveSyntaxThroughSet(t *testing.T) {
	set, err := newResolverSet(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer set.Close() // nolint:errcheck

	resolver, err := set.Resolver("")
	require.NoError(t, err)

	st, err := resolver.ResolveSyntax("example.com")
	require.NoError(t, err)
	require.Equal(t, core.StatusValid, st.Status)

	st, err = resolver.ResolveSyntax("not a domain")
	require.NoError(t, err)
	require.Equal(t, core.StatusInvalid, st.Status)
}

func TestListProfilesShadowsBuiltins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Profiles = []core.Profile{{Name: "quick", Priority: []string{"dns"}}, {Name: "mine", Priority: []string{"http"}}}

	entries := listProfiles(cfg)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.profile.Name)
		if entry.profile.Name == "quick" {
			require.False(t, entry.builtin)
		}
	}
	require.Len(t, entries, len(core.BuiltInProfiles)+1)
	require.Equal(t, []string{"quick", "mine"}, names[:2])
}
