package sender_test

import (
	"testing"
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/stretchr/testify/require"
)

func TestDirectory_Touch(t *testing.T) {
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	dir := sender.Directory{}

	dir.Touch(sender.Sighting{Email: "Carol@Y.org", Name: "Carol"}, at)
	p := dir["carol@y.org"]
	require.Equal(t, "Carol", p.Name)
	require.Equal(t, at, *p.LastSeenAt)
	require.Equal(t, sender.ImportanceNormal, p.Importance)

	dir.Touch(sender.Sighting{Email: "carol@y.org", Name: "C."}, at.Add(-time.Hour))
	p = dir["carol@y.org"]
	require.Equal(t, "Carol", p.Name)
	require.Equal(t, at, *p.LastSeenAt)
}

func TestProfile_Merge_PinSemantics(t *testing.T) {
	p := sender.NewProfile("a@b.c")
	p.Merge(sender.Patch{Pin: true})
	require.True(t, p.Pinned)

	p.Merge(sender.Patch{})
	require.True(t, p.Pinned)

	p.Merge(sender.Patch{Pin: true, Unpin: true})
	require.False(t, p.Pinned)
}

func TestValidateAddress(t *testing.T) {
	require.NoError(t, sender.ValidateAddress("a@b.c"))
	require.ErrorIs(t, sender.ValidateAddress(""), sender.ErrInvalidAddress)
	require.ErrorIs(t, sender.ValidateAddress("@b.c"), sender.ErrInvalidAddress)
	require.ErrorIs(t, sender.ValidateAddress("a@"), sender.ErrInvalidAddress)
	require.ErrorIs(t, sender.ValidateAddress("Bob <bob@x.com>"), sender.ErrInvalidAddress)
}
