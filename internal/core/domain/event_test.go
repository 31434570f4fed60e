package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	valid := []string{"all", "role:admin", "role:user", "user:u-1", " user:u-1 "}
	for _, s := range valid {
		_, err := ParseTarget(s)
		assert.NoError(t, err, s)
	}

	invalid := []string{"", "user:", "role:guest", "group:x", "ALL"}
	for _, s := range invalid {
		_, err := ParseTarget(s)
		assert.ErrorIs(t, err, ErrInvalidTarget, s)
	}
}

func TestTarget_Matches(t *testing.T) {
	admin := &Identity{UserID: "a-1", Role: RoleAdmin}
	alice := &Identity{UserID: "u-1", Role: RoleUser}
	bob := &Identity{UserID: "u-2", Role: RoleUser}

	tests := []struct {
		target Target
		id     *Identity
		want   bool
	}{
		{TargetAll, nil, true},
		{TargetAll, alice, true},
		{TargetAdmins, admin, true},
		{TargetAdmins, alice, false},
		{TargetAdmins, nil, false},
		{TargetUsers, alice, true},
		{TargetUsers, admin, false},
		{TargetUser("u-1"), alice, true},
		{TargetUser("u-1"), bob, false},
		{TargetUser("u-1"), nil, false},
		{TargetUser("a-1"), admin, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.target.Matches(tt.id), "%s / %+v", tt.target, tt.id)
	}
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent(TagDeleted, TargetAll, DeletedPayload{ID: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x"}`, string(ev.Data))

	_, err = NewEvent(Tag("bogus"), TargetAll, nil)
	assert.ErrorIs(t, err, ErrUnknownTag)

	_, err = NewEvent(TagDeleted, Target("nobody"), DeletedPayload{ID: "x"})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"id":"e-1","seq":7,"type":"deleted","target":"user:u-1","published_at":"2026-03-01T10:00:00Z","data":{"id":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, "e-1", ev.ID)
	assert.Equal(t, uint64(7), ev.Seq)
	assert.Equal(t, TagDeleted, ev.Tag)
	assert.Equal(t, TargetUser("u-1"), ev.Target)

	bad := []string{
		`not json`,
		`{"id":"e-1","type":"bogus","target":"all","data":{}}`,
		`{"id":"e-1","type":"deleted","target":"nobody","data":{}}`,
		`{"type":"deleted","target":"all","data":{}}`,
	}
	for _, frame := range bad {
		_, err := DecodeEvent([]byte(frame))
		assert.True(t, IsMalformed(err), frame)
	}
}

func TestTags_AllHavePayloads(t *testing.T) {
	for _, tag := range Tags() {
		p, err := NewPayload(tag)
		require.NoError(t, err, tag)
		assert.NotNil(t, p, tag)
	}
	_, err := NewPayload(Tag("bogus"))
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestDecodeEvent_NormalizesTarget(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"id":"e-1","type":"deleted","target":" all ","data":{"id":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, TargetAll, ev.Target)
	assert.True(t, ev.Target.Matches(nil))

	ev, err = NewEvent(TagDeleted, Target(" user:u-1"), DeletedPayload{ID: "x"})
	require.NoError(t, err)
	assert.True(t, ev.Target.Matches(&Identity{UserID: "u-1", Role: RoleUser}))
}
