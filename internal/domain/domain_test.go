package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", ErrPartyNotFound, KindNotFound},
		{"wrapped conflict", fmt.Errorf("join: %w", ErrTeamFull), KindConflict},
		{"forbidden", ErrNotCreator, KindForbidden},
		{"invalid", ErrInvalidPartyType, KindInvalidInput},
		{"plain", errors.New("disk on fire"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPartyTeams(t *testing.T) {
	p := &Party{Members: []Member{
		{UserID: "a", Team: 0},
		{UserID: "b", Team: 1},
		{UserID: "c", Team: 1},
		{UserID: "d", Team: 2},
	}}

	if p.TeamCount(1) != 2 || p.TeamCount(2) != 1 || p.TeamCount(WaitingRoom) != 1 {
		t.Errorf("unexpected team counts")
	}
	if got := p.TeamMembers(1); len(got) != 2 || got[0].UserID != "b" {
		t.Errorf("TeamMembers(1) = %+v", got)
	}
	if p.MemberIndex("d") != 3 || p.HasMember("z") {
		t.Errorf("membership lookup failed")
	}
}

func TestRoleOrdering(t *testing.T) {
	if !RoleAdmin.AtLeast(RoleMember) || RoleGuest.AtLeast(RoleMember) || !RoleMember.AtLeast(RoleMember) {
		t.Error("role ordering broken")
	}
	if _, err := ParseRole("owner"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseRole(owner) err = %v", err)
	}
}
