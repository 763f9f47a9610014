/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/database"
	"github.com/uptrace/bun"
)

func TestNewMemberChangesTeam(t *testing.T) {
	teamA := &Team{ID: 1, Name: "teamA"}
	m := NewMember("member1", 10, teamA)

	assert.Same(t, teamA, m.Team)
	if assert.NotNil(t, m.TeamID) {
		assert.EqualValues(t, 1, *m.TeamID)
	}
	assert.Equal(t, []*Member{m}, teamA.Members)

	m.ChangeTeam(nil)
	assert.Nil(t, m.Team)
	assert.Nil(t, m.TeamID)
}

func TestChangeTeamBeforeTeamIsPersisted(t *testing.T) {
	m := NewMember("member1", 10, NewTeam("draft"))
	assert.NotNil(t, m.Team)
	assert.Nil(t, m.TeamID)
}

func TestMemberHookCopiesTeamID(t *testing.T) {
	team := NewTeam("teamA")
	m := NewMember("member1", 10, team)

	err := m.BeforeAppendModel(context.Background(), &bun.InsertQuery{})
	assert.ErrorIs(t, err, database.ErrConstraintViolation)
	assert.Nil(t, m.TeamID)

	team.ID = 7
	require.NoError(t, m.BeforeAppendModel(context.Background(), &bun.UpdateQuery{}))
	if assert.NotNil(t, m.TeamID) {
		assert.EqualValues(t, 7, *m.TeamID)
	}

	other := &Member{Username: "member2", Team: &Team{Name: "draft"}}
	assert.NoError(t, other.BeforeAppendModel(context.Background(), &bun.SelectQuery{}))
}

func TestMemberEqual(t *testing.T) {
	a := &Member{ID: 1, Username: "AAA", Age: 10}
	b := &Member{ID: 1, Username: "AAA", Age: 10, Team: &Team{ID: 3}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(&Member{ID: 1, Username: "AAA", Age: 11}))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Member)(nil).Equal(nil))
	assert.Equal(t, "Member(id=1, username=AAA, age=10)", a.String())
}

func TestMemberDtoEqual(t *testing.T) {
	teamA, alsoA := "teamA", "teamA"
	assert.True(t, NewMemberDto(1, "AAA", &teamA).Equal(NewMemberDto(1, "AAA", &alsoA)))
	assert.False(t, NewMemberDto(1, "AAA", &teamA).Equal(NewMemberDto(1, "AAA", nil)))
	assert.True(t, NewMemberDto(2, "BBB", nil).Equal(NewMemberDto(2, "BBB", nil)))
	assert.Equal(t, "MemberDto(id=2, username=BBB, team=<none>)", NewMemberDto(2, "BBB", nil).String())
}

func TestMemberRejectsNegativeAge(t *testing.T) {
	m := &Member{Username: "neg", Age: -1}
	assert.Error(t, m.BeforeAppendModel(context.Background(), &bun.InsertQuery{}))
	assert.NoError(t, m.BeforeAppendModel(context.Background(), &bun.SelectQuery{}))
	assert.NoError(t, (*Member)(nil).BeforeAppendModel(context.Background(), &bun.UpdateQuery{}))
}

func TestModelsAreRegisteredInDependencyOrder(t *testing.T) {
	var names []string
	for _, m := range database.GetRegisteredModels() {
		switch m.Instance().(type) {
		case *Team:
			names = append(names, "teams")
		case *Member:
			names = append(names, "members")
		}
	}
	assert.Equal(t, []string{"teams", "members"}, names)
	assert.Equal(t, "idx_members_username", (*Member)(nil).ModelIndexes()[0].Name)
}
