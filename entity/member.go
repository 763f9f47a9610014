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
	"fmt"

	"github.com/tomoncle/datajpa/database"
	"github.com/uptrace/bun"
)

// Member is a user of the directory, optionally assigned to a team.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull" json:"username"`
	Age      int    `bun:"age,notnull" json:"age"`
	TeamID   *int64 `bun:"team_id" json:"team_id,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
}

var (
	_ bun.BeforeAppendModelHook = (*Member)(nil)
	_ database.IndexedModel     = (*Member)(nil)
)

// NewMember creates a member and, when team is not nil, assigns it.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: username, Age: age}
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team and keeps both sides of the
// association in sync. The team must already be persisted for TeamID to be set.
func (m *Member) ChangeTeam(team *Team) {
	m.Team = team
	if team == nil {
		m.TeamID = nil
		return
	}
	if team.ID != 0 {
		id := team.ID
		m.TeamID = &id
	}
	team.Members = append(team.Members, m)
}

// Equal compares id, username and age.
func (m *Member) Equal(other *Member) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.ID == other.ID && m.Username == other.Username && m.Age == other.Age
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, username=%s, age=%d)", m.ID, m.Username, m.Age)
}

// BeforeAppendModel rejects negative ages on insert and update and copies the
// id of an assigned team into TeamID. A team without an id is rejected.
func (m *Member) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if m == nil {
		return nil
	}
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		if m.Age < 0 {
			return fmt.Errorf("member %q: age must not be negative, got %d", m.Username, m.Age)
		}
		if m.Team != nil {
			if m.Team.ID == 0 {
				return fmt.Errorf("%w: member %q references unsaved team %q",
					database.ErrConstraintViolation, m.Username, m.Team.Name)
			}
			id := m.Team.ID
			m.TeamID = &id
		}
	}
	return nil
}

func (*Member) ModelIndexes() []database.IndexDefinition {
	return []database.IndexDefinition{
		{Name: "idx_members_username", Columns: []string{"username"}},
	}
}
