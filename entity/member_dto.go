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

import "fmt"

// MemberDto is the (id, username, team name) projection of a member.
// TeamName is nil when the member has no team.
type MemberDto struct {
	ID       int64   `bun:"id" json:"id"`
	Username string  `bun:"username" json:"username"`
	TeamName *string `bun:"team_name" json:"team_name"`
}

func NewMemberDto(id int64, username string, teamName *string) MemberDto {
	return MemberDto{ID: id, Username: username, TeamName: teamName}
}

func (d MemberDto) Equal(other MemberDto) bool {
	if d.ID != other.ID || d.Username != other.Username {
		return false
	}
	if d.TeamName == nil || other.TeamName == nil {
		return d.TeamName == other.TeamName
	}
	return *d.TeamName == *other.TeamName
}

func (d MemberDto) String() string {
	team := "<none>"
	if d.TeamName != nil {
		team = *d.TeamName
	}
	return fmt.Sprintf("MemberDto(id=%d, username=%s, team=%s)", d.ID, d.Username, team)
}
