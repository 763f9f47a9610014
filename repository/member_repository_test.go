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

package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
)

func TestFindByUsernameAndAgeGreaterThan(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))
	saveMembers(t, repo, entity.NewMember("AAA", 10, nil), entity.NewMember("AAA", 20, nil))

	found, err := repo.FindByUsernameAndAgeGreaterThan(ctx, "AAA", 15)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "AAA", found[0].Username)
	assert.Equal(t, 20, found[0].Age)

	found, err = repo.FindByUsernameAndAgeGreaterThan(ctx, "AAA", 20)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindUserNamedParameters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))
	member := entity.NewMember("AAA", 10, nil)
	saveMembers(t, repo, member, entity.NewMember("AAA", 20, nil))

	found, err := repo.FindUser(ctx, "AAA", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, member.Equal(found[0]))
}

func TestFindUserNameList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))

	names, err := repo.FindUserNameList(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	saveMembers(t, repo, entity.NewMember("AAA", 10, nil), entity.NewMember("BBB", 20, nil))
	names, err = repo.FindUserNameList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, names)
}

func TestFindMemberDto(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewMemberRepository(db)
	teams := NewTeamRepository(db)

	team := entity.NewTeam("teamA")
	require.NoError(t, teams.Save(ctx, team))
	withTeam := entity.NewMember("AAA", 10, team)
	noTeam := entity.NewMember("BBB", 20, nil)
	saveMembers(t, repo, withTeam, noTeam)

	dtos, err := repo.FindMemberDto(ctx)
	require.NoError(t, err)
	require.Len(t, dtos, 2)

	teamName := "teamA"
	assert.True(t, entity.NewMemberDto(withTeam.ID, "AAA", &teamName).Equal(dtos[0]), dtos[0].String())
	assert.True(t, entity.NewMemberDto(noTeam.ID, "BBB", nil).Equal(dtos[1]), dtos[1].String())
}

func TestFindByNames(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))
	saveMembers(t, repo,
		entity.NewMember("AAA", 10, nil),
		entity.NewMember("BBB", 20, nil),
		entity.NewMember("CCC", 30, nil),
	)

	found, err := repo.FindByNames(ctx, []string{"AAA", "BBB"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = repo.FindByNames(ctx, []string{})
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = repo.FindByNames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSingleResultVariants(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))
	saveMembers(t, repo, entity.NewMember("AAA", 10, nil))

	m, ok, err := repo.FindOptionalByUsername(ctx, "AAA")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "AAA", m.Username)

	m, ok, err = repo.FindOptionalByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, m)

	m, err = repo.FindMemberByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, m)

	list, err := repo.FindByUsername(ctx, "AAA")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	saveMembers(t, repo, entity.NewMember("AAA", 20, nil))

	_, _, err = repo.FindOptionalByUsername(ctx, "AAA")
	assert.ErrorIs(t, err, ErrAmbiguousResult)
	_, err = repo.FindMemberByUsername(ctx, "AAA")
	assert.ErrorIs(t, err, ErrAmbiguousResult)
}

func TestPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))
	for i := 1; i <= 5; i++ {
		saveMembers(t, repo, entity.NewMember(fmt.Sprintf("member%d", i), 10, nil))
	}
	saveMembers(t, repo, entity.NewMember("member6", 11, nil))

	page, err := repo.FindByAge(ctx, 10, types.NewPageRequest(0, 3, types.Desc("username")))
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "member5", page.Items[0].Username)
	assert.Equal(t, "member4", page.Items[1].Username)
	assert.Equal(t, "member3", page.Items[2].Username)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	assert.Equal(t, 0, page.Page)
	assert.True(t, page.IsFirst())
	assert.True(t, page.HasNext())

	next, err := repo.FindByAge(ctx, 10, types.NewPageRequest(1, 3, types.Desc("username")))
	require.NoError(t, err)
	require.Len(t, next.Items, 2)
	assert.Equal(t, "member2", next.Items[0].Username)
	assert.Equal(t, 5, next.Total)
	assert.False(t, next.HasNext())
	assert.True(t, next.IsLast())

	dtos := types.MapPagination(page, func(m *entity.Member) *entity.MemberDto {
		dto := entity.NewMemberDto(m.ID, m.Username, nil)
		return &dto
	})
	require.Len(t, dtos.Items, 3)
	assert.Equal(t, "member5", dtos.Items[0].Username)
	assert.Equal(t, page.Total, dtos.Total)
	assert.Equal(t, page.TotalPages(), dtos.TotalPages())
}

func TestPagingPastTheEnd(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))
	saveMembers(t, repo, entity.NewMember("AAA", 10, nil), entity.NewMember("BBB", 10, nil))

	page, err := repo.FindByAge(ctx, 10, types.NewPageRequest(3, 2))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.Total)

	short, err := repo.FindByAge(ctx, 10, types.NewPageRequest(0, 10))
	require.NoError(t, err)
	assert.Len(t, short.Items, 2)
	assert.Equal(t, 2, short.Total)
}

func TestBulkAgePlus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))
	for i, age := range []int{10, 19, 20, 21, 40} {
		saveMembers(t, repo, entity.NewMember(fmt.Sprintf("member%d", i+1), age, nil))
	}

	n, err := repo.BulkAgePlus(ctx, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	found, err := repo.FindByUsername(ctx, "member5")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 41, found[0].Age)

	found, err = repo.FindByUsername(ctx, "member2")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 19, found[0].Age)
}

func TestFindAllWithTeam(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewMemberRepository(db)
	teams := NewTeamRepository(db)

	teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
	require.NoError(t, teams.Save(ctx, teamA, teamB))
	saveMembers(t, repo,
		entity.NewMember("member1", 10, teamA),
		entity.NewMember("member2", 10, teamB),
		entity.NewMember("member3", 10, nil),
	)

	members, err := repo.FindAllWithTeam(ctx)
	require.NoError(t, err)
	require.Len(t, members, 3)
	require.NotNil(t, members[0].Team)
	assert.Equal(t, "teamA", members[0].Team.Name)
	require.NotNil(t, members[1].Team)
	assert.Equal(t, "teamB", members[1].Team.Name)
	assert.Nil(t, members[2].TeamID)
}

func TestLockOutsideTransaction(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))

	_, err := repo.FindLockByUsername(ctx, "AAA")
	assert.ErrorIs(t, err, ErrTransactionRequired)
}

func TestLockInsideSession(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewMemberRepository(db)
	saveMembers(t, repo, entity.NewMember("AAA", 10, nil))

	err := RunInSession(ctx, db, func(ctx context.Context, s *Session) error {
		found, err := repo.FindLockByUsername(ctx, "AAA")
		if err != nil {
			return err
		}
		assert.Len(t, found, 1)
		assert.True(t, s.Contains(found[0]))
		return nil
	})
	require.NoError(t, err)
}
