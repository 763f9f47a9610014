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

	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

// TeamRepository is the query façade over teams.
type TeamRepository interface {
	Repository[entity.Team]

	// FindByName returns nil when no team has the name.
	FindByName(ctx context.Context, name string) (*entity.Team, error)

	// FindWithMembers loads the team and its members.
	FindWithMembers(ctx context.Context, id int64) (*entity.Team, error)
}

type teamRepositoryImpl struct {
	*baseRepositoryImpl[entity.Team]
}

func NewTeamRepository(db *bun.DB) TeamRepository {
	return &teamRepositoryImpl{baseRepositoryImpl: newBaseRepository[entity.Team](db)}
}

func (r *teamRepositoryImpl) FindByName(ctx context.Context, name string) (*entity.Team, error) {
	return r.FindOne(ctx, types.NewQueryPlan().Eq("name", name))
}

func (r *teamRepositoryImpl) FindWithMembers(ctx context.Context, id int64) (*entity.Team, error) {
	return r.FindOne(ctx, types.NewQueryPlan().Eq("id", id).With("Members"))
}
