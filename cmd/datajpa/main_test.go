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

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/repository"
	"github.com/tomoncle/datajpa/utils"
)

func TestRealMainReturnsExitCode(t *testing.T) {
	args := os.Args
	t.Cleanup(func() { os.Args = args })
	os.Args = []string{"datajpa", "-config", filepath.Join(t.TempDir(), "missing.yaml")}

	assert.Equal(t, 1, realMain())
	assert.Nil(t, database.GetDB())
}

func TestRunDemo(t *testing.T) {
	ctx := context.Background()
	dm := database.NewDatabaseManager(database.DefaultConfig())
	require.NoError(t, dm.Connect(ctx))
	require.NoError(t, dm.RunMigrations(ctx))
	t.Cleanup(func() { _ = dm.Disconnect() })
	db := dm.GetDB()

	require.NoError(t, run(ctx, db, utils.NewLogger("datajpa-test")))

	var member *entity.Member
	err := repository.RunInSession(ctx, db, func(ctx context.Context, s *repository.Session) error {
		var err error
		member, err = repository.NewMemberRepository(db).FindMemberByUsername(ctx, "member5")
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, 41, member.Age)
}
