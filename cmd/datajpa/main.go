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

// Command datajpa runs the member repository against the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/datajpa/config"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/repository"
	"github.com/tomoncle/datajpa/types"
	"github.com/tomoncle/datajpa/utils"
	"github.com/uptrace/bun"
)

func main() {
	os.Exit(realMain())
}

// realMain returns the exit code so deferred cleanup runs before exiting.
func realMain() int {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	zapLog := flag.Bool("zap", false, "log database events as JSON through zap")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *printConfig {
		out, err := cfg.Dump()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		_, _ = os.Stdout.Write(out)
		return 0
	}

	cfg.ApplyLogging()
	log := utils.NewLogger("datajpa")
	if *zapLog {
		zl := database.NewZapLogger(os.Stdout)
		defer func() { _ = zl.Sync() }()
		database.InitLogger(zl)
	}

	db, err := database.InitDB(cfg.ConfigLoader())
	if err != nil {
		log.WithError(err).Error("failed to initialize database")
		return 1
	}
	defer func() { _ = database.CloseDB() }()

	if err := run(ctx, db, log); err != nil {
		log.WithError(err).Error("demo failed")
		return 1
	}
	return 0
}

func run(ctx context.Context, db *bun.DB, log *logrus.Logger) error {
	members := repository.NewMemberRepository(db)
	teams := repository.NewTeamRepository(db)

	err := repository.RunInSession(ctx, db, func(ctx context.Context, s *repository.Session) error {
		teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
		if err := teams.Save(ctx, teamA, teamB); err != nil {
			return err
		}
		return members.Save(ctx,
			entity.NewMember("member1", 10, teamA),
			entity.NewMember("member2", 19, teamA),
			entity.NewMember("member3", 20, teamB),
			entity.NewMember("member4", 21, nil),
			entity.NewMember("member5", 40, nil),
		)
	})
	if err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}

	dtos, err := members.FindMemberDto(ctx)
	if err != nil {
		return err
	}
	for _, dto := range dtos {
		log.Info(dto.String())
	}

	page, err := members.Page(ctx, nil, types.NewPageRequest(0, 3, types.Desc("username")))
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"items": len(page.Items),
		"total": page.Total,
		"pages": page.TotalPages(),
		"next":  page.HasNext(),
	}).Info("first page")

	return repository.RunInSession(ctx, db, func(ctx context.Context, s *repository.Session) error {
		n, err := members.BulkAgePlus(ctx, 20)
		if err != nil {
			return err
		}
		locked, err := members.FindLockByUsername(ctx, "member5")
		if err != nil {
			return err
		}
		for _, m := range locked {
			log.WithField("rows", n).Infof("after bulk update: %s", m)
		}
		return nil
	})
}
