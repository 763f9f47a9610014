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

package database

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/uptrace/bun"
)

const commonSeedDir = "common"

var seedOrderPattern = regexp.MustCompile(`^(\d+)_`)

// SeedFile is a SQL file picked up by the seed runner.
type SeedFile struct {
	Path        string
	Order       int
	Environment string
}

// SeedResult is the outcome of executing one seed file.
type SeedResult struct {
	File         string
	Statements   int
	RowsAffected int64
	Duration     time.Duration
}

// SeedRunner executes the SQL files under <root>/common and then
// <root>/environments/<env>, each file in its own transaction. Files are
// ordered by their numeric "NNN_" prefix; unprefixed files run last.
// File content is rendered as a text/template with the process environment,
// plus ENVIRONMENT and TIMESTAMP.
type SeedRunner struct {
	db          bun.IDB
	files       fs.FS
	environment string
	logger      Logger
}

// NewSeedRunner returns a runner reading from the directory root.
func NewSeedRunner(db bun.IDB, root, environment string, logger Logger) *SeedRunner {
	return NewSeedRunnerFS(db, os.DirFS(root), environment, logger)
}

// NewSeedRunnerFS returns a runner reading from an arbitrary file system.
func NewSeedRunnerFS(db bun.IDB, files fs.FS, environment string, logger Logger) *SeedRunner {
	if logger == nil {
		logger = GetLogger()
	}
	return &SeedRunner{db: db, files: files, environment: environment, logger: logger}
}

// Run executes every seed file and stops at the first failure.
func (s *SeedRunner) Run(ctx context.Context) ([]SeedResult, error) {
	files, err := s.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to list seed files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("No seed files found", "environment", s.environment)
		return nil, nil
	}

	results := make([]SeedResult, 0, len(files))
	for _, file := range files {
		res, err := s.execute(ctx, file)
		if err != nil {
			s.logger.Error("Seed file failed", "file", file.Path, "error", err.Error())
			return results, fmt.Errorf("seed file %s: %w", file.Path, err)
		}
		s.logger.Info("Seed file executed", "file", res.File, "rows_affected", res.RowsAffected, "duration", res.Duration.String())
		results = append(results, res)
	}
	return results, nil
}

// Files lists the seed files in execution order.
func (s *SeedRunner) Files() ([]SeedFile, error) {
	common, err := s.collect(commonSeedDir, commonSeedDir)
	if err != nil {
		return nil, err
	}
	envFiles, err := s.collect(path.Join("environments", s.environment), s.environment)
	if err != nil {
		return nil, err
	}

	sortSeedFiles(common)
	sortSeedFiles(envFiles)
	return append(common, envFiles...), nil
}

func (s *SeedRunner) collect(dir, environment string) ([]SeedFile, error) {
	var files []SeedFile
	err := fs.WalkDir(s.files, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		files = append(files, SeedFile{Path: p, Order: seedOrder(d.Name()), Environment: environment})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return files, err
}

func sortSeedFiles(files []SeedFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Path < files[j].Path
	})
}

func seedOrder(name string) int {
	if m := seedOrderPattern.FindStringSubmatch(name); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 999
}

func (s *SeedRunner) execute(ctx context.Context, file SeedFile) (SeedResult, error) {
	start := time.Now()
	res := SeedResult{File: file.Path}

	raw, err := fs.ReadFile(s.files, file.Path)
	if err != nil {
		return res, err
	}
	content, err := s.render(string(raw))
	if err != nil {
		return res, err
	}
	statements := splitSQLStatements(content)
	res.Statements = len(statements)
	if len(statements) == 0 {
		res.Duration = time.Since(start)
		return res, nil
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range statements {
			r, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("failed to execute %q: %w", stmt, err)
			}
			n, _ := r.RowsAffected()
			res.RowsAffected += n
		}
		return nil
	})
	res.Duration = time.Since(start)
	return res, err
}

func (s *SeedRunner) render(content string) (string, error) {
	tmpl, err := template.New("seed").Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	vars["ENVIRONMENT"] = s.environment
	vars["TIMESTAMP"] = time.Now().Format("2006-01-02 15:04:05")

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// splitSQLStatements splits on lines ending with ';' and drops "--" comment lines.
func splitSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, strings.TrimSuffix(stmt, ";"))
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
