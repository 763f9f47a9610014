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
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/tomoncle/datajpa/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// FlushMode controls when tracked changes are written to the store.
type FlushMode int

const (
	// FlushModeCommit writes changes on Flush and Commit only.
	FlushModeCommit FlushMode = iota
	// FlushModeAuto also flushes before every query run in the session.
	FlushModeAuto
)

func (m FlushMode) String() string {
	if m == FlushModeAuto {
		return "AUTO"
	}
	return "COMMIT"
}

// SessionOptions configures Begin.
type SessionOptions struct {
	TxOptions *sql.TxOptions
	FlushMode FlushMode
	Logger    database.Logger
}

// Session is a transaction with an identity map. Entities loaded or saved
// through a repository with the session context are tracked: loading a row
// that is already tracked returns the tracked instance, and Flush writes back
// the columns that changed since the entity was loaded. Bulk statements bypass
// the map, so tracked instances stay stale until Reload or Clear.
//
// A Session is bound to one transaction and must not be shared between
// goroutines that run queries concurrently.
type Session struct {
	db     *bun.DB
	tx     bun.Tx
	mode   FlushMode
	logger database.Logger

	mu      sync.Mutex
	entries map[entityKey]*trackedEntity
	order   []entityKey
	closed  bool
}

type entityKey struct {
	typ reflect.Type
	id  string
}

type trackedEntity struct {
	table    *schema.Table
	ptr      reflect.Value
	snapshot map[string]interface{}
}

// Begin starts a transaction and returns the session together with a context
// that carries it. opts may be nil.
func Begin(ctx context.Context, db *bun.DB, opts *SessionOptions) (*Session, context.Context, error) {
	if opts == nil {
		opts = &SessionOptions{}
	}
	tx, err := db.BeginTx(ctx, opts.TxOptions)
	if err != nil {
		return nil, ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = database.GetLogger()
	}
	s := &Session{
		db:      db,
		tx:      tx,
		mode:    opts.FlushMode,
		logger:  logger,
		entries: make(map[entityKey]*trackedEntity),
	}
	return s, injectSession(ctx, s), nil
}

// RunInSession runs fn in a session and commits when fn returns nil. When ctx
// already carries an open session fn joins it and the outer caller commits.
// The transaction is rolled back on error or panic.
func RunInSession(ctx context.Context, db *bun.DB, fn func(ctx context.Context, s *Session) error) (err error) {
	if s := SessionFromContext(ctx); s != nil && s.checkOpen() == nil {
		return fn(ctx, s)
	}

	s, sctx, err := Begin(ctx, db, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.Rollback()
			panic(p)
		}
	}()

	if err := fn(sctx, s); err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	return s.Commit(sctx)
}

// Tx returns the underlying transaction.
func (s *Session) Tx() bun.Tx { return s.tx }

func (s *Session) FlushMode() FlushMode { return s.mode }

// SetFlushMode changes the flush mode for subsequent calls.
func (s *Session) SetFlushMode(mode FlushMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// Tracked returns the number of tracked entities.
func (s *Session) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Flush writes the changed columns of every tracked entity.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	for _, key := range s.order {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		dirty := e.dirtyColumns()
		if len(dirty) == 0 {
			continue
		}
		_, err := s.tx.NewUpdate().
			Model(e.ptr.Interface()).
			Column(dirty...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to flush %s %s: %w", e.table.Name, key.id, translateError(err))
		}
		s.logger.Debug("Flushed entity", "table", e.table.Name, "id", key.id, "columns", strings.Join(dirty, ","))
		e.snapshot = takeSnapshot(e.table, e.ptr)
	}
	return nil
}

// Commit flushes pending changes and commits. The session is closed
// afterwards, also when the commit fails.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		_ = s.Rollback()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	s.entries = make(map[entityKey]*trackedEntity)
	s.order = nil
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translateError(err))
	}
	return nil
}

// Rollback discards the transaction and all tracked state.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.entries = make(map[entityKey]*trackedEntity)
	s.order = nil
	return s.tx.Rollback()
}

// Clear detaches every tracked entity without writing pending changes.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[entityKey]*trackedEntity)
	s.order = nil
}

// Contains reports whether entity is the instance tracked for its row.
func (s *Session) Contains(entity interface{}) bool {
	table, ptr, err := s.describe(entity)
	if err != nil {
		return false
	}
	key, ok := keyOf(table, ptr)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && e.ptr.Pointer() == ptr.Pointer()
}

// Detach stops tracking entity. Pending changes on it are not written.
func (s *Session) Detach(entity interface{}) bool {
	table, ptr, err := s.describe(entity)
	if err != nil {
		return false
	}
	key, ok := keyOf(table, ptr)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	s.forget(key)
	return true
}

// Reload overwrites entity with the current row and tracks it.
func (s *Session) Reload(ctx context.Context, entity interface{}) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	table, ptr, err := s.describe(entity)
	if err != nil {
		return err
	}
	if err := s.tx.NewSelect().Model(entity).WherePK().Scan(ctx); err != nil {
		return fmt.Errorf("failed to reload %s: %w", table.Name, err)
	}
	s.track(table, ptr)
	return nil
}

func (s *Session) describe(entity interface{}) (*schema.Table, reflect.Value, error) {
	ptr := reflect.ValueOf(entity)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() || ptr.Elem().Kind() != reflect.Struct {
		return nil, ptr, fmt.Errorf("entity must be a non-nil struct pointer, got %T", entity)
	}
	return s.db.Table(ptr.Elem().Type()), ptr, nil
}

// attach tracks ptr unless its row is already tracked, in which case the
// tracked instance is returned instead.
func (s *Session) attach(table *schema.Table, ptr reflect.Value) reflect.Value {
	key, ok := keyOf(table, ptr)
	if !ok {
		return ptr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.ptr
	}
	s.put(key, table, ptr)
	return ptr
}

// track starts tracking ptr, replacing any instance tracked for the same row.
func (s *Session) track(table *schema.Table, ptr reflect.Value) {
	key, ok := keyOf(table, ptr)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, table, ptr)
}

func (s *Session) untrack(table *schema.Table, ptr reflect.Value) {
	key, ok := keyOf(table, ptr)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forget(key)
}

func (s *Session) untrackID(table *schema.Table, id interface{}) {
	key := entityKey{typ: table.Type, id: fmt.Sprint(id)}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forget(key)
}

func (s *Session) put(key entityKey, table *schema.Table, ptr reflect.Value) {
	if _, ok := s.entries[key]; !ok {
		s.order = append(s.order, key)
	}
	s.entries[key] = &trackedEntity{table: table, ptr: ptr, snapshot: takeSnapshot(table, ptr)}
}

func (s *Session) forget(key entityKey) {
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// keyOf builds the identity of a persisted row; rows without a primary key
// value are not identifiable.
func keyOf(table *schema.Table, ptr reflect.Value) (entityKey, bool) {
	if len(table.PKs) == 0 {
		return entityKey{}, false
	}
	strct := ptr.Elem()
	ids := make([]string, 0, len(table.PKs))
	for _, pk := range table.PKs {
		if pk.HasZeroValue(strct) {
			return entityKey{}, false
		}
		ids = append(ids, fmt.Sprint(normalize(pk.Value(strct))))
	}
	return entityKey{typ: table.Type, id: strings.Join(ids, "|")}, true
}

func takeSnapshot(table *schema.Table, ptr reflect.Value) map[string]interface{} {
	strct := ptr.Elem()
	snap := make(map[string]interface{}, len(table.Fields))
	for _, f := range table.Fields {
		if f.IsPK {
			continue
		}
		snap[f.Name] = normalize(f.Value(strct))
	}
	return snap
}

func (e *trackedEntity) dirtyColumns() []string {
	strct := e.ptr.Elem()
	var dirty []string
	for _, f := range e.table.Fields {
		if f.IsPK {
			continue
		}
		if !reflect.DeepEqual(e.snapshot[f.Name], normalize(f.Value(strct))) {
			dirty = append(dirty, f.Name)
		}
	}
	return dirty
}

// normalize copies a column value so later mutation of the entity does not
// change the snapshot: pointers are dereferenced and slices copied.
func normalize(v reflect.Value) interface{} {
	switch v.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return normalize(v.Elem())
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(c, v)
		return c.Interface()
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		c := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			c.SetMapIndex(iter.Key(), iter.Value())
		}
		return c.Interface()
	default:
		return v.Interface()
	}
}
