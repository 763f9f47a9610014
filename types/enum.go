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

package types

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

type enumMeta struct {
	name   string
	symbol string
	desc   string
}

// Comparator is the predicate operator of a single Condition.
type Comparator int

const (
	Equal Comparator = iota
	NotEqual
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
	In
)

var comparatorMeta = map[Comparator]enumMeta{
	Equal:              {"Equal", "=", "exact match"},
	NotEqual:           {"NotEqual", "<>", "not equal"},
	GreaterThan:        {"GreaterThan", ">", "strictly greater than"},
	GreaterThanOrEqual: {"GreaterThanOrEqual", ">=", "greater than or equal"},
	LessThan:           {"LessThan", "<", "strictly less than"},
	LessThanOrEqual:    {"LessThanOrEqual", "<=", "less than or equal"},
	In:                 {"In", "IN", "membership in a collection"},
}

var _ BaseEnum = Comparator(0)

func (c Comparator) IsValid() bool {
	_, ok := comparatorMeta[c]
	return ok
}

func (c Comparator) Number() int {
	if !c.IsValid() {
		return IllegalValue
	}
	return int(c)
}

// String returns the SQL operator of the comparator.
func (c Comparator) String() string {
	if m, ok := comparatorMeta[c]; ok {
		return m.symbol
	}
	return IllegalName
}

func (c Comparator) Desc() string {
	if m, ok := comparatorMeta[c]; ok {
		return m.desc
	}
	return IllegalDesc
}

func (c Comparator) Name() string {
	if m, ok := comparatorMeta[c]; ok {
		return m.name
	}
	return IllegalName
}

// Direction is a sort direction.
type Direction int

const (
	ASC Direction = iota
	DESC
)

var _ BaseEnum = Direction(0)

func (d Direction) IsValid() bool { return d == ASC || d == DESC }

func (d Direction) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

func (d Direction) String() string {
	switch d {
	case ASC:
		return "ASC"
	case DESC:
		return "DESC"
	}
	return IllegalName
}

func (d Direction) Desc() string {
	switch d {
	case ASC:
		return "ascending"
	case DESC:
		return "descending"
	}
	return IllegalDesc
}

func (d Direction) Name() string { return d.String() }

// LockMode is the row lock requested by a query.
type LockMode int

const (
	LockNone LockMode = iota
	// LockPessimisticRead takes a shared row lock (FOR SHARE).
	LockPessimisticRead
	// LockPessimisticWrite takes an exclusive row lock (FOR UPDATE).
	LockPessimisticWrite
)

var lockModeMeta = map[LockMode]enumMeta{
	LockNone:             {"None", "", "no lock"},
	LockPessimisticRead:  {"PessimisticRead", "SHARE", "shared row lock held until transaction end"},
	LockPessimisticWrite: {"PessimisticWrite", "UPDATE", "exclusive row lock held until transaction end"},
}

var _ BaseEnum = LockMode(0)

func (l LockMode) IsValid() bool {
	_, ok := lockModeMeta[l]
	return ok
}

func (l LockMode) Number() int {
	if !l.IsValid() {
		return IllegalValue
	}
	return int(l)
}

// String returns the locking clause keyword that follows FOR.
func (l LockMode) String() string {
	if m, ok := lockModeMeta[l]; ok {
		return m.symbol
	}
	return IllegalName
}

func (l LockMode) Desc() string {
	if m, ok := lockModeMeta[l]; ok {
		return m.desc
	}
	return IllegalDesc
}

func (l LockMode) Name() string {
	if m, ok := lockModeMeta[l]; ok {
		return m.name
	}
	return IllegalName
}
