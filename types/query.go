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

import (
	"fmt"
	"reflect"
)

// Condition is a single `field comparator value` predicate.
type Condition struct {
	Field      string
	Comparator Comparator
	Value      interface{}
}

// Order is one ORDER BY term.
type Order struct {
	Field     string
	Direction Direction
}

// Asc orders by field ascending.
func Asc(field string) Order { return Order{Field: field, Direction: ASC} }

// Desc orders by field descending.
func Desc(field string) Order { return Order{Field: field, Direction: DESC} }

// String renders the order as "field DIRECTION".
func (o Order) String() string { return o.Field + " " + o.Direction.String() }

// QueryPlan describes a query as conditions joined by AND, plus ordering,
// limit, eager relations and locking/read-only hints.
type QueryPlan struct {
	conditions []Condition
	orders     []Order
	relations  []string
	limit      int
	lock       LockMode
	noWait     bool
	readOnly   bool
}

// NewQueryPlan returns an empty plan that matches every row.
func NewQueryPlan() *QueryPlan {
	return &QueryPlan{}
}

// Where appends a condition with the given comparator.
func (p *QueryPlan) Where(field string, cmp Comparator, value interface{}) *QueryPlan {
	p.conditions = append(p.conditions, Condition{Field: field, Comparator: cmp, Value: value})
	return p
}

func (p *QueryPlan) Eq(field string, value interface{}) *QueryPlan {
	return p.Where(field, Equal, value)
}

func (p *QueryPlan) Ne(field string, value interface{}) *QueryPlan {
	return p.Where(field, NotEqual, value)
}

func (p *QueryPlan) Gt(field string, value interface{}) *QueryPlan {
	return p.Where(field, GreaterThan, value)
}

func (p *QueryPlan) Gte(field string, value interface{}) *QueryPlan {
	return p.Where(field, GreaterThanOrEqual, value)
}

func (p *QueryPlan) Lt(field string, value interface{}) *QueryPlan {
	return p.Where(field, LessThan, value)
}

func (p *QueryPlan) Lte(field string, value interface{}) *QueryPlan {
	return p.Where(field, LessThanOrEqual, value)
}

// In appends a membership condition; values must be a slice or array.
func (p *QueryPlan) In(field string, values interface{}) *QueryPlan {
	return p.Where(field, In, values)
}

// OrderBy appends sort terms.
func (p *QueryPlan) OrderBy(orders ...Order) *QueryPlan {
	p.orders = append(p.orders, orders...)
	return p
}

// Limit caps the number of returned rows; zero means no limit.
func (p *QueryPlan) Limit(n int) *QueryPlan {
	p.limit = n
	return p
}

// With eagerly loads the named relations.
func (p *QueryPlan) With(relations ...string) *QueryPlan {
	p.relations = append(p.relations, relations...)
	return p
}

// Lock requests a row lock held until the enclosing transaction ends.
func (p *QueryPlan) Lock(mode LockMode) *QueryPlan {
	p.lock = mode
	return p
}

// NoWait makes a locking read fail instead of waiting for a conflicting lock.
func (p *QueryPlan) NoWait() *QueryPlan {
	p.noWait = true
	return p
}

// ReadOnly marks results as not tracked by the session, so changes made to
// them are never written back.
func (p *QueryPlan) ReadOnly() *QueryPlan {
	p.readOnly = true
	return p
}

func (p *QueryPlan) GetConditions() []Condition { return p.conditions }

func (p *QueryPlan) GetOrders() []Order { return p.orders }

func (p *QueryPlan) GetRelations() []string { return p.relations }

func (p *QueryPlan) GetLimit() int { return p.limit }

func (p *QueryPlan) GetLock() LockMode { return p.lock }

func (p *QueryPlan) IsNoWait() bool { return p.noWait }

func (p *QueryPlan) IsReadOnly() bool { return p.readOnly }

// Unsatisfiable reports whether the plan can never match a row, which is the
// case for a membership test against an empty collection.
func (p *QueryPlan) Unsatisfiable() bool {
	for _, c := range p.conditions {
		if c.Comparator != In {
			continue
		}
		v := reflect.ValueOf(c.Value)
		if !v.IsValid() {
			return true
		}
		if (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) && v.Len() == 0 {
			return true
		}
	}
	return false
}

// Validate checks comparators, field names and IN operands. hasField reports
// whether a column exists on the queried table.
func (p *QueryPlan) Validate(hasField func(string) bool) error {
	for _, c := range p.conditions {
		if !c.Comparator.IsValid() {
			return fmt.Errorf("invalid comparator %d on field %q", c.Comparator, c.Field)
		}
		if !hasField(c.Field) {
			return &UnknownFieldError{Field: c.Field}
		}
		if c.Comparator == In && c.Value != nil {
			k := reflect.ValueOf(c.Value).Kind()
			if k != reflect.Slice && k != reflect.Array {
				return fmt.Errorf("IN operand for %q must be a slice, got %T", c.Field, c.Value)
			}
		}
	}
	for _, o := range p.orders {
		if !o.Direction.IsValid() {
			return fmt.Errorf("invalid sort direction %d on field %q", o.Direction, o.Field)
		}
		if !hasField(o.Field) {
			return &UnknownFieldError{Field: o.Field}
		}
	}
	if !p.lock.IsValid() {
		return fmt.Errorf("invalid lock mode %d", p.lock)
	}
	return nil
}

// UnknownFieldError is returned when a plan references a column the model
// does not map.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// Assignment is one SET term of a bulk update.
type Assignment struct {
	Field     string
	Value     interface{}
	Increment bool
}

// Set assigns value to field.
func Set(field string, value interface{}) Assignment {
	return Assignment{Field: field, Value: value}
}

// Increment adds delta to the current value of field.
func Increment(field string, delta interface{}) Assignment {
	return Assignment{Field: field, Value: delta, Increment: true}
}

// Clone returns a copy of the plan that can be extended independently.
func (p *QueryPlan) Clone() *QueryPlan {
	if p == nil {
		return NewQueryPlan()
	}
	c := *p
	c.conditions = append([]Condition(nil), p.conditions...)
	c.orders = append([]Order(nil), p.orders...)
	c.relations = append([]string(nil), p.relations...)
	return &c
}
