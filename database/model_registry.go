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
	"reflect"
	"sort"
	"sync"
)

// SQLModel is a table the migrator creates. Instance returns a Bun struct
// pointer; tables with a lower Priority are created first so that
// referenced tables exist before the tables pointing at them.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// IndexDefinition describes a secondary index created after the tables.
type IndexDefinition struct {
	Name    string
	Columns []string
	Unique  bool
}

// IndexedModel is implemented by model instances that declare secondary indexes.
type IndexedModel interface {
	ModelIndexes() []IndexDefinition
}

// ModelRegistry collects entity tables keyed by their Go type.
type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

type registration struct {
	model SQLModel
	seq   int
}

type typeRegistry struct {
	mu      sync.RWMutex
	entries map[reflect.Type]registration
}

var entityTables ModelRegistry = &typeRegistry{entries: map[reflect.Type]registration{}}

// Register records model under the type of its instance. Registering the
// same entity type twice keeps the first registration.
func (r *typeRegistry) Register(model SQLModel) {
	key := reflect.TypeOf(model.Instance())
	r.mu.Lock()
	if _, seen := r.entries[key]; !seen {
		r.entries[key] = registration{model: model, seq: len(r.entries)}
	}
	r.mu.Unlock()
}

// Models orders tables by priority, then by registration order.
func (r *typeRegistry) Models() []SQLModel {
	r.mu.RLock()
	regs := make([]registration, 0, len(r.entries))
	for _, reg := range r.entries {
		regs = append(regs, reg)
	}
	r.mu.RUnlock()

	sort.Slice(regs, func(i, j int) bool {
		if pi, pj := regs[i].model.Priority(), regs[j].model.Priority(); pi != pj {
			return pi < pj
		}
		return regs[i].seq < regs[j].seq
	})
	out := make([]SQLModel, len(regs))
	for i, reg := range regs {
		out[i] = reg.model
	}
	return out
}

type tableModel struct {
	instance interface{}
	priority int
}

func (t tableModel) Instance() interface{} { return t.instance }
func (t tableModel) Priority() int         { return t.priority }

// NewModelAdapter pairs a nil struct pointer such as (*Member)(nil) with its
// creation priority.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return tableModel{instance: instance, priority: priority}
}

// GetRegisteredModels lists the entity tables in creation order.
func GetRegisteredModels() []SQLModel {
	return entityTables.Models()
}

// RegisteredModel adds an entity table; entity packages call it from init.
func RegisteredModel(model SQLModel) {
	entityTables.Register(model)
}

// RegisteredModelInstances returns the struct pointers Bun needs for
// RegisterModel, in creation order.
func RegisteredModelInstances() []interface{} {
	var instances []interface{}
	for _, m := range GetRegisteredModels() {
		instances = append(instances, m.Instance())
	}
	return instances
}
