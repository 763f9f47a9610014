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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestDefaults(t *testing.T) {
	req := NewDefaultPageRequest(-3, 0)
	assert.Equal(t, 0, req.GetPage())
	assert.Equal(t, defaultPageSize, req.GetPageSize())
	assert.Equal(t, 0, req.GetOffset())

	req = NewPageRequest(2, 3, Desc("username"))
	assert.Equal(t, 6, req.GetOffset())
	assert.Equal(t, []Order{{Field: "username", Direction: DESC}}, req.GetOrders())
	assert.Equal(t, 3, req.Next().GetPage())
}

func TestPaginationMetadata(t *testing.T) {
	cases := []struct {
		name       string
		page, size int
		total      int
		totalPages int
		first      bool
		next       bool
	}{
		{"first of two", 0, 3, 5, 2, true, true},
		{"last of two", 1, 3, 5, 2, false, false},
		{"exact fit", 0, 5, 5, 1, true, false},
		{"empty", 0, 3, 0, 0, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewDefaultPagination[int](tc.page, tc.size)
			p.Total = tc.total
			assert.Equal(t, tc.totalPages, p.TotalPages())
			assert.Equal(t, tc.first, p.IsFirst())
			assert.Equal(t, tc.next, p.HasNext())
			assert.Equal(t, !tc.next, p.IsLast())
			assert.Equal(t, tc.page > 0, p.HasPrevious())
		})
	}
}

func TestMapPagination(t *testing.T) {
	one, two := 1, 2
	p := &Pagination[int]{Page: 1, PageSize: 2, Total: 4, Items: []*int{&one, &two}}

	mapped := MapPagination(p, func(v *int) *string {
		s := string(rune('a' + *v))
		return &s
	})

	assert.Equal(t, 1, mapped.Page)
	assert.Equal(t, 4, mapped.Total)
	assert.Equal(t, 2, mapped.NumberOfElements())
	assert.Equal(t, "b", *mapped.Items[0])
	assert.Equal(t, "c", *mapped.Items[1])
}
