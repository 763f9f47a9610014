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

const defaultPageSize = 10

// PageRequest describes a 0-based page index, a page size and ordering.
type PageRequest struct {
	page     int
	pageSize int
	orders   []Order
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = defaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 0 {
		p.page = 0
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return p.GetPage() * p.GetPageSize()
}

func (p *PageRequest) GetOrders() []Order {
	return p.orders
}

// Next returns the request for the following page.
func (p *PageRequest) Next() *PageRequest {
	return NewPageRequest(p.GetPage()+1, p.GetPageSize(), p.orders...)
}

// NewPageRequest constructs a PageRequest; page is 0-based.
func NewPageRequest(page int, pageSize int, orders ...Order) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize, orders: orders}
}

// NewDefaultPageRequest constructs a PageRequest with no ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize)
}

// Pagination holds one page of items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// TotalPages returns ceil(Total / PageSize).
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// NumberOfElements is the number of items on this page.
func (p *Pagination[T]) NumberOfElements() int { return len(p.Items) }

func (p *Pagination[T]) IsFirst() bool { return p.Page == 0 }

func (p *Pagination[T]) HasNext() bool { return (p.Page+1)*p.PageSize < p.Total }

func (p *Pagination[T]) HasPrevious() bool { return p.Page > 0 }

func (p *Pagination[T]) IsLast() bool { return !p.HasNext() }

// MapPagination converts the items of a page while keeping its metadata.
func MapPagination[T any, R any](p *Pagination[T], fn func(*T) *R) *Pagination[R] {
	out := &Pagination[R]{Page: p.Page, PageSize: p.PageSize, Total: p.Total, Items: make([]*R, 0, len(p.Items))}
	for _, item := range p.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
