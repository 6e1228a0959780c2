// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 100
	OrderAsc        = "asc"
	OrderDesc       = "desc"
)

var ErrInvalidPagination = errors.New("invalid pagination parameters")

// PageParams holds the count, page and order query values of a list request
type PageParams struct {
	Order string
	Count int
	Page  int
}

// ParsePageParams reads pagination query values, filling in defaults and
// clamping count and page to their bounds
func ParsePageParams(r *http.Request) (PageParams, error) {
	params := PageParams{
		Count: DefaultPageSize,
		Page:  1,
		Order: OrderAsc,
	}
	query := r.URL.Query()
	for name, dest := range map[string]*int{
		"count": &params.Count,
		"page":  &params.Page,
	} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			return PageParams{}, ErrInvalidPagination
		}
		*dest = val
	}
	if order := query.Get("order"); order != "" {
		switch order = strings.ToLower(order); order {
		case OrderAsc, OrderDesc:
			params.Order = order
		default:
			return PageParams{}, ErrInvalidPagination
		}
	}
	params.Count = min(max(params.Count, 1), MaxPageSize)
	params.Page = max(params.Page, 1)
	return params, nil
}

// paginate returns the requested page of items, which are given in
// ascending order. It sets the total count headers on w.
func paginate[T any](w http.ResponseWriter, items []T, params PageParams) []T {
	total := len(items)
	pages := 0
	if total > 0 {
		pages = (total + params.Count - 1) / params.Count
	}
	w.Header().Set("X-Pagination-Count-Total", strconv.Itoa(total))
	w.Header().Set("X-Pagination-Page-Total", strconv.Itoa(pages))
	if params.Order == OrderDesc {
		items = slices.Clone(items)
		slices.Reverse(items)
	}
	start := (params.Page - 1) * params.Count
	if start >= total {
		return []T{}
	}
	end := min(start+params.Count, total)
	return items[start:end]
}
