/*
 * Copyright (c) 2023 Alibaba Group Holding Ltd.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"sort"
	"sync"
)

// ConcurrentSet is a string set that is safe for concurrent use.
type ConcurrentSet struct {
	set sync.Map
}

func NewConcurrentSet() *ConcurrentSet {
	return &ConcurrentSet{
		set: sync.Map{},
	}
}

func (s *ConcurrentSet) Add(item string) {
	s.set.Store(item, struct{}{})
}

func (s *ConcurrentSet) Remove(item string) {
	s.set.Delete(item)
}

func (s *ConcurrentSet) Contains(item string) bool {
	_, ok := s.set.Load(item)
	return ok
}

// Sorted returns the members in ascending order.
func (s *ConcurrentSet) Sorted() []string {
	slice := make([]string, 0)
	s.set.Range(func(key, _ interface{}) bool {
		slice = append(slice, key.(string))
		return true
	})
	sort.Strings(slice)
	return slice
}

func (s *ConcurrentSet) Len() int {
	length := 0
	s.set.Range(func(_, _ interface{}) bool {
		length++
		return true
	})
	return length
}
