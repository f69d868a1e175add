/** Copyright 2020-2023 Alibaba Group Holding Limited.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package twzerr

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Defined returns every named error, ordered by category and then code.
func Defined() []TwzError {
	var out []TwzError
	out = appendSorted(out, genericNames)
	out = appendSorted(out, argumentNames)
	out = appendSorted(out, resourceNames)
	out = appendSorted(out, namingNames)
	out = appendSorted(out, objectNames)
	out = appendSorted(out, ioNames)
	out = appendSorted(out, securityNames)
	return out
}

func appendSorted[T namedCode](out []TwzError, names map[T]string) []TwzError {
	codes := maps.Keys(names)
	slices.Sort(codes)
	for _, c := range codes {
		out = append(out, c)
	}
	return out
}

// ParseCategory accepts a category name as printed by ErrorCategory.String,
// case-insensitively ("io" is accepted for "I/O").
func ParseCategory(s string) (ErrorCategory, error) {
	s = normalize(s)
	for _, c := range Categories() {
		if normalize(c.String()) == s {
			return c, nil
		}
	}
	if s == "io" {
		return IoCategory, nil
	}
	return 0, errors.Errorf("unknown error category %q", s)
}

// Lookup finds a named error by category and name. Names are matched the
// way they print, ignoring case, spaces, dashes and underscores.
func Lookup(category, name string) (TwzError, error) {
	cat, err := ParseCategory(category)
	if err != nil {
		return nil, err
	}
	want := normalize(name)
	for _, e := range Defined() {
		if e.Category() != cat {
			continue
		}
		if normalize(e.(interface{ String() string }).String()) == want {
			return e, nil
		}
	}
	return nil, errors.Errorf("unknown %s error %q", cat, name)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "", "/", "").Replace(s)
}
