// Package blocklist decides which search results must never be offered,
// based on uploader names and title fragments.
package blocklist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

type Kind string

const (
	KindUploader Kind = "uploader"
	KindTitle    Kind = "title"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindUploader:
		return KindUploader, nil
	case KindTitle:
		return KindTitle, nil
	default:
		return "", fmt.Errorf("unknown blocklist kind %q (want %q or %q)", s, KindUploader, KindTitle)
	}
}

// Entries is a snapshot of blocked uploaders and title fragments, lowercased.
type Entries struct {
	Uploaders []string
	Titles    []string
}

// Blocks reports whether a result with the given author and title is blocked.
// Matching is case-insensitive substring matching.
func (e Entries) Blocks(author, title string) bool {
	author = strings.ToLower(author)
	title = strings.ToLower(title)
	for _, u := range e.Uploaders {
		if u != "" && strings.Contains(author, u) {
			return true
		}
	}
	for _, t := range e.Titles {
		if t != "" && strings.Contains(title, t) {
			return true
		}
	}
	return false
}

func (e Entries) Empty() bool {
	return len(e.Uploaders) == 0 && len(e.Titles) == 0
}

type Store interface {
	Entries(ctx context.Context) (Entries, error)
}

// Editor is a Store whose entries can be changed at runtime.
type Editor interface {
	Store
	Add(ctx context.Context, kind Kind, value string) error
	Remove(ctx context.Context, kind Kind, value string) error
}

// StaticStore serves a fixed set of entries, typically from configuration.
type StaticStore struct {
	entries Entries
}

func NewStaticStore(uploaders, titles []string) *StaticStore {
	return &StaticStore{entries: Entries{
		Uploaders: normalize(uploaders),
		Titles:    normalize(titles),
	}}
}

func (s *StaticStore) Entries(context.Context) (Entries, error) {
	return s.entries, nil
}

var _ Store = (*StaticStore)(nil)

// MergedStore unions the entries of several stores. A failing store does not
// hide the entries of the others; its error is returned alongside them.
type MergedStore struct {
	stores []Store
}

func NewMergedStore(stores ...Store) *MergedStore {
	return &MergedStore{stores: stores}
}

func (m *MergedStore) Entries(ctx context.Context) (Entries, error) {
	var merged Entries
	var errs []error
	for _, s := range m.stores {
		e, err := s.Entries(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		merged.Uploaders = append(merged.Uploaders, e.Uploaders...)
		merged.Titles = append(merged.Titles, e.Titles...)
	}
	merged.Uploaders = dedupe(merged.Uploaders)
	merged.Titles = dedupe(merged.Titles)
	return merged, errors.Join(errs...)
}

var _ Store = (*MergedStore)(nil)

func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return dedupe(out)
}

func dedupe(values []string) []string {
	slices.Sort(values)
	return slices.Compact(values)
}
