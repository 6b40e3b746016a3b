package tickers

import (
	"context"
	"errors"
)

// Source supplies the universe for one scan.
type Source interface {
	Tickers(ctx context.Context) ([]string, error)
}

// Static is an inline list.
type Static []string

func (s Static) Tickers(context.Context) ([]string, error) {
	list := Normalize(s)
	if len(list) == 0 {
		return nil, errors.New("empty ticker list")
	}
	return list, nil
}

// File re-reads Path on every scan so the universe can be edited between runs.
type File struct {
	Path string
	Max  int
}

func (f File) Tickers(context.Context) ([]string, error) {
	list, err := LoadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return Limit(list, f.Max), nil
}

// NewSource prefers the file when both are configured.
func NewSource(inline []string, path string, n int) Source {
	if path != "" {
		return File{Path: path, Max: n}
	}
	return limited{Static(inline), n}
}

type limited struct {
	Source
	max int
}

func (l limited) Tickers(ctx context.Context) ([]string, error) {
	list, err := l.Source.Tickers(ctx)
	if err != nil {
		return nil, err
	}
	return Limit(list, l.max), nil
}
