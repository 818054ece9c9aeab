package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a car with the given ID is not in the replica.
var ErrNotFound = errors.New("car not found")

// Storage is the main interface for the catalog replica storage layer.
type Storage interface {
	Upsert(ctx context.Context, car *Car) error
	Get(ctx context.Context, id int64) (*Car, error)
	// ListBySold returns cars filtered by the sold flag, ordered by ascending price.
	ListBySold(ctx context.Context, sold bool) ([]*Car, error)
	SetSold(ctx context.Context, id int64, sold bool) error
}

// LocalStorage provides an in-memory implementation of the catalog replica.
type LocalStorage struct {
	mu sync.RWMutex
	m  map[int64]*Car
}

// NewLocalStorage instantiates a new LocalStorage with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[int64]*Car{},
	}
}

// Upsert inserts or fully overwrites the car record keyed by its ID.
func (l *LocalStorage) Upsert(_ context.Context, car *Car) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := *car
	l.m[car.ID] = &stored
	return nil
}

// Get retrieves a car by ID. Returns ErrNotFound if the car is not present.
func (l *LocalStorage) Get(_ context.Context, id int64) (*Car, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

// ListBySold returns cars matching the sold flag, ordered by ascending price.
func (l *LocalStorage) ListBySold(_ context.Context, sold bool) ([]*Car, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cars := make([]*Car, 0)
	for _, c := range l.m {
		if c.Sold != sold {
			continue
		}
		out := *c
		cars = append(cars, &out)
	}
	sort.Slice(cars, func(i, j int) bool {
		return cars[i].Price.LessThan(cars[j].Price)
	})
	return cars, nil
}

// SetSold toggles the sold flag for a car. Returns ErrNotFound if absent.
func (l *LocalStorage) SetSold(_ context.Context, id int64, sold bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.m[id]
	if !ok {
		return ErrNotFound
	}
	c.Sold = sold
	return nil
}
