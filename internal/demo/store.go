package demo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrProductNotFound is returned for unknown product ids.
var ErrProductNotFound = errors.New("product not found")

// Product is one catalog item.
type Product struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents" validate:"gte=0"`
	Stock       int       `json:"stock" validate:"gte=0"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductUpdate changes selected product fields. Nil fields are left
// alone.
type ProductUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	PriceCents  *int64  `json:"priceCents,omitempty" validate:"omitempty,gte=0"`
	Stock       *int    `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

// Store is an in-memory product catalog with list, get and update.
type Store struct {
	mu       sync.RWMutex
	products map[string]Product
	now      func() time.Time
}

// NewStore creates a store holding products.
func NewStore(products ...Product) *Store {
	s := &Store{products: make(map[string]Product, len(products)), now: time.Now}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// Seed returns the demo catalog.
func Seed() []Product {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Product{
		{ID: "1", Name: "Trowel", Description: "Carbon steel hand trowel.", PriceCents: 1299, Stock: 40, UpdatedAt: at},
		{ID: "2", Name: "Watering Can", Description: "Two gallon galvanized can.", PriceCents: 3450, Stock: 12, UpdatedAt: at},
		{ID: "3", Name: "Seed Tray", Description: "Seventy-two cell propagation tray.", PriceCents: 899, Stock: 0, UpdatedAt: at},
	}
}

// List returns every product ordered by id.
func (s *Store) List(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns one product.
func (s *Store) Get(ctx context.Context, id string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// Update applies u to product id and returns the result.
func (s *Store) Update(ctx context.Context, id string, u ProductUpdate) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.PriceCents != nil {
		p.PriceCents = *u.PriceCents
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	p.UpdatedAt = s.now()
	s.products[id] = p
	return p, nil
}
