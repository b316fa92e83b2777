package main

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
)

// User is the demo model queried through the users endpoint.
type User struct {
	ID        uint           `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Age       int            `json:"age"`
	Score     float64        `json:"score"`
	Status    string         `json:"status"`
	Category  string         `json:"category"`
	Country   string         `json:"country"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty"`
	Orders    []Order        `json:"orders,omitempty"`
}

type Product struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	InStock  bool    `json:"in_stock"`
}

type Order struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	ProductID uint      `json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
	Total     float64   `json:"total"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) AppendAttribute(name string) (any, bool) {
	switch name {
	case "displayName":
		return fmt.Sprintf("%s <%s>", u.Name, u.Email), true
	case "orderCount":
		return len(u.Orders), true
	}
	return nil, false
}

func seed(db *gorm.DB, users int) error {
	if err := db.AutoMigrate(&User{}, &Product{}, &Order{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	rng := rand.New(rand.NewSource(42))
	products := generateProducts(rng, 20)
	if err := db.CreateInBatches(products, 100).Error; err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	generated := generateUsers(rng, users)
	if err := db.CreateInBatches(generated, 100).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	orders := generateOrders(rng, users*2, users, len(products))
	if err := db.CreateInBatches(orders, 100).Error; err != nil {
		return fmt.Errorf("failed to seed orders: %w", err)
	}

	// roughly one user in ten is soft deleted
	for _, u := range generated {
		if u.ID%10 == 0 {
			if err := db.Delete(&User{}, u.ID).Error; err != nil {
				return fmt.Errorf("failed to soft delete user %d: %w", u.ID, err)
			}
		}
	}
	return nil
}

func generateUsers(rng *rand.Rand, count int) []User {
	names := []string{"John", "Jane", "Bob", "Alice", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry"}
	domains := []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "company.com"}
	statuses := []string{"active", "inactive", "pending", "suspended"}
	categories := []string{"tech", "business", "finance", "health", "education"}
	countries := []string{"US", "CA", "UK", "DE", "FR", "JP", "AU"}

	users := make([]User, count)
	for i := range users {
		name := names[rng.Intn(len(names))]
		users[i] = User{
			ID:        uint(i + 1),
			Name:      fmt.Sprintf("%s %d", name, i+1),
			Email:     fmt.Sprintf("%s%d@%s", name, i+1, domains[rng.Intn(len(domains))]),
			Age:       18 + rng.Intn(50),
			Score:     float64(rng.Intn(10000)) / 100,
			Status:    statuses[rng.Intn(len(statuses))],
			Category:  categories[rng.Intn(len(categories))],
			Country:   countries[rng.Intn(len(countries))],
			CreatedAt: time.Now().Add(-time.Duration(rng.Intn(365)) * 24 * time.Hour),
		}
	}
	return users
}

func generateProducts(rng *rand.Rand, count int) []Product {
	names := []string{"Laptop", "Phone", "Tablet", "Monitor", "Keyboard", "Mouse", "Headphones", "Camera", "Speaker", "Charger"}
	categories := []string{"Electronics", "Computers", "Accessories", "Audio", "Photography"}

	products := make([]Product, count)
	for i := range products {
		products[i] = Product{
			ID:       uint(i + 1),
			Name:     fmt.Sprintf("%s %d", names[rng.Intn(len(names))], i+1),
			Price:    float64(rng.Intn(200000)) / 100,
			Category: categories[rng.Intn(len(categories))],
			InStock:  rng.Float32() < 0.8,
		}
	}
	return products
}

func generateOrders(rng *rand.Rand, count, users, products int) []Order {
	statuses := []string{"pending", "processing", "shipped", "delivered", "cancelled"}

	orders := make([]Order, count)
	for i := range orders {
		qty := 1 + rng.Intn(5)
		orders[i] = Order{
			ID:        uint(i + 1),
			UserID:    uint(1 + rng.Intn(users)),
			ProductID: uint(1 + rng.Intn(products)),
			Quantity:  qty,
			Total:     float64(qty*rng.Intn(50000)) / 100,
			Status:    statuses[rng.Intn(len(statuses))],
			CreatedAt: time.Now().Add(-time.Duration(rng.Intn(90)) * 24 * time.Hour),
		}
	}
	return orders
}
