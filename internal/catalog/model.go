// Package catalog manages the product catalogue through the business API.
package catalog

import (
	"time"

	"github.com/odyssey-erp/odyssey-console/internal/amounts"
)

// Product represents a product entity. Stock is a server projection.
type Product struct {
	ID         int64         `json:"id"`
	Code       string        `json:"code"`
	Name       string        `json:"name"`
	CategoryID int64         `json:"category_id,omitempty"`
	UnitID     int64         `json:"unit_id,omitempty"`
	SupplierID int64         `json:"supplier_id,omitempty"`
	Price      amounts.Money `json:"price"`
	Cost       amounts.Money `json:"cost"`
	Stock      amounts.Money `json:"stock"`
	IsActive   bool          `json:"is_active"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ProductForm is the writable part of a product.
type ProductForm struct {
	Code       string        `json:"code" validate:"required,max=50"`
	Name       string        `json:"name" validate:"required,max=200"`
	CategoryID int64         `json:"category_id,omitempty" validate:"gte=0"`
	UnitID     int64         `json:"unit_id,omitempty" validate:"gte=0"`
	SupplierID int64         `json:"supplier_id,omitempty" validate:"gte=0"`
	Price      amounts.Money `json:"price"`
	Cost       amounts.Money `json:"cost"`
	IsActive   bool          `json:"is_active"`
}
