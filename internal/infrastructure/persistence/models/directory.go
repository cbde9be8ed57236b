package models

import (
	"github.com/google/uuid"
)

// OrderRefModel maps a marketplace order number to the profile owning it.
// The directory is maintained by the order import pipeline; the sync
// handlers only read it to attribute order-linked chats.
type OrderRefModel struct {
	BaseModel
	OrderNumber string    `gorm:"size:64;not null;uniqueIndex"`
	ProfileID   uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName specifies the table name for OrderRefModel
func (OrderRefModel) TableName() string {
	return "order_directory"
}

// ProductRefModel maps a product article (offer ID) to its catalog title.
// Question tickets use the title as their subject.
type ProductRefModel struct {
	BaseModel
	Article string `gorm:"size:128;not null;uniqueIndex"`
	Title   string `gorm:"size:255;not null"`
}

// TableName specifies the table name for ProductRefModel
func (ProductRefModel) TableName() string {
	return "product_directory"
}
