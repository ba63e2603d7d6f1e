package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/services/order/internal/domain"
)

// Product is the stock-keeping row owned by the catalog. The order service
// only reads it and moves Quantity.
type Product struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"              json:"id"`
	Name            string          `gorm:"not null"                          json:"name"`
	Price           decimal.Decimal `gorm:"type:numeric(14,2);not null"       json:"price"`
	DiscountPercent int             `gorm:"not null;default:0"                json:"discount_percent"`
	Quantity        int             `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
}

type Cart struct {
	ID     uuid.UUID  `gorm:"type:uuid;primaryKey"        json:"id"`
	UserID uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Lines  []CartLine `gorm:"foreignKey:CartID"           json:"lines,omitempty"`
}

type CartLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"                           json:"id"`
	CartID      uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Quantity    int             `gorm:"not null;check:quantity > 0"                    json:"quantity"`
	PriceAtTime decimal.Decimal `gorm:"type:numeric(14,2);not null"                    json:"price_at_time"`
	Product     Product         `gorm:"foreignKey:ProductID"                           json:"product"`
}

func (CartLine) TableName() string {
	return "cart_items"
}

type Order struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey"         json:"id"`
	UserID          uuid.UUID          `gorm:"type:uuid;index;not null"     json:"user_id"`
	TotalAmount     decimal.Decimal    `gorm:"type:numeric(14,2);not null"  json:"total_amount"`
	ShippingAddress string             `gorm:"not null"                     json:"shipping_address"`
	Note            string             `gorm:"not null;default:''"          json:"note"`
	Status          domain.OrderStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	PaymentID       *uuid.UUID         `gorm:"type:uuid"                    json:"payment_id"`
	CreatedAt       time.Time          `gorm:"index"                        json:"created_at"`
	UpdatedAt       time.Time          `                                    json:"updated_at"`
	Details         []OrderDetail      `gorm:"foreignKey:OrderID"           json:"details,omitempty"`
	Payment         *Payment           `gorm:"foreignKey:OrderID"           json:"payment,omitempty"`
}

type OrderDetail struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null"    json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"          json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	Product   Product         `gorm:"foreignKey:ProductID"        json:"product"`
}

type Payment struct {
	ID        uuid.UUID            `gorm:"type:uuid;primaryKey"           json:"id"`
	OrderID   uuid.UUID            `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	Amount    decimal.Decimal      `gorm:"type:numeric(14,2);not null"    json:"amount"`
	Method    domain.PaymentMethod `gorm:"type:varchar(16);not null"      json:"method"`
	Status    domain.PaymentStatus `gorm:"type:varchar(16);not null"      json:"status"`
	CreatedAt time.Time            `                                      json:"created_at"`
}

type OutboxEvent struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"     json:"id"`
	AggregateID uuid.UUID  `gorm:"type:uuid;index;not null" json:"aggregate_id"`
	EventType   string     `gorm:"not null"                 json:"event_type"`
	Payload     []byte     `gorm:"type:jsonb;not null"      json:"payload"`
	CreatedAt   time.Time  `gorm:"index"                    json:"created_at"`
	PublishedAt *time.Time `gorm:"index"                    json:"published_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (l *CartLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (d *OrderDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// All lists every table in dependency order for AutoMigrate in tests.
func All() []any {
	return []any{&Product{}, &Cart{}, &CartLine{}, &Order{}, &OrderDetail{}, &Payment{}, &OutboxEvent{}}
}
