// Package storage provides persistence for issued vouchers.
//
// The core protocol clients never require a database: the authority is
// the system of record and a caller may re-query any voucher with
// FECompConsultar. Persisting issued vouchers locally is what lets the
// application list sales and reprint invoices without a remote round
// trip.
//
// All store implementations must be safe for concurrent use.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a voucher record does not exist.
var ErrNotFound = errors.New("voucher not found")

// VoucherRecord is an issued voucher as persisted locally. The JSON
// tags are the shape the HTTP API serves.
type VoucherRecord struct {
	ID        string    `bson:"_id" json:"id"`
	PtoVta    int       `bson:"pto_vta" json:"ptoVta"`
	CbteTipo  int       `bson:"cbte_tipo" json:"cbteTipo"`
	CbteNro   int64     `bson:"cbte_nro" json:"cbteNro"`
	CbteFch   string    `bson:"cbte_fch" json:"cbteFch"`
	DocTipo   int       `bson:"doc_tipo" json:"docTipo"`
	DocNro    int64     `bson:"doc_nro" json:"docNro"`
	ImpTotal  float64   `bson:"imp_total" json:"impTotal"`
	ImpNeto   float64   `bson:"imp_neto" json:"impNeto"`
	ImpIVA    float64   `bson:"imp_iva" json:"impIVA"`
	CAE       string    `bson:"cae" json:"cae"`
	CAEExpiry string    `bson:"cae_expiry" json:"caeFechaVto"`
	Result    string    `bson:"result" json:"resultado"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// VoucherFilter narrows ListVouchers results. Zero values mean "any".
type VoucherFilter struct {
	PtoVta   int
	CbteTipo int
	Limit    int64
}

// VoucherStore persists issued vouchers
type VoucherStore interface {
	// SaveVoucher stores an issued voucher record
	SaveVoucher(ctx context.Context, rec *VoucherRecord) error

	// GetVoucher retrieves a voucher by its identity triple
	GetVoucher(ctx context.Context, ptoVta, cbteTipo int, cbteNro int64) (*VoucherRecord, error)

	// ListVouchers returns vouchers matching the filter, newest first
	ListVouchers(ctx context.Context, filter *VoucherFilter) ([]*VoucherRecord, error)

	// Ping checks database connectivity
	Ping(ctx context.Context) error

	// Close releases storage resources
	Close(ctx context.Context) error
}
