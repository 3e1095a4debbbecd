package wsfe

import (
	"time"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
)

// Voucher type codes as assigned by the authority.
const (
	VoucherTypeA = 1  // Factura A (VAT itemized, registered receptors)
	VoucherTypeB = 6  // Factura B (VAT included, final consumers)
	VoucherTypeC = 11 // Factura C (VAT-exempt issuers)
)

// Concept codes: what the voucher covers.
const (
	ConceptGoods    = 1
	ConceptServices = 2
	ConceptMixed    = 3
)

// Receptor VAT condition codes.
const (
	VATRegistered = 1 // Responsable Inscripto
	FinalConsumer = 5 // Consumidor Final
)

// DocTypeNone is the document type used when the receptor is not
// identified (anonymous final consumer).
const DocTypeNone = 99

// VATEntry is one per-rate line of the voucher's VAT breakdown.
type VATEntry struct {
	Id      int // rate code, e.g. 5 = 21%
	BaseImp float64
	Importe float64
}

// Tax is a non-VAT tax carried by the voucher.
type Tax struct {
	Id      int
	Desc    string
	BaseImp float64
	Alic    float64
	Importe float64
}

// AssociatedVoucher references a previously authorized voucher, e.g.
// the invoice a credit note corrects.
type AssociatedVoucher struct {
	Tipo   int
	PtoVta int
	Nro    int64
}

// VoucherRequest is the caller's description of a fiscal document to
// authorize. The caller supplies the numbering range (CbteDesde and
// CbteHasta); see the package comment on the numbering race.
type VoucherRequest struct {
	PtoVta   int
	CbteTipo int
	Concepto int

	DocTipo int
	DocNro  int64

	// CondicionIVAReceptor is the receptor's VAT condition. Zero means
	// apply the default for the voucher type.
	CondicionIVAReceptor int

	CbteDesde int64
	CbteHasta int64
	CbteFch   string // yyyymmdd; empty means today

	ImpTotal   float64
	ImpTotConc float64
	ImpNeto    float64
	ImpOpEx    float64
	ImpIVA     float64
	ImpTrib    float64

	IVA []VATEntry

	// Service period, required on the wire iff Concepto is services or
	// mixed.
	FchServDesde string
	FchServHasta string
	FchVtoPago   string

	Tributos  []Tax
	CbtesAsoc []AssociatedVoucher

	MonId    string  // currency code; empty means PES
	MonCotiz float64 // exchange rate; zero means 1
}

// VoucherResult is the outcome of a successful authorization.
type VoucherResult struct {
	CAE       string
	CAEExpiry string // yyyymmdd
	CbteDesde int64
	CbteHasta int64
	Result    string // "A" approved, possibly with observations

	// Observations the authority attached to an approved voucher.
	Observations []arca.ServiceError
}

// DefaultVATCondition returns the receptor VAT condition applied when
// the caller does not supply one: type A vouchers are assumed to go to
// VAT-registered receptors, everything else to final consumers.
func DefaultVATCondition(cbteTipo int) int {
	if cbteTipo == VoucherTypeA {
		return VATRegistered
	}
	return FinalConsumer
}

// vatBearing reports whether the voucher type itemizes VAT on the wire.
func vatBearing(cbteTipo int) bool {
	return cbteTipo == VoucherTypeA || cbteTipo == VoucherTypeB
}

// buildDetail maps a VoucherRequest to the wire-level detail record,
// applying the default-value and conditional-field policy.
func buildDetail(req *VoucherRequest, now time.Time) (*feCAEDetRequest, error) {
	if req.PtoVta <= 0 {
		return nil, &arca.ValidationError{Field: "PtoVta", Reason: "point of sale is required"}
	}
	if req.CbteTipo <= 0 {
		return nil, &arca.ValidationError{Field: "CbteTipo", Reason: "voucher type is required"}
	}
	if req.Concepto < ConceptGoods || req.Concepto > ConceptMixed {
		return nil, &arca.ValidationError{Field: "Concepto", Reason: "concept is required"}
	}
	if req.CbteDesde <= 0 || req.CbteHasta < req.CbteDesde {
		return nil, &arca.ValidationError{Field: "CbteDesde", Reason: "numbering range must be positive"}
	}

	det := &feCAEDetRequest{
		Concepto:     req.Concepto,
		DocTipo:      req.DocTipo,
		DocNro:       req.DocNro,
		CanMisMonExt: "N",
		CbteDesde:    req.CbteDesde,
		CbteHasta:    req.CbteHasta,
		CbteFch:      req.CbteFch,
		ImpTotal:     req.ImpTotal,
		ImpTotConc:   req.ImpTotConc,
		ImpNeto:      req.ImpNeto,
		ImpOpEx:      req.ImpOpEx,
		ImpIVA:       req.ImpIVA,
		ImpTrib:      req.ImpTrib,
		MonId:        req.MonId,
		MonCotiz:     req.MonCotiz,
	}

	if det.DocTipo == 0 {
		det.DocTipo = DocTypeNone
	}
	if det.CbteFch == "" {
		det.CbteFch = now.Format("20060102")
	}
	if det.MonId == "" {
		det.MonId = "PES"
	}
	if det.MonCotiz == 0 {
		det.MonCotiz = 1
	}

	det.CondicionIVAReceptorId = req.CondicionIVAReceptor
	if det.CondicionIVAReceptorId == 0 {
		det.CondicionIVAReceptorId = DefaultVATCondition(req.CbteTipo)
	}

	// The VAT breakdown travels only on VAT-bearing voucher types; a
	// type C voucher must carry none regardless of caller input.
	if vatBearing(req.CbteTipo) && len(req.IVA) > 0 {
		iva := &ivaList{}
		for _, entry := range req.IVA {
			iva.AlicIva = append(iva.AlicIva, alicIva{Id: entry.Id, BaseImp: entry.BaseImp, Importe: entry.Importe})
		}
		det.Iva = iva
	}

	if req.Concepto == ConceptServices || req.Concepto == ConceptMixed {
		det.FchServDesde = req.FchServDesde
		det.FchServHasta = req.FchServHasta
		det.FchVtoPago = req.FchVtoPago
	}

	if len(req.Tributos) > 0 {
		tribs := &tributos{}
		for _, t := range req.Tributos {
			tribs.Tributo = append(tribs.Tributo, tributo{Id: t.Id, Desc: t.Desc, BaseImp: t.BaseImp, Alic: t.Alic, Importe: t.Importe})
		}
		det.Tributos = tribs
	}

	if len(req.CbtesAsoc) > 0 {
		asoc := &cbtesAsoc{}
		for _, a := range req.CbtesAsoc {
			asoc.CbteAsoc = append(asoc.CbteAsoc, cbteAsoc{Tipo: a.Tipo, PtoVta: a.PtoVta, Nro: a.Nro})
		}
		det.CbtesAsoc = asoc
	}

	return det, nil
}
