package wsfe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func minimalRequest(cbteTipo int) *VoucherRequest {
	return &VoucherRequest{
		PtoVta:    1,
		CbteTipo:  cbteTipo,
		Concepto:  ConceptGoods,
		CbteDesde: 10,
		CbteHasta: 10,
		ImpTotal:  121,
		ImpNeto:   100,
		ImpIVA:    21,
		IVA:       []VATEntry{{Id: 5, BaseImp: 100, Importe: 21}},
	}
}

func TestBuildDetail_Defaults(t *testing.T) {
	det, err := buildDetail(minimalRequest(VoucherTypeB), testNow)
	require.NoError(t, err)

	assert.Equal(t, DocTypeNone, det.DocTipo)
	assert.Equal(t, int64(0), det.DocNro)
	assert.Equal(t, FinalConsumer, det.CondicionIVAReceptorId)
	assert.Equal(t, "N", det.CanMisMonExt)
	assert.Equal(t, "20260315", det.CbteFch)
	assert.Equal(t, "PES", det.MonId)
	assert.Equal(t, float64(1), det.MonCotiz)
}

func TestBuildDetail_ExplicitValuesKept(t *testing.T) {
	req := minimalRequest(VoucherTypeB)
	req.DocTipo = 80
	req.DocNro = 20123456789
	req.CondicionIVAReceptor = VATRegistered
	req.CbteFch = "20260301"
	req.MonId = "DOL"
	req.MonCotiz = 1234.5

	det, err := buildDetail(req, testNow)
	require.NoError(t, err)

	assert.Equal(t, 80, det.DocTipo)
	assert.Equal(t, int64(20123456789), det.DocNro)
	assert.Equal(t, VATRegistered, det.CondicionIVAReceptorId)
	assert.Equal(t, "20260301", det.CbteFch)
	assert.Equal(t, "DOL", det.MonId)
	assert.Equal(t, 1234.5, det.MonCotiz)
}

func TestDefaultVATCondition(t *testing.T) {
	assert.Equal(t, VATRegistered, DefaultVATCondition(VoucherTypeA))
	assert.Equal(t, FinalConsumer, DefaultVATCondition(VoucherTypeB))
	assert.Equal(t, FinalConsumer, DefaultVATCondition(VoucherTypeC))
	assert.Equal(t, FinalConsumer, DefaultVATCondition(3))
}

func TestBuildDetail_VATBreakdownOnlyOnBearingTypes(t *testing.T) {
	detA, err := buildDetail(minimalRequest(VoucherTypeA), testNow)
	require.NoError(t, err)
	require.NotNil(t, detA.Iva)
	require.Len(t, detA.Iva.AlicIva, 1)
	assert.Equal(t, 5, detA.Iva.AlicIva[0].Id)
	assert.Equal(t, float64(100), detA.Iva.AlicIva[0].BaseImp)
	assert.Equal(t, float64(21), detA.Iva.AlicIva[0].Importe)

	detB, err := buildDetail(minimalRequest(VoucherTypeB), testNow)
	require.NoError(t, err)
	assert.NotNil(t, detB.Iva)

	// A type C voucher carries no breakdown even when the caller
	// supplies one.
	detC, err := buildDetail(minimalRequest(VoucherTypeC), testNow)
	require.NoError(t, err)
	assert.Nil(t, detC.Iva)
}

func TestBuildDetail_ServiceDates(t *testing.T) {
	req := minimalRequest(VoucherTypeB)
	req.FchServDesde = "20260301"
	req.FchServHasta = "20260331"
	req.FchVtoPago = "20260410"

	// Goods: service period must not travel.
	det, err := buildDetail(req, testNow)
	require.NoError(t, err)
	assert.Empty(t, det.FchServDesde)
	assert.Empty(t, det.FchServHasta)
	assert.Empty(t, det.FchVtoPago)

	req.Concepto = ConceptServices
	det, err = buildDetail(req, testNow)
	require.NoError(t, err)
	assert.Equal(t, "20260301", det.FchServDesde)
	assert.Equal(t, "20260331", det.FchServHasta)
	assert.Equal(t, "20260410", det.FchVtoPago)

	req.Concepto = ConceptMixed
	det, err = buildDetail(req, testNow)
	require.NoError(t, err)
	assert.Equal(t, "20260301", det.FchServDesde)
}

func TestBuildDetail_OptionalLists(t *testing.T) {
	req := minimalRequest(VoucherTypeB)
	det, err := buildDetail(req, testNow)
	require.NoError(t, err)
	assert.Nil(t, det.Tributos)
	assert.Nil(t, det.CbtesAsoc)

	req.Tributos = []Tax{{Id: 2, Desc: "IIBB", BaseImp: 100, Alic: 3, Importe: 3}}
	req.CbtesAsoc = []AssociatedVoucher{{Tipo: 1, PtoVta: 1, Nro: 9}}

	det, err = buildDetail(req, testNow)
	require.NoError(t, err)
	require.NotNil(t, det.Tributos)
	assert.Equal(t, "IIBB", det.Tributos.Tributo[0].Desc)
	require.NotNil(t, det.CbtesAsoc)
	assert.Equal(t, int64(9), det.CbtesAsoc.CbteAsoc[0].Nro)
}

func TestBuildDetail_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*VoucherRequest)
		field  string
	}{
		{"missing point of sale", func(r *VoucherRequest) { r.PtoVta = 0 }, "PtoVta"},
		{"missing voucher type", func(r *VoucherRequest) { r.CbteTipo = 0 }, "CbteTipo"},
		{"missing concept", func(r *VoucherRequest) { r.Concepto = 0 }, "Concepto"},
		{"concept out of range", func(r *VoucherRequest) { r.Concepto = 4 }, "Concepto"},
		{"missing numbering", func(r *VoucherRequest) { r.CbteDesde = 0; r.CbteHasta = 0 }, "CbteDesde"},
		{"inverted numbering range", func(r *VoucherRequest) { r.CbteHasta = r.CbteDesde - 1 }, "CbteDesde"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := minimalRequest(VoucherTypeB)
			tc.mutate(req)

			_, err := buildDetail(req, testNow)
			require.Error(t, err)

			var verr *arca.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}
