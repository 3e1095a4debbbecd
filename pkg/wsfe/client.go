package wsfe

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
	"github.com/ObregonJeronimo/GestionAR/pkg/wsaa"
)

// Caller issues a single SOAP operation. Satisfied by *soap.Client.
type Caller interface {
	Call(ctx context.Context, action string, payload []byte) ([]byte, error)
}

// TicketSource supplies valid WSAA access tickets. Satisfied by
// *wsaa.Client.
type TicketSource interface {
	Ticket(ctx context.Context) (*wsaa.AccessTicket, error)
}

// Client talks to WSFEv1. Every operation except Dummy first obtains
// an access ticket from the ticket source, which may trigger a full
// authentication round trip.
type Client struct {
	tickets   TicketSource
	transport Caller
	cuit      int64
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates an invoicing client for the given CUIT.
func NewClient(tickets TicketSource, transport Caller, cuit int64, opts ...Option) (*Client, error) {
	if tickets == nil {
		return nil, &arca.ConfigurationError{Reason: "ticket source is nil"}
	}
	if transport == nil {
		return nil, &arca.ConfigurationError{Reason: "transport is nil"}
	}
	if cuit <= 0 {
		return nil, &arca.ConfigurationError{Reason: fmt.Sprintf("invalid CUIT %d", cuit)}
	}

	c := &Client{
		tickets:   tickets,
		transport: transport,
		cuit:      cuit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) authHeader(ctx context.Context) (Auth, error) {
	ticket, err := c.tickets.Ticket(ctx)
	if err != nil {
		return Auth{}, err
	}
	return Auth{Token: ticket.Token, Sign: ticket.Sign, Cuit: c.cuit}, nil
}

// Authorize submits one voucher for authorization and interprets the
// response.
//
// Cancelling ctx after the request has been accepted by the authority
// cannot un-authorize the voucher: on a transport error after send the
// outcome is unknown and the caller must look the voucher up before
// resubmitting.
func (c *Client) Authorize(ctx context.Context, req *VoucherRequest) (*VoucherResult, error) {
	detail, err := buildDetail(req, c.now())
	if err != nil {
		return nil, err
	}

	auth, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	wire := &feCAESolicitar{
		Auth: auth,
		FeCAEReq: feCAEReq{
			FeCabReq: feCabReq{CantReg: 1, PtoVta: req.PtoVta, CbteTipo: req.CbteTipo},
			FeDetReq: feDetReq{FECAEDetRequest: []feCAEDetRequest{*detail}},
		},
	}

	payload, err := xml.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("serializing request: %w", err)
	}

	payload, err = EnsureReceptorVATCondition(payload, detail.CondicionIVAReceptorId)
	if err != nil {
		return nil, err
	}

	body, err := c.transport.Call(ctx, serviceNS+"FECAESolicitar", payload)
	if err != nil {
		return nil, err
	}

	return interpretCAEResponse(body)
}

func interpretCAEResponse(body []byte) (*VoucherResult, error) {
	var resp feCAESolicitarResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing FECAESolicitar response: %w", err)
	}

	if err := remoteErrors(resp.Result.Errors); err != nil {
		return nil, err
	}

	details := resp.Result.FeDetResp.FECAEDetResponse
	if len(details) == 0 {
		return nil, fmt.Errorf("FECAESolicitar response has no detail record")
	}
	det := details[0]

	var observations []arca.ServiceError
	if det.Observaciones != nil {
		observations = toServiceErrors(det.Observaciones.Obs)
	}

	// The header Resultado covers the whole batch; with a single detail
	// record a rejected header means a rejected voucher even if the
	// detail's own Resultado is missing.
	if det.Resultado == "R" || resp.Result.FeCabResp.Resultado == "R" {
		return nil, &arca.VoucherRejected{Observations: observations}
	}

	return &VoucherResult{
		CAE:          det.CAE,
		CAEExpiry:    det.CAEFchVto,
		CbteDesde:    det.CbteDesde,
		CbteHasta:    det.CbteHasta,
		Result:       det.Resultado,
		Observations: observations,
	}, nil
}

// LastAuthorized returns the number of the last voucher authorized for
// the point of sale and voucher type. The conventional next number is
// LastAuthorized+1, but the read-increment-submit sequence is racy; see
// the package comment.
func (c *Client) LastAuthorized(ctx context.Context, ptoVta, cbteTipo int) (int64, error) {
	auth, err := c.authHeader(ctx)
	if err != nil {
		return 0, err
	}

	body, err := c.call(ctx, "FECompUltimoAutorizado", &feCompUltimoAutorizado{
		Auth: auth, PtoVta: ptoVta, CbteTipo: cbteTipo,
	})
	if err != nil {
		return 0, err
	}

	var resp feCompUltimoAutorizadoResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parsing FECompUltimoAutorizado response: %w", err)
	}
	if err := remoteErrors(resp.Result.Errors); err != nil {
		return 0, err
	}
	return resp.Result.CbteNro, nil
}

// VoucherInfo is an already authorized voucher as returned by Lookup.
type VoucherInfo struct {
	Concepto        int
	DocTipo         int
	DocNro          int64
	CbteDesde       int64
	CbteHasta       int64
	CbteFch         string
	ImpTotal        float64
	ImpNeto         float64
	ImpIVA          float64
	MonId           string
	MonCotiz        float64
	Resultado       string
	CodAutorizacion string
	FchVto          string
	EmisionTipo     string
}

// Lookup retrieves an already authorized voucher.
func (c *Client) Lookup(ctx context.Context, cbteTipo, ptoVta int, cbteNro int64) (*VoucherInfo, error) {
	auth, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.call(ctx, "FECompConsultar", &feCompConsultar{
		Auth: auth,
		Req:  feCompConsReq{CbteTipo: cbteTipo, CbteNro: cbteNro, PtoVta: ptoVta},
	})
	if err != nil {
		return nil, err
	}

	var resp feCompConsultarResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing FECompConsultar response: %w", err)
	}
	if err := remoteErrors(resp.Result.Errors); err != nil {
		return nil, err
	}

	d := resp.Result.ResultGet
	return &VoucherInfo{
		Concepto:        d.Concepto,
		DocTipo:         d.DocTipo,
		DocNro:          d.DocNro,
		CbteDesde:       d.CbteDesde,
		CbteHasta:       d.CbteHasta,
		CbteFch:         d.CbteFch,
		ImpTotal:        d.ImpTotal,
		ImpNeto:         d.ImpNeto,
		ImpIVA:          d.ImpIVA,
		MonId:           d.MonId,
		MonCotiz:        d.MonCotiz,
		Resultado:       d.Resultado,
		CodAutorizacion: d.CodAutorizacion,
		FchVto:          d.FchVto,
		EmisionTipo:     d.EmisionTipo,
	}, nil
}

// ServiceStatus is the health of the three WSFEv1 subsystems.
type ServiceStatus struct {
	AppServer  string
	DbServer   string
	AuthServer string
}

// Dummy checks service availability. It is the only operation that
// needs no access ticket.
func (c *Client) Dummy(ctx context.Context) (*ServiceStatus, error) {
	body, err := c.call(ctx, "FEDummy", &feDummy{})
	if err != nil {
		return nil, err
	}

	var resp feDummyResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing FEDummy response: %w", err)
	}
	return &ServiceStatus{
		AppServer:  resp.Result.AppServer,
		DbServer:   resp.Result.DbServer,
		AuthServer: resp.Result.AuthServer,
	}, nil
}

// ReferenceEntry is one row of a reference table (voucher types, VAT
// rate types).
type ReferenceEntry struct {
	Id       int
	Desc     string
	FchDesde string
	FchHasta string
}

// VoucherTypes lists the voucher types the issuer may emit.
func (c *Client) VoucherTypes(ctx context.Context) ([]ReferenceEntry, error) {
	auth, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.call(ctx, "FEParamGetTiposCbte", &feParamGetTiposCbte{Auth: auth})
	if err != nil {
		return nil, err
	}

	var resp feParamGetTiposCbteResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing FEParamGetTiposCbte response: %w", err)
	}
	if err := remoteErrors(resp.Result.Errors); err != nil {
		return nil, err
	}
	return toReferenceEntries(resp.Result.ResultGet.CbteTipo), nil
}

// VATRateTypes lists the VAT rate codes.
func (c *Client) VATRateTypes(ctx context.Context) ([]ReferenceEntry, error) {
	auth, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.call(ctx, "FEParamGetTiposIva", &feParamGetTiposIva{Auth: auth})
	if err != nil {
		return nil, err
	}

	var resp feParamGetTiposIvaResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing FEParamGetTiposIva response: %w", err)
	}
	if err := remoteErrors(resp.Result.Errors); err != nil {
		return nil, err
	}
	return toReferenceEntries(resp.Result.ResultGet.IvaTipo), nil
}

// PointOfSale is one authorized point of sale.
type PointOfSale struct {
	Nro         int
	EmisionTipo string
	Bloqueado   bool
	FchBaja     string
}

// PointsOfSale lists the issuer's authorized points of sale.
func (c *Client) PointsOfSale(ctx context.Context) ([]PointOfSale, error) {
	auth, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.call(ctx, "FEParamGetPtosVenta", &feParamGetPtosVenta{Auth: auth})
	if err != nil {
		return nil, err
	}

	var resp feParamGetPtosVentaResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing FEParamGetPtosVenta response: %w", err)
	}
	if err := remoteErrors(resp.Result.Errors); err != nil {
		return nil, err
	}

	out := make([]PointOfSale, 0, len(resp.Result.ResultGet.PtoVenta))
	for _, pv := range resp.Result.ResultGet.PtoVenta {
		out = append(out, PointOfSale{
			Nro:         pv.Nro,
			EmisionTipo: pv.EmisionTipo,
			Bloqueado:   pv.Bloqueado == "S",
			FchBaja:     pv.FchBaja,
		})
	}
	return out, nil
}

// call marshals the operation document and issues it with the matching
// SOAPAction.
func (c *Client) call(ctx context.Context, operation string, doc interface{}) ([]byte, error) {
	payload, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serializing %s request: %w", operation, err)
	}
	return c.transport.Call(ctx, serviceNS+operation, payload)
}

func remoteErrors(errs *wireErrors) error {
	if errs == nil || len(errs.Err) == 0 {
		return nil
	}
	return &arca.RemoteRejection{Errors: toServiceErrors(errs.Err)}
}

func toServiceErrors(errs []wireErr) []arca.ServiceError {
	out := make([]arca.ServiceError, len(errs))
	for i, e := range errs {
		out[i] = arca.ServiceError{Code: e.Code, Msg: e.Msg}
	}
	return out
}

func toReferenceEntries(entries []paramEntry) []ReferenceEntry {
	out := make([]ReferenceEntry, len(entries))
	for i, e := range entries {
		out[i] = ReferenceEntry{Id: e.Id, Desc: e.Desc, FchDesde: e.FchDesde, FchHasta: e.FchHasta}
	}
	return out
}
