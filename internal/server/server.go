// Package server provides the HTTP API that connects the GestionAR
// front end with the ARCA web service clients.
//
// Every endpoint wraps its result in a uniform envelope: {ok:true,
// data:...} on success, {ok:false, error:"..."} on failure. Caller
// input problems map to 400, everything else to 500; the fine-grained
// error taxonomy of the core packages is collapsed here on purpose,
// since a browser client only needs the message.
//
//   - GET  /api/health                       - liveness and configuration summary
//   - GET  /api/arca/status                  - WSFEv1 service status (FEDummy)
//   - POST /api/arca/auth                    - force ticket acquisition
//   - POST /api/arca/invalidate              - drop the cached access ticket
//   - POST /api/facturas/emitir              - authorize the next voucher
//   - GET  /api/facturas                     - list locally persisted vouchers
//   - GET  /api/facturas/ultimo/{ptoVta}/{cbteTipo}
//   - GET  /api/facturas/consultar/{cbteTipo}/{ptoVta}/{cbteNro}
//   - GET  /api/parametros/tipos-comprobante
//   - GET  /api/parametros/tipos-iva
//   - GET  /api/parametros/puntos-venta
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ObregonJeronimo/GestionAR/internal/config"
	"github.com/ObregonJeronimo/GestionAR/internal/keystore"
	"github.com/ObregonJeronimo/GestionAR/internal/storage"
	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
	"github.com/ObregonJeronimo/GestionAR/pkg/wsaa"
	"github.com/ObregonJeronimo/GestionAR/pkg/wsfe"
)

// Server is the GestionAR HTTP API server
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	httpSrv  *http.Server
	auth     *wsaa.Client
	invoices *wsfe.Client
	keys     *keystore.Provider
	store    storage.VoucherStore // nil when persistence is disabled
}

// New creates a new API server
func New(cfg *config.Config, auth *wsaa.Client, invoices *wsfe.Client, keys *keystore.Provider, store storage.VoucherStore, logger *slog.Logger) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		auth:     auth,
		invoices: invoices,
		keys:     keys,
		store:    store,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins listening on the specified address
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	s.logger.Info("starting server", "addr", addr, "env", s.config.ARCA.Environment)
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return err
	}
	if s.store != nil {
		return s.store.Close(ctx)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/arca/status", s.handleStatus)
	mux.HandleFunc("POST /api/arca/auth", s.handleAuth)
	mux.HandleFunc("POST /api/arca/invalidate", s.handleInvalidate)

	mux.HandleFunc("POST /api/facturas/emitir", s.handleEmit)
	mux.HandleFunc("GET /api/facturas", s.handleListVouchers)
	mux.HandleFunc("GET /api/facturas/{ptoVta}/{cbteTipo}/{cbteNro}", s.handleLocalVoucher)
	mux.HandleFunc("GET /api/facturas/ultimo/{ptoVta}/{cbteTipo}", s.handleLastNumber)
	mux.HandleFunc("GET /api/facturas/consultar/{cbteTipo}/{ptoVta}/{cbteNro}", s.handleLookup)

	mux.HandleFunc("GET /api/parametros/tipos-comprobante", s.handleVoucherTypes)
	mux.HandleFunc("GET /api/parametros/tipos-iva", s.handleVATTypes)
	mux.HandleFunc("GET /api/parametros/puntos-venta", s.handlePointsOfSale)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"status": "ok",
		"env":    s.config.ARCA.Environment,
		"cuit":   s.config.ARCA.CUIT,
	}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			data["storage"] = "unreachable"
		} else {
			data["storage"] = "ok"
		}
	}
	s.jsonData(w, data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.invoices.Dummy(r.Context())
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonData(w, status)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.Ticket(r.Context()); err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonData(w, map[string]bool{"authenticated": true})
}

// handleInvalidate drops both caches: the access ticket and the
// resolved credential material, so a rotated certificate on disk is
// picked up on the next authentication.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.auth.Store().Invalidate()
	if s.keys != nil {
		s.keys.Invalidate()
	}
	s.logger.Info("ticket and credential caches invalidated")
	s.jsonData(w, map[string]bool{"invalidated": true})
}

// emitRequest is the JSON body of POST /api/facturas/emitir. Numbering
// is absent on purpose: the server queries the last authorized number
// and submits last+1.
type emitRequest struct {
	PtoVta               int                      `json:"ptoVta"`
	CbteTipo             int                      `json:"cbteTipo"`
	Concepto             int                      `json:"concepto"`
	DocTipo              int                      `json:"docTipo"`
	DocNro               int64                    `json:"docNro"`
	CondicionIVAReceptor int                      `json:"condicionIVAReceptor"`
	CbteFch              string                   `json:"cbteFch"`
	ImpTotal             float64                  `json:"impTotal"`
	ImpTotConc           float64                  `json:"impTotConc"`
	ImpNeto              float64                  `json:"impNeto"`
	ImpOpEx              float64                  `json:"impOpEx"`
	ImpIVA               float64                  `json:"impIVA"`
	ImpTrib              float64                  `json:"impTrib"`
	IVA                  []wsfe.VATEntry          `json:"iva"`
	FchServDesde         string                   `json:"fchServDesde"`
	FchServHasta         string                   `json:"fchServHasta"`
	FchVtoPago           string                   `json:"fchVtoPago"`
	Tributos             []wsfe.Tax               `json:"tributos"`
	CbtesAsoc            []wsfe.AssociatedVoucher `json:"cbtesAsoc"`
	MonId                string                   `json:"monId"`
	MonCotiz             float64                  `json:"monCotiz"`
}

func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	var req emitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, r, &arca.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}

	// The emit endpoint serializes nothing: two concurrent emits for
	// the same point of sale and voucher type can both compute last+1
	// and one of them will be rejected by the authority.
	last, err := s.invoices.LastAuthorized(r.Context(), req.PtoVta, req.CbteTipo)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	next := last + 1

	result, err := s.invoices.Authorize(r.Context(), &wsfe.VoucherRequest{
		PtoVta:               req.PtoVta,
		CbteTipo:             req.CbteTipo,
		Concepto:             req.Concepto,
		DocTipo:              req.DocTipo,
		DocNro:               req.DocNro,
		CondicionIVAReceptor: req.CondicionIVAReceptor,
		CbteDesde:            next,
		CbteHasta:            next,
		CbteFch:              req.CbteFch,
		ImpTotal:             req.ImpTotal,
		ImpTotConc:           req.ImpTotConc,
		ImpNeto:              req.ImpNeto,
		ImpOpEx:              req.ImpOpEx,
		ImpIVA:               req.ImpIVA,
		ImpTrib:              req.ImpTrib,
		IVA:                  req.IVA,
		FchServDesde:         req.FchServDesde,
		FchServHasta:         req.FchServHasta,
		FchVtoPago:           req.FchVtoPago,
		Tributos:             req.Tributos,
		CbtesAsoc:            req.CbtesAsoc,
		MonId:                req.MonId,
		MonCotiz:             req.MonCotiz,
	})
	if err != nil {
		s.jsonError(w, r, err)
		return
	}

	s.persistVoucher(r.Context(), &req, next, result)

	s.jsonData(w, map[string]interface{}{
		"numero":      next,
		"cae":         result.CAE,
		"caeFechaVto": result.CAEExpiry,
		"resultado":   result.Result,
		"ptoVta":      req.PtoVta,
		"cbteTipo":    req.CbteTipo,
	})
}

// persistVoucher records the authorized voucher locally. Persistence
// failures are logged, never surfaced: the voucher is already
// authorized and the authority remains the system of record.
func (s *Server) persistVoucher(ctx context.Context, req *emitRequest, nro int64, result *wsfe.VoucherResult) {
	if s.store == nil {
		return
	}

	err := s.store.SaveVoucher(ctx, &storage.VoucherRecord{
		PtoVta:    req.PtoVta,
		CbteTipo:  req.CbteTipo,
		CbteNro:   nro,
		CbteFch:   req.CbteFch,
		DocTipo:   req.DocTipo,
		DocNro:    req.DocNro,
		ImpTotal:  req.ImpTotal,
		ImpNeto:   req.ImpNeto,
		ImpIVA:    req.ImpIVA,
		CAE:       result.CAE,
		CAEExpiry: result.CAEExpiry,
		Result:    result.Result,
	})
	if err != nil {
		s.logger.Error("failed to persist voucher",
			"pto_vta", req.PtoVta,
			"cbte_tipo", req.CbteTipo,
			"cbte_nro", nro,
			"error", err,
		)
	}
}

func (s *Server) handleListVouchers(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.jsonData(w, []struct{}{})
		return
	}

	filter := &storage.VoucherFilter{}
	if v := r.URL.Query().Get("ptoVta"); v != "" {
		filter.PtoVta, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("cbteTipo"); v != "" {
		filter.CbteTipo, _ = strconv.Atoi(v)
	}

	records, err := s.store.ListVouchers(r.Context(), filter)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonData(w, records)
}

// handleLocalVoucher serves a voucher from the local store. The remote
// consultar endpoint remains the source of truth; this one answers
// from what was persisted at emission time.
func (s *Server) handleLocalVoucher(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.jsonError(w, r, storage.ErrNotFound)
		return
	}

	ptoVta, err1 := strconv.Atoi(r.PathValue("ptoVta"))
	cbteTipo, err2 := strconv.Atoi(r.PathValue("cbteTipo"))
	cbteNro, err3 := strconv.ParseInt(r.PathValue("cbteNro"), 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		s.jsonError(w, r, &arca.ValidationError{Field: "path", Reason: "ptoVta, cbteTipo and cbteNro must be numeric"})
		return
	}

	rec, err := s.store.GetVoucher(r.Context(), ptoVta, cbteTipo, cbteNro)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonData(w, rec)
}

func (s *Server) handleLastNumber(w http.ResponseWriter, r *http.Request) {
	ptoVta, err1 := strconv.Atoi(r.PathValue("ptoVta"))
	cbteTipo, err2 := strconv.Atoi(r.PathValue("cbteTipo"))
	if err1 != nil || err2 != nil {
		s.jsonError(w, r, &arca.ValidationError{Field: "path", Reason: "ptoVta and cbteTipo must be numeric"})
		return
	}

	last, err := s.invoices.LastAuthorized(r.Context(), ptoVta, cbteTipo)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonData(w, map[string]int64{"ultimoNumero": last})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	cbteTipo, err1 := strconv.Atoi(r.PathValue("cbteTipo"))
	ptoVta, err2 := strconv.Atoi(r.PathValue("ptoVta"))
	cbteNro, err3 := strconv.ParseInt(r.PathValue("cbteNro"), 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		s.jsonError(w, r, &arca.ValidationError{Field: "path", Reason: "cbteTipo, ptoVta and cbteNro must be numeric"})
		return
	}

	info, err := s.invoices.Lookup(r.Context(), cbteTipo, ptoVta, cbteNro)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonData(w, info)
}

func (s *Server) handleVoucherTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.invoices.VoucherTypes(r.Context())
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonData(w, types)
}

func (s *Server) handleVATTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.invoices.VATRateTypes(r.Context())
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonData(w, types)
}

func (s *Server) handlePointsOfSale(w http.ResponseWriter, r *http.Request) {
	points, err := s.invoices.PointsOfSale(r.Context())
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonData(w, points)
}

// Response helpers

func (s *Server) jsonData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "data": data})
}

func (s *Server) jsonError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": err.Error()})
}

// statusFor collapses the core error taxonomy to the HTTP surface:
// caller input problems are 400, everything else 500. The remote
// authority's messages pass through verbatim in the error field.
func statusFor(err error) int {
	var verr *arca.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Addr formats the listen address for a configured port.
func Addr(port int) string {
	return fmt.Sprintf(":%d", port)
}
