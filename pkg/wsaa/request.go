package wsaa

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/beevik/etree"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
)

const (
	// generationSkew is subtracted from the generation time so a small
	// clock drift between us and WSAA cannot make the request appear to
	// come from the future.
	generationSkew = 10 * time.Minute

	// requestValidity is how long the TRA itself remains acceptable.
	requestValidity = 10 * time.Hour

	// timeLayout is the exact textual format WSAA expects: timezone
	// qualified with a fixed UTC offset, second precision.
	timeLayout = "2006-01-02T15:04:05-07:00"
)

// lastUniqueID enforces that uniqueId never decreases within the
// process, even if the wall clock steps backwards.
var lastUniqueID atomic.Int64

// LoginTicketRequest is the TRA (Ticket de Requerimiento de Acceso)
// submitted to loginCms. Built fresh on every authentication attempt.
type LoginTicketRequest struct {
	UniqueID       int64
	GenerationTime time.Time
	ExpirationTime time.Time
	Service        string
}

// NewLoginTicketRequest builds a TRA for the given logical service name
// at the given instant.
func NewLoginTicketRequest(service string, now time.Time) (*LoginTicketRequest, error) {
	if service == "" {
		return nil, &arca.ConfigurationError{Reason: "service name is empty"}
	}

	id := now.Unix()
	for {
		last := lastUniqueID.Load()
		if id < last {
			id = last
		}
		if lastUniqueID.CompareAndSwap(last, id) {
			break
		}
	}

	return &LoginTicketRequest{
		UniqueID:       id,
		GenerationTime: now.Add(-generationSkew),
		ExpirationTime: now.Add(requestValidity),
		Service:        service,
	}, nil
}

// XML serializes the TRA into the document WSAA expects.
func (r *LoginTicketRequest) XML() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("loginTicketRequest")
	root.CreateAttr("version", "1.0")

	header := root.CreateElement("header")
	header.CreateElement("uniqueId").SetText(strconv.FormatInt(r.UniqueID, 10))
	header.CreateElement("generationTime").SetText(formatTime(r.GenerationTime))
	header.CreateElement("expirationTime").SetText(formatTime(r.ExpirationTime))

	root.CreateElement("service").SetText(r.Service)

	return doc.WriteToBytes()
}

// formatTime renders t in UTC with an explicit +00:00 offset.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
