package soap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
)

const faultEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <soapenv:Fault>
      <faultcode>ns1:coe.alreadyAuthenticated</faultcode>
      <faultstring>El CEE ya posee un TA valido para el acceso al WSN solicitado</faultstring>
    </soapenv:Fault>
  </soapenv:Body>
</soapenv:Envelope>`

func TestCall_WrapsAndUnwraps(t *testing.T) {
	var gotAction, gotContentType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.Header.Get("SOAPAction")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		io.WriteString(w, `<?xml version="1.0"?>
			<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
				<soap:Body>
					<FEDummyResponse xmlns="http://ar.gov.afip.dif.FEV1/">
						<FEDummyResult><AppServer>OK</AppServer></FEDummyResult>
					</FEDummyResponse>
				</soap:Body>
			</soap:Envelope>`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	result, err := client.Call(context.Background(), "http://ar.gov.afip.dif.FEV1/FEDummy", []byte(`<FEDummy xmlns="http://ar.gov.afip.dif.FEV1/"/>`))
	require.NoError(t, err)

	// SOAPAction must be quoted; the request body must be an envelope.
	assert.Equal(t, `"http://ar.gov.afip.dif.FEV1/FEDummy"`, gotAction)
	assert.Contains(t, gotContentType, "text/xml")
	assert.Contains(t, string(gotBody), "<soapenv:Envelope")
	assert.Contains(t, string(gotBody), "<FEDummy")

	// The result is the first Body child, envelope stripped.
	assert.Contains(t, string(result), "FEDummyResponse")
	assert.Contains(t, string(result), "<AppServer>OK</AppServer>")
	assert.NotContains(t, string(result), "Envelope")
}

func TestCall_FaultWithStatus500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, faultEnvelope)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, DefaultConfig())

	_, err := client.Call(context.Background(), "", []byte(`<loginCms/>`))
	require.Error(t, err)

	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "ns1:coe.alreadyAuthenticated", fault.Code)
	assert.Contains(t, fault.Reason, "ya posee un TA valido")
}

func TestCall_NonXMLErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream unavailable")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	_, err := client.Call(context.Background(), "", []byte(`<x/>`))
	require.Error(t, err)

	var terr *arca.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, terr.Error(), "502")
}

func TestCall_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, nil)

	_, err := client.Call(context.Background(), "", []byte(`<x/>`))
	require.Error(t, err)

	var terr *arca.TransportError
	assert.True(t, errors.As(err, &terr))
}

func TestCall_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body/></soap:Envelope>`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	_, err := client.Call(context.Background(), "", []byte(`<x/>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty SOAP Body")
}
