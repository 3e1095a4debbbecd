/*
Package soap implements the SOAP 1.1 HTTP transport shared by the ARCA
web service clients.

The ARCA services are plain document-style SOAP over HTTPS: a request is
a single operation element POSTed inside a SOAP envelope with a
text/xml content type and a SOAPAction header, and the response is the
operation's result element inside the response envelope Body.

# Client Usage

Create a client bound to a service endpoint and call an operation:

	client := soap.NewClient("https://wswhomo.afip.gov.ar/wsfev1/service.asmx", nil)
	result, err := client.Call(ctx, "http://ar.gov.afip.dif.FEV1/FEDummy", payload)

Call returns the serialized first child of the response Body. A SOAP
Fault in the response surfaces as a *Fault error; network and HTTP
failures surface as *arca.TransportError.

# TLS Configuration

The client defaults to TLS 1.2 minimum with a 30 second request
timeout. Timeouts are always finite: a hung remote call eventually
fails with a TransportError rather than blocking the caller forever.
*/
package soap
