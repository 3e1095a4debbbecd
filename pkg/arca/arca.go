// Package arca holds the types shared by every ARCA web service client:
// the environment selector with its endpoint pairs, the credential
// material, and the error taxonomy.
//
// ARCA (formerly AFIP) is the Argentine tax authority. It exposes two
// SOAP services relevant here: WSAA, which issues short-lived access
// tickets against a CMS-signed login request, and WSFEv1, which
// authorizes electronic fiscal vouchers. See the wsaa and wsfe packages
// for the protocol clients.
package arca

import "fmt"

// Environment selects the ARCA deployment a client talks to.
type Environment string

const (
	// Testing is the "homologacion" environment used for certification.
	Testing Environment = "homologacion"
	// Production is the live environment. Vouchers authorized here are
	// legally binding.
	Production Environment = "produccion"
)

// Endpoint URLs per environment. These are fixed by the authority and do
// not change between deployments of this software.
const (
	authURLTesting    = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	authURLProduction = "https://wsaa.afip.gov.ar/ws/services/LoginCms"

	invoiceURLTesting    = "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
	invoiceURLProduction = "https://servicios1.afip.gov.ar/wsfev1/service.asmx"
)

// Valid reports whether e is a known environment.
func (e Environment) Valid() bool {
	return e == Testing || e == Production
}

// AuthURL returns the WSAA loginCms endpoint for the environment.
func (e Environment) AuthURL() string {
	if e == Production {
		return authURLProduction
	}
	return authURLTesting
}

// InvoiceURL returns the WSFEv1 service endpoint for the environment.
func (e Environment) InvoiceURL() string {
	if e == Production {
		return invoiceURLProduction
	}
	return invoiceURLTesting
}

// Credentials is the material a taxpayer needs to authenticate against
// WSAA: the X.509 certificate issued by the authority, the matching
// private key, and the tax identifier (CUIT) the certificate was issued
// for. Both PEM blobs are supplied by configuration; this package never
// reads them from disk itself.
type Credentials struct {
	CertPEM []byte
	KeyPEM  []byte
	CUIT    int64
}

// Validate checks that all credential material is present.
func (c *Credentials) Validate() error {
	if len(c.CertPEM) == 0 {
		return &ConfigurationError{Reason: "certificate is not configured"}
	}
	if len(c.KeyPEM) == 0 {
		return &ConfigurationError{Reason: "private key is not configured"}
	}
	if c.CUIT <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid CUIT %d", c.CUIT)}
	}
	return nil
}
