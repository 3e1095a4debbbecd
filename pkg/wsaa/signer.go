package wsaa

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/smallstep/pkcs7"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
)

// Signer wraps TRA documents in a CMS (PKCS#7) SignedData envelope: the
// signer certificate, a SHA-256 digest of the content, and the signed
// attributes (content-type, message-digest, signing-time) the authority
// requires. The content travels inside the envelope.
type Signer struct {
	cert *x509.Certificate
	key  crypto.Signer
}

// NewSigner parses the PEM credential material and verifies that the
// private key matches the certificate.
func NewSigner(creds *arca.Credentials) (*Signer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	cert, err := parseCertificate(creds.CertPEM)
	if err != nil {
		return nil, &arca.ConfigurationError{Reason: "parsing certificate", Err: err}
	}

	key, err := parsePrivateKey(creds.KeyPEM)
	if err != nil {
		return nil, &arca.ConfigurationError{Reason: "parsing private key", Err: err}
	}

	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(cert.PublicKey) {
		return nil, &arca.ConfigurationError{Reason: "private key does not match certificate"}
	}

	return &Signer{cert: cert, key: key}, nil
}

// Certificate returns the signing certificate.
func (s *Signer) Certificate() *x509.Certificate { return s.cert }

// Sign produces the base64 encoding of the DER-encoded CMS envelope
// around the given content.
func (s *Signer) Sign(content []byte) (string, error) {
	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		return "", fmt.Errorf("initializing signed data: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	if err := sd.AddSigner(s.cert, s.key, pkcs7.SignerInfoConfig{}); err != nil {
		return "", fmt.Errorf("adding signer: %w", err)
	}

	der, err := sd.Finish()
	if err != nil {
		return "", fmt.Errorf("encoding signed data: %w", err)
	}

	return base64.StdEncoding.EncodeToString(der), nil
}

func parseCertificate(pemData []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	return x509.ParseCertificate(block.Bytes)
}

func parsePrivateKey(pemData []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("key is not a signer")
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}
}
