package checker

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// CheckCertificate opens a TLS connection to the host behind rawURL and
// inspects the peer certificate. It returns FailNone when the certificate is
// valid and not close to expiry.
func CheckCertificate(rawURL string, timeout time.Duration, warnDays int) (FailureKind, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return FailRequest, fmt.Sprintf("invalid url: %v", err)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, port), &tls.Config{
		ServerName: host,
	})
	if err != nil {
		var certErr *tls.CertificateVerificationError
		var unknownAuth x509.UnknownAuthorityError
		var hostErr x509.HostnameError
		var invalidErr x509.CertificateInvalidError
		if errors.As(err, &certErr) || errors.As(err, &unknownAuth) ||
			errors.As(err, &hostErr) || errors.As(err, &invalidErr) {
			return FailSSLInvalid, fmt.Sprintf("certificate verification failed: %v", err)
		}
		return FailSSLError, fmt.Sprintf("tls connection failed: %v", err)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return FailSSLError, "no peer certificate presented"
	}

	leaf := certs[0]
	daysLeft := int(time.Until(leaf.NotAfter).Hours() / 24)
	if daysLeft <= warnDays {
		return FailSSLExpiring, fmt.Sprintf("certificate expires in %d days (%s)",
			daysLeft, leaf.NotAfter.UTC().Format("2006-01-02"))
	}
	return FailNone, ""
}
