package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
)

// FailureKind categorizes a failed probe for observability.
type FailureKind string

const (
	FailNone        FailureKind = ""
	FailTimeout     FailureKind = "TIMEOUT"
	FailDNS         FailureKind = "DNS_ERROR"
	FailConnection  FailureKind = "CONNECTION_ERROR"
	FailRequest     FailureKind = "REQUEST_ERROR"
	FailStatus      FailureKind = "STATUS_ERROR"
	FailKeyword     FailureKind = "KEYWORD_MISMATCH"
	FailSSLInvalid  FailureKind = "SSL_INVALID"
	FailSSLExpiring FailureKind = "SSL_EXPIRING"
	FailSSLError    FailureKind = "SSL_ERROR"
)

// StatusCodeNone is the sentinel status code recorded when no HTTP response
// was obtained (timeout, DNS, connection or setup failure).
const StatusCodeNone = -1

// retryDelay is the fixed pause between failed attempts. No backoff.
var retryDelay = 1 * time.Second

// maxBodyBytes bounds how much of a response body the keyword check reads.
const maxBodyBytes = 10 << 20

// ProbeResult is the immutable outcome of one probe cycle (all retries).
type ProbeResult struct {
	MonitorID  int64       `json:"monitor_id"`
	StatusCode int         `json:"status_code"`
	DurationMS int         `json:"duration_ms"`
	Up         bool        `json:"up"`
	Failure    FailureKind `json:"failure,omitempty"`
	Message    string      `json:"message,omitempty"`
	Redirects  int         `json:"redirects"`
	FinalURL   string      `json:"final_url"`
	Attempts   int         `json:"attempts"`
}

// Probe executes up to RetryCount attempts against the monitor's target and
// returns the first UP result, or the last attempt's failure when every
// attempt fails. It has no side effects beyond the network calls.
func Probe(ctx context.Context, m *models.Monitor) *ProbeResult {
	ranges, err := ParseStatusRanges(m.AcceptedStatuses)
	if err != nil {
		return &ProbeResult{
			MonitorID:  m.ID,
			StatusCode: StatusCodeNone,
			Failure:    FailRequest,
			Message:    fmt.Sprintf("bad accepted_statuses: %v", err),
			Attempts:   1,
		}
	}

	attempts := m.RetryCount
	if attempts < 1 {
		attempts = 1
	}

	var result *ProbeResult
	for attempt := 1; attempt <= attempts; attempt++ {
		result = probeOnce(ctx, m, ranges)
		result.Attempts = attempt
		if result.Up {
			break
		}
		if attempt < attempts {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				result.Attempts = attempt
				return result
			}
		}
	}
	return result
}

// probeOnce performs a single HTTP(S) request and classifies the outcome.
func probeOnce(ctx context.Context, m *models.Monitor, ranges StatusRanges) *ProbeResult {
	timeout := time.Duration(m.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	res := &ProbeResult{
		MonitorID:  m.ID,
		StatusCode: StatusCodeNone,
		FinalURL:   m.URL,
	}

	redirects := 0
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !m.VerifyTLS},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !m.FollowRedirects {
				return http.ErrUseLastResponse
			}
			max := m.MaxRedirects
			if max <= 0 {
				max = 10
			}
			if len(via) >= max {
				return fmt.Errorf("stopped after %d redirects", max)
			}
			redirects = len(via)
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		res.Failure = FailRequest
		res.Message = err.Error()
		return res
	}
	req.Header.Set("User-Agent", "uptimefel/1.0")
	req.Header.Set("Accept", "*/*")

	t0 := time.Now()
	resp, err := client.Do(req)
	res.DurationMS = int(time.Since(t0).Milliseconds())
	res.Redirects = redirects
	if err != nil {
		res.Failure, res.Message = classifyNetError(err)
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.FinalURL = resp.Request.URL.String()

	if !ranges.Contains(resp.StatusCode) {
		res.Failure = FailStatus
		res.Message = fmt.Sprintf("status %d not in accepted range", resp.StatusCode)
		return res
	}

	// Candidate-UP; kind-specific assertions may still flip it down.
	switch m.Kind {
	case models.KindKeyword:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			res.Failure = FailRequest
			res.Message = fmt.Sprintf("reading body: %v", err)
			return res
		}
		haystack, needle := string(body), m.Keyword
		if !m.KeywordCaseSense {
			haystack = strings.ToLower(haystack)
			needle = strings.ToLower(needle)
		}
		found := strings.Contains(haystack, needle)
		if found == m.InvertKeyword {
			res.Failure = FailKeyword
			if m.InvertKeyword {
				res.Message = fmt.Sprintf("keyword %q present but should be absent", m.Keyword)
			} else {
				res.Message = fmt.Sprintf("keyword %q not found in response", m.Keyword)
			}
			return res
		}
	case models.KindHTTPS:
		if kind, msg := CheckCertificate(m.URL, timeout, m.ExpiryWarnDays); kind != FailNone {
			res.Failure = kind
			res.Message = msg
			return res
		}
	}

	res.Up = true
	return res
}

// classifyNetError maps a transport error onto the failure taxonomy.
func classifyNetError(err error) (FailureKind, string) {
	msg := err.Error()

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return FailTimeout, msg
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailDNS, msg
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) {
		return FailSSLInvalid, msg
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FailConnection, msg
	}

	return FailRequest, msg
}
