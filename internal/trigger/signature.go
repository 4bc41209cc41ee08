// Package trigger authenticates externally invoked job triggers.
//
// Every external trigger carries an HMAC-SHA256 signature bound to the
// specific request: the signed content is "{unix_timestamp}.{job_name}" keyed
// with a server-held shared secret. Binding the timestamp into the signature
// and enforcing a freshness window defeats replay of a captured header.
// Verification is fail-closed: on any ambiguity no reconciliation runs.
//
// Header format: X-Shiftdesk-Signature: t=<unix>,v1=<hmac-hex>
package trigger

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shiftdesk/internal/types"
)

// SignatureHeader is the request header carrying the trigger signature.
const SignatureHeader = "X-Shiftdesk-Signature"

// Authenticator verifies trigger signatures against the shared secret.
type Authenticator struct {
	secret    types.SecretString
	freshness time.Duration
}

// NewAuthenticator creates an Authenticator with the given shared secret and
// freshness window. Signatures whose timestamp lies more than the window away
// from now (in either direction, to tolerate skew symmetrically) are rejected.
func NewAuthenticator(secret types.SecretString, freshness time.Duration) *Authenticator {
	return &Authenticator{
		secret:    secret,
		freshness: freshness,
	}
}

// Verify checks a signature header for the named job at the given instant.
// Returns nil only when the header is well formed, fresh, and its HMAC
// matches the recomputed signature under a constant-time comparison.
func (a *Authenticator) Verify(header string, job types.JobName, now time.Time) error {
	if header == "" {
		return types.NewAppError(types.ErrCodeAuthSignatureMissing, "missing trigger signature", nil)
	}

	parts := parseSignatureHeader(header)
	if parts.timestamp == "" || parts.v1 == "" {
		return types.NewAppError(types.ErrCodeAuthSignatureInvalid, "malformed trigger signature", nil)
	}

	ts, err := strconv.ParseInt(parts.timestamp, 10, 64)
	if err != nil {
		return types.NewAppError(types.ErrCodeAuthSignatureInvalid, "malformed signature timestamp", err)
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > a.freshness || age < -a.freshness {
		return types.NewAppError(types.ErrCodeAuthSignatureStale, "trigger signature outside freshness window", nil)
	}

	expected := computeHMAC(signedContent(ts, job), a.secret.Unmask())
	if !hmac.Equal([]byte(parts.v1), []byte(expected)) {
		return types.NewAppError(types.ErrCodeAuthSignatureInvalid, "trigger signature mismatch", nil)
	}

	return nil
}

// Sign produces the header value a caller must send to trigger the named job
// at the given instant. Exposed for the job-runner tool and client tests.
func (a *Authenticator) Sign(job types.JobName, now time.Time) string {
	ts := now.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeHMAC(signedContent(ts, job), a.secret.Unmask()))
}

// signedContent builds the canonical string bound by the signature.
func signedContent(ts int64, job types.JobName) string {
	return fmt.Sprintf("%d.%s", ts, string(job))
}

// signatureParts holds the parsed components of a signature header.
type signatureParts struct {
	timestamp string
	v1        string
}

// parseSignatureHeader breaks a signature header into its component parts.
// Expected format: "t=<unix>,v1=<hex>"
func parseSignatureHeader(header string) signatureParts {
	var parts signatureParts
	for _, segment := range strings.Split(header, ",") {
		kv := strings.SplitN(segment, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.TrimSpace(kv[0]) {
		case "t":
			parts.timestamp = strings.TrimSpace(kv[1])
		case "v1":
			parts.v1 = strings.TrimSpace(kv[1])
		}
	}
	return parts
}

// computeHMAC computes the HMAC-SHA256 of content using the given key and
// returns it as a lowercase hex string.
func computeHMAC(content, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}
