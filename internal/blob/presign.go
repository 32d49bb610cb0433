package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PresignExpiry is fixed at 15 minutes and not renewable; clients re-request
// a URL when theirs expires.
const PresignExpiry = 15 * time.Minute

var (
	ErrBadSignature = errors.New("presign: signature mismatch")
	ErrExpired      = errors.New("presign: url expired")
)

// Presigner issues and verifies short-lived HMAC-signed URLs scoped to one
// method and one exact object key. The string-to-sign pins method, key,
// expiry and version so none of them can be swapped after issuance.
type Presigner struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

func NewPresigner(secret, baseURL string) *Presigner {
	return &Presigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (p *Presigner) sign(method, key, versionID string, expires int64) string {
	mac := hmac.New(sha256.New, p.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d\n%s", method, key, expires, versionID)
	return hex.EncodeToString(mac.Sum(nil))
}

// PresignPut returns a write URL for the exact key plus the validity window
// in seconds.
func (p *Presigner) PresignPut(key, contentType string) (string, int64) {
	expires := p.now().Add(PresignExpiry).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("contentType", contentType)
	q.Set("sig", p.sign("PUT", key, "", expires))
	return p.baseURL + "/blobs/" + key + "?" + q.Encode(), int64(PresignExpiry / time.Second)
}

// PresignGet returns a read URL for one version of key. fileName, when set,
// is carried for the content-disposition header on download.
func (p *Presigner) PresignGet(key, versionID, fileName string) (string, int64) {
	expires := p.now().Add(PresignExpiry).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	if versionID != "" {
		q.Set("versionId", versionID)
	}
	if fileName != "" {
		q.Set("fileName", fileName)
	}
	q.Set("sig", p.sign("GET", key, versionID, expires))
	return p.baseURL + "/blobs/" + key + "?" + q.Encode(), int64(PresignExpiry / time.Second)
}

// Verify checks the signature and expiry of a presigned request. The
// comparison is constant-time.
func (p *Presigner) Verify(method, key string, query url.Values) error {
	expires, err := strconv.ParseInt(query.Get("expires"), 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	want := p.sign(method, key, query.Get("versionId"), expires)
	got := query.Get("sig")
	if !hmac.Equal([]byte(want), []byte(got)) {
		return ErrBadSignature
	}
	if p.now().Unix() > expires {
		return ErrExpired
	}
	return nil
}
