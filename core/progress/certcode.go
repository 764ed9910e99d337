package progress

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	certSalt = []byte("pathways.core.progress.certcode")

	ErrInvalidCertificateCode = errors.New("invalid certificate code")
)

// CertificateCode is the verification code printed on cert: `<base32 day>-<signature>`.
// Anyone holding it can check the certificate was issued to learnerID.
func CertificateCode(secretKey, learnerID string, cert Certificate) string {
	return makeCertificateCode(secretKey, learnerID, cert.CourseID, numDaysSince2001(cert.EarnedAt))
}

// verifyCertificateCode checks code was issued for learnerID's cert.
func verifyCertificateCode(secretKey, learnerID string, cert Certificate, code string) error {
	parts := strings.SplitN(code, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidCertificateCode
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return ErrInvalidCertificateCode
	}
	day, err := strconv.Atoi(string(data))
	if err != nil || day != numDaysSince2001(cert.EarnedAt) {
		return ErrInvalidCertificateCode
	}

	// check that code has not been tampered with
	want := makeCertificateCode(secretKey, learnerID, cert.CourseID, day)
	if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 0 {
		return ErrInvalidCertificateCode
	}
	return nil
}

func makeCertificateCode(secretKey, learnerID, courseID string, day int) string {
	dayB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(day)))
	return fmt.Sprintf("%s-%s", dayB32, sign(secretKey, learnerID+"\x00"+courseID+"\x00"+strconv.Itoa(day)))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Floor(t.Sub(ref).Hours() / 24))
}

func sign(secretKey, val string) string {
	key := sha256.Sum256(append(append([]byte{}, certSalt...), secretKey...))
	h := hmac.New(sha256.New, key[:])
	_, _ = h.Write([]byte(val)) // hash.Hash never returns an error
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
