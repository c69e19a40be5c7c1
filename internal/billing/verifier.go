package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
)

// Verifier authenticates inbound webhook payloads against the shared
// endpoint secret before anything else looks at them. The scheme is the
// provider's standard one: a header of the form
//
//	t=<unix seconds>,v1=<hex hmac-sha256(secret, "<t>.<body>")>
//
// with a clock tolerance bounding replay. Multiple v1 entries are accepted
// so the provider can roll secrets without dropping events.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify checks the signature header against payload and, on success, parses
// the body into an Event. A failed verification never reaches the dispatcher.
func (v *Verifier) Verify(payload []byte, sigHeader string) (*Event, error) {
	if sigHeader == "" {
		return nil, errors.NewSignatureInvalidError("missing signature header")
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, errors.NewSignatureInvalidError(err.Error())
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return nil, errors.NewSignatureInvalidError("timestamp outside tolerance")
	}

	expected := computeSignature(v.secret, timestamp, payload)
	matched := false
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			matched = true
		}
	}
	if !matched {
		return nil, errors.NewSignatureInvalidError("no matching v1 signature")
	}

	return ParseEvent(payload)
}

func computeSignature(secret []byte, timestamp int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignPayload produces a valid signature header for payload. Used by tests
// and local tooling that replays events against a dev instance.
func SignPayload(secret string, timestamp time.Time, payload []byte) string {
	sig := computeSignature([]byte(secret), timestamp.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp.Unix(), hex.EncodeToString(sig))
}

func parseSignatureHeader(header string) (int64, [][]byte, error) {
	var timestamp int64 = -1
	var signatures [][]byte

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("bad timestamp: %s", kv[1])
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				// A corrupt entry does not invalidate the header; another
				// v1 entry may still match.
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp < 0 {
		return 0, nil, fmt.Errorf("no timestamp in signature header")
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("no v1 signatures in signature header")
	}
	return timestamp, signatures, nil
}
