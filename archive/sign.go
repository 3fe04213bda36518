// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package archive

import (
	"crypto/x509"
	"encoding/hex"
	"strings"

	"go.mozilla.org/pkcs7"
)

// SignatureInfo summarizes a jar's PKCS#7 signature block (a *.RSA/*.DSA
// entry under META-INF/), if one is present. Grounded on the teacher's
// Authenticode Certificate type, trimmed to what a jar signature block
// actually carries: jar signing has no equivalent of the PE Certificate
// Table's binary-integrity role, so verification here is informational
// only — it never gates loading or execution, unlike the teacher's
// Authenticode path feeding into a go/no-go trust decision.
type SignatureInfo struct {
	SignerSerial string
	Verified     bool
}

// verifySignature looks for the first META-INF/*.RSA or *.DSA entry,
// parses it as PKCS#7, and records the result. Any failure here is recorded
// as an Anomaly, not an error: jar signing is a supplemental feature per
// SPEC_FULL.md, never a loading precondition.
func (a *Archive) verifySignature(entries []centralDirEntry) {
	for i := range entries {
		e := &entries[i]
		if !strings.HasPrefix(e.name, "META-INF/") {
			continue
		}
		if !strings.HasSuffix(e.name, ".RSA") && !strings.HasSuffix(e.name, ".DSA") {
			continue
		}

		payload, err := a.readEntryPayload(e)
		if err != nil {
			a.tracer.Debugf("signature block %s unreadable: %v", e.name, err)
			a.Anomalies = append(a.Anomalies, AnoUnreadableSignature)
			return
		}

		p7, err := pkcs7.Parse(payload)
		if err != nil {
			a.tracer.Debugf("signature block %s failed to parse: %v", e.name, err)
			a.Anomalies = append(a.Anomalies, AnoUnreadableSignature)
			return
		}

		info := &SignatureInfo{}
		if len(p7.Signers) > 0 {
			info.SignerSerial = hex.EncodeToString(p7.Signers[0].IssuerAndSerialNumber.SerialNumber.Bytes())
		}

		pool, err := x509.SystemCertPool()
		if err == nil {
			if err := p7.VerifyWithChain(pool); err == nil {
				info.Verified = true
			} else {
				a.Anomalies = append(a.Anomalies, AnoUnverifiedSignature)
			}
		}

		a.Signature = info
		return
	}
}
