package archive

import "testing"

func TestVerifySignatureNoBlockIsNoop(t *testing.T) {
	z := &zipBuilder{}
	z.add("com/example/Util.class", buildUtilClass(t))

	a, err := NewBytes(z.bytes(), nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if a.Signature != nil {
		t.Fatalf("Signature = %+v, want nil (no signature block present)", a.Signature)
	}
}

func TestVerifySignatureMalformedBlockIsAnomalyNotError(t *testing.T) {
	z := &zipBuilder{}
	z.add("com/example/Util.class", buildUtilClass(t))
	z.add("META-INF/CERT.RSA", []byte("not a pkcs7 signature block"))

	a, err := NewBytes(z.bytes(), nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if a.Signature != nil {
		t.Fatalf("Signature = %+v, want nil (block failed to parse)", a.Signature)
	}
	found := false
	for _, an := range a.Anomalies {
		if an == AnoUnreadableSignature {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected AnoUnreadableSignature anomaly, got %+v", a.Anomalies)
	}
}

func TestSkipSignatureVerificationOption(t *testing.T) {
	z := &zipBuilder{}
	z.add("com/example/Util.class", buildUtilClass(t))
	z.add("META-INF/CERT.RSA", []byte("not a pkcs7 signature block"))

	a, err := NewBytes(z.bytes(), &Options{SkipSignatureVerification: true})
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	for _, an := range a.Anomalies {
		if an == AnoUnreadableSignature {
			t.Fatalf("did not expect signature anomalies when verification is skipped, got %+v", a.Anomalies)
		}
	}
}
