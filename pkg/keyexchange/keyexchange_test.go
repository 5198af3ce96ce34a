package keyexchange

import (
	"bytes"
	"testing"
)

type fakeExporter struct {
	material []byte
}

func (f *fakeExporter) ExportKeyingMaterial(label string, context []byte, length int) ([]byte, error) {
	if len(f.material) < length {
		return nil, bytes.ErrTooLarge
	}
	return f.material[:length], nil
}

func TestDeriveDTLSSRTPKeysSplitsMaterial(t *testing.T) {
	profile := ProfileAES128CM80
	total := 2*profile.KeyLen + 2*profile.SaltLen
	material := make([]byte, total)
	for i := range material {
		material[i] = byte(i)
	}

	keys, err := DeriveDTLSSRTPKeys(&fakeExporter{material: material}, profile)
	if err != nil {
		t.Fatalf("DeriveDTLSSRTPKeys: %v", err)
	}
	if !bytes.Equal(keys.ClientKey, material[:profile.KeyLen]) {
		t.Fatal("ClientKey slice mismatch")
	}
	if !bytes.Equal(keys.ServerSalt, material[total-profile.SaltLen:]) {
		t.Fatal("ServerSalt slice mismatch")
	}
}

func TestSDESKeyEncodeParseRoundTrip(t *testing.T) {
	k, err := GenerateSDESKey(1, "AES_CM_128_HMAC_SHA1_80")
	if err != nil {
		t.Fatalf("GenerateSDESKey: %v", err)
	}
	encoded := k.Encode()

	parsed, err := ParseSDESKey(encoded)
	if err != nil {
		t.Fatalf("ParseSDESKey: %v", err)
	}
	if parsed.Tag != 1 || parsed.Suite != "AES_CM_128_HMAC_SHA1_80" {
		t.Fatalf("parsed mismatch: %+v", parsed)
	}
	if !bytes.Equal(parsed.KeySalt, k.KeySalt) {
		t.Fatal("KeySalt mismatch after round trip")
	}
}

func TestMIKEYPSKDerivesDeterministicKeysFromTGK(t *testing.T) {
	_, tgk, err := DeriveMIKEYPSKKeys([]byte("shared-secret"), 32)
	if err != nil {
		t.Fatalf("DeriveMIKEYPSKKeys: %v", err)
	}

	keys1, err := MIKEYPSKKeys(tgk, []byte("cs-1"), ProfileAES128CM80)
	if err != nil {
		t.Fatalf("MIKEYPSKKeys: %v", err)
	}
	keys2, err := MIKEYPSKKeys(tgk, []byte("cs-1"), ProfileAES128CM80)
	if err != nil {
		t.Fatalf("MIKEYPSKKeys: %v", err)
	}
	if !bytes.Equal(keys1.ClientKey, keys2.ClientKey) {
		t.Fatal("expected deterministic derivation for same TGK/csID")
	}

	keys3, _ := MIKEYPSKKeys(tgk, []byte("cs-2"), ProfileAES128CM80)
	if bytes.Equal(keys1.ClientKey, keys3.ClientKey) {
		t.Fatal("expected different csID to change derived keys")
	}
}

func TestMIKEYPKESharedSecretMatchesBothSides(t *testing.T) {
	alice, err := GenerateMIKEYPKEKeyPair()
	if err != nil {
		t.Fatalf("GenerateMIKEYPKEKeyPair (alice): %v", err)
	}
	bob, err := GenerateMIKEYPKEKeyPair()
	if err != nil {
		t.Fatalf("GenerateMIKEYPKEKeyPair (bob): %v", err)
	}

	aliceTGK, err := DeriveMIKEYPKETGK(alice, bob.Public, 32)
	if err != nil {
		t.Fatalf("DeriveMIKEYPKETGK (alice): %v", err)
	}
	bobTGK, err := DeriveMIKEYPKETGK(bob, alice.Public, 32)
	if err != nil {
		t.Fatalf("DeriveMIKEYPKETGK (bob): %v", err)
	}

	if !bytes.Equal(aliceTGK, bobTGK) {
		t.Fatal("expected both sides to derive the same TGK")
	}
}
