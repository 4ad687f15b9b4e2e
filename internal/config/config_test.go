package config

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), "")

	c, err := s.Load()
	if err != nil {
		t.Fatalf("Load on empty dir: %v", err)
	}
	if c != nil {
		t.Fatalf("Load = %+v, want nil before first save", c)
	}

	if err := s.Save(Credentials{ClientID: "id", ClientSecret: "secret"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c, err = s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c == nil || c.ClientID != "id" || c.ClientSecret != "secret" {
		t.Errorf("Load = %+v", c)
	}
}

func TestSaveRejectsPartialCredentials(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), "")
	if err := s.Save(Credentials{ClientID: "id"}); err == nil {
		t.Fatal("want error for missing secret")
	}
}

func TestCredentialsEnvFallback(t *testing.T) {
	s := NewStore(t.TempDir(), "")

	t.Setenv("SPOTIFY_ID", "env-id")
	t.Setenv("SPOTIFY_SECRET", "env-secret")

	id, secret, ok := s.Credentials()
	if !ok || id != "env-id" || secret != "env-secret" {
		t.Errorf("Credentials = (%q, %q, %v), want env values", id, secret, ok)
	}

	// The file takes precedence once written.
	if err := s.Save(Credentials{ClientID: "file-id", ClientSecret: "file-secret"}); err != nil {
		t.Fatal(err)
	}
	id, _, ok = s.Credentials()
	if !ok || id != "file-id" {
		t.Errorf("Credentials after save = (%q, %v), want file-id", id, ok)
	}
}

func TestVerifySetupCode(t *testing.T) {
	t.Parallel()

	const secret = "JBSWY3DPEHPK3PXP"

	ungated := NewStore(t.TempDir(), "")
	if !ungated.VerifySetupCode("") {
		t.Error("ungated store must accept any code")
	}

	gated := NewStore(t.TempDir(), secret)
	if gated.VerifySetupCode("000000") && gated.VerifySetupCode("123456") {
		t.Error("gated store accepted arbitrary codes")
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !gated.VerifySetupCode(code) {
		t.Error("gated store rejected a valid code")
	}
}
