package i18n

import "testing"

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	fallback := GetCatalog("missing-locale")
	if fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
	if GetCatalog("") != base {
		t.Fatal("expected empty locale to resolve to en-US catalog")
	}
}

func TestGetCatalogMatchesAcceptLanguage(t *testing.T) {
	got := GetCatalog("pt-BR,pt;q=0.9,en;q=0.5")
	if got.Locale() != "pt-BR" {
		t.Fatalf("locale = %q, want pt-BR", got.Locale())
	}
	if got := GetCatalog("en-GB"); got.Locale() != "en-US" {
		t.Fatalf("locale = %q, want en-US", got.Locale())
	}
}

func TestLedgerMessages(t *testing.T) {
	cat := GetCatalog("en-US")

	if got := cat.Format(CodeAuthFailed, map[string]string{"Reason": "unknown_account"}); got != "Email not found in system" {
		t.Fatalf("unknown account message = %q", got)
	}
	if got := cat.Format(CodeAuthFailed, map[string]string{"Reason": "bad_password"}); got != "Incorrect password" {
		t.Fatalf("bad password message = %q", got)
	}
	if got := cat.Format(CodeValidation, map[string]string{"Constraint": "password_mismatch"}); got != "Passwords do not match." {
		t.Fatalf("mismatch message = %q", got)
	}
	got := cat.Format(CodeInsufficientBalance, map[string]string{"Kind": "pass", "Balance": "1", "Amount": "2"})
	if got != "Cannot approve: user does not have enough pass balance (1 available, 2 requested)." {
		t.Fatalf("insufficient message = %q", got)
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("custom", map[Code]string{"code": "ok"})
	RegisterCatalog("custom", custom)
	if got := GetCatalog("custom"); got != custom {
		t.Fatal("expected registered catalog")
	}
}
