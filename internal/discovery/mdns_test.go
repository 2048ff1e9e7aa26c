package discovery

import (
	"slices"
	"testing"
)

func TestTXT(t *testing.T) {
	txt := TXT("1.2.3")
	for _, want := range []string{"app=markedit", "version=1.2.3", "api=/api"} {
		if !slices.Contains(txt, want) {
			t.Errorf("Expected TXT record %q in %v", want, txt)
		}
	}
}
