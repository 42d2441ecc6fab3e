package gate_test

import (
	"testing"

	"github.com/diewo77/go-pos/gate"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in      string
		want    gate.Permission
		wantErr bool
	}{
		{"sale:create", "sale:create", false},
		{" product:* ", "product:*", false},
		{"*:*", gate.PermissionSuperAdmin, false},
		{"sale", "", true},
		{":create", "", true},
		{"sale:", "", true},
		{"a:b:c", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := gate.ParsePermission(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePermission(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePermission(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPermission_Split(t *testing.T) {
	res, act := gate.NewPermission("sale", gate.ActionConfirm).Split()
	if res != "sale" || act != gate.ActionConfirm {
		t.Errorf("got %q %q", res, act)
	}
	res, act = gate.Permission("broken").Split()
	if res != "" || act != "" {
		t.Errorf("expected empty parts, got %q %q", res, act)
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		granted   gate.Permission
		requested gate.Permission
		want      bool
	}{
		{"sale:create", "sale:create", true},
		{"sale:create", "sale:cancel", false},
		{"sale:create", "product:create", false},
		{"sale:*", "sale:confirm", true},
		{"sale:*", "product:list", false},
		{"*:list", "product:list", true},
		{"*:list", "product:delete", false},
		{gate.PermissionSuperAdmin, "stock:create", true},
		{"sale:*", gate.PermissionSuperAdmin, false},
		{"broken", "broken", true},
		{"broken", "sale:list", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.granted)+"->"+string(tt.requested), func(t *testing.T) {
			if got := tt.granted.Matches(tt.requested); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
