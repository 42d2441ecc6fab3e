package models

import (
	"testing"
)

func TestSaleStatus_Transitions(t *testing.T) {
	tests := []struct {
		from SaleStatus
		to   SaleStatus
		want bool
	}{
		{SaleStatusDraft, SaleStatusPaid, true},
		{SaleStatusDraft, SaleStatusCancelled, true},
		{SaleStatusPaid, SaleStatusCancelled, true},
		{SaleStatusPaid, SaleStatusDraft, false},
		{SaleStatusPaid, SaleStatusPaid, false},
		{SaleStatusCancelled, SaleStatusCancelled, false},
		{SaleStatusCancelled, SaleStatusPaid, false},
		{SaleStatusCancelled, SaleStatusDraft, false},
		{SaleStatusDraft, SaleStatusDraft, false},
		{SaleStatus("refunded"), SaleStatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSaleStatus_AcceptsChanges(t *testing.T) {
	tests := []struct {
		status SaleStatus
		valid  bool
		open   bool
	}{
		{SaleStatusDraft, true, true},
		{SaleStatusPaid, true, false},
		{SaleStatusCancelled, true, false},
		{SaleStatus(""), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.status.AcceptsChanges(); got != tt.open {
				t.Errorf("AcceptsChanges() = %v, want %v", got, tt.open)
			}
		})
	}
}

func TestSale_GetUserID(t *testing.T) {
	s := &Sale{UserID: 42}
	if got := s.GetUserID(); got != 42 {
		t.Errorf("GetUserID() = %d, want 42", got)
	}
}

func TestUser_BeforeCreateAssignsUUID(t *testing.T) {
	u := &User{}
	if err := u.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}
	if len(u.UUID) != 36 {
		t.Errorf("expected a uuid, got %q", u.UUID)
	}

	kept := &User{UUID: "fixed"}
	_ = kept.BeforeCreate(nil)
	if kept.UUID != "fixed" {
		t.Errorf("existing uuid overwritten: %q", kept.UUID)
	}
}

func TestUser_RoleName(t *testing.T) {
	if got := (&User{}).RoleName(); got != "" {
		t.Errorf("RoleName() = %q, want empty", got)
	}
	u := &User{Role: &Role{Name: RoleCashier}}
	if got := u.RoleName(); got != "Kasir" {
		t.Errorf("RoleName() = %q, want Kasir", got)
	}
}

func TestPermission_Code(t *testing.T) {
	p := Permission{ResourceType: "sale", Action: "confirm"}
	if got := p.Code(); got != "sale:confirm" {
		t.Errorf("Code() = %q", got)
	}
}
